package model

import (
	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// MotionFunc computes the next state of a nonlinear system given state x and control input u
type MotionFunc func(x, u mat.Vector) (mat.Vector, error)

// MotionJacFunc computes the Jacobian of a MotionFunc evaluated at x and u
type MotionJacFunc func(x, u mat.Vector) (mat.Matrix, error)

// MeasurementFunc computes the output of a nonlinear system given state x
type MeasurementFunc func(x mat.Vector) (mat.Vector, error)

// MeasurementJacFunc computes the Jacobian of a MeasurementFunc evaluated at x
type MeasurementJacFunc func(x mat.Vector) (mat.Matrix, error)

// ResidualFunc computes the difference a - b of two measurements
type ResidualFunc func(a, b mat.Vector) *mat.VecDense

// Motion is a nonlinear motion model.
// When no analytic Jacobian is supplied it is approximated by central finite differences.
type Motion struct {
	nx  int
	nu  int
	f   MotionFunc
	jac MotionJacFunc
}

// NewMotion creates new nonlinear motion model with state dimension nx and control dimension nu.
// jac may be nil in which case the Jacobian is computed numerically.
// It returns error if f is nil or nx is not positive.
func NewMotion(nx, nu int, f MotionFunc, jac MotionJacFunc) (*Motion, error) {
	if nx <= 0 || nu < 0 {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "invalid model dimensions: [%d x %d]", nx, nu)
	}

	if f == nil {
		return nil, errors.New("motion function must be defined for a model")
	}

	return &Motion{nx: nx, nu: nu, f: f, jac: jac}, nil
}

// Propagate propagates state x to the next step given control input u
func (m *Motion) Propagate(x, u mat.Vector) (mat.Vector, error) {
	if err := checkInput(x, u, m.nx, m.nu); err != nil {
		return nil, err
	}

	xNext, err := m.f(x, u)
	if err != nil {
		return nil, errors.Wrap(err, "system state propagation failed")
	}

	if xNext.Len() != m.nx {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "propagated state: %d != %d", xNext.Len(), m.nx)
	}

	return xNext, nil
}

// StateJacobian returns the propagation Jacobian evaluated at x and u.
func (m *Motion) StateJacobian(x, u mat.Vector) (mat.Matrix, error) {
	if err := checkInput(x, u, m.nx, m.nu); err != nil {
		return nil, err
	}

	if m.jac != nil {
		j, err := m.jac(x, u)
		if err != nil {
			return nil, errors.Wrap(err, "propagation Jacobian failed")
		}

		if r, c := j.Dims(); r != m.nx || c != m.nx {
			return nil, errors.Wrapf(filter.ErrDimensionMismatch, "propagation Jacobian: [%d x %d]", r, c)
		}

		return j, nil
	}

	return jacobian(m.nx, m.nx, x, func(x mat.Vector) (mat.Vector, error) {
		return m.f(x, u)
	})
}

// Dims returns state and control input dimensions
func (m *Motion) Dims() (nx, nu int) {
	return m.nx, m.nu
}

// Measurement is a nonlinear measurement model.
// When no analytic Jacobian is supplied it is approximated by central finite differences.
type Measurement struct {
	nx  int
	ny  int
	h   MeasurementFunc
	jac MeasurementJacFunc
	res ResidualFunc
}

// NewMeasurement creates new nonlinear measurement model with state dimension nx and output dimension ny.
// jac may be nil in which case the Jacobian is computed numerically.
// It returns error if h is nil or any dimension is not positive.
func NewMeasurement(nx, ny int, h MeasurementFunc, jac MeasurementJacFunc) (*Measurement, error) {
	if nx <= 0 || ny <= 0 {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "invalid model dimensions: [%d x %d]", nx, ny)
	}

	if h == nil {
		return nil, errors.New("measurement function must be defined for a model")
	}

	return &Measurement{nx: nx, ny: ny, h: h, jac: jac}, nil
}

// Observe observes external state of the system given internal state x
func (m *Measurement) Observe(x mat.Vector) (mat.Vector, error) {
	if x == nil || x.Len() != m.nx {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "invalid state vector")
	}

	y, err := m.h(x)
	if err != nil {
		return nil, errors.Wrap(err, "failed to observe system output")
	}

	if y.Len() != m.ny {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "observed output: %d != %d", y.Len(), m.ny)
	}

	return y, nil
}

// OutputJacobian returns the observation Jacobian evaluated at x
func (m *Measurement) OutputJacobian(x mat.Vector) (mat.Matrix, error) {
	if x == nil || x.Len() != m.nx {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "invalid state vector")
	}

	if m.jac != nil {
		j, err := m.jac(x)
		if err != nil {
			return nil, errors.Wrap(err, "observation Jacobian failed")
		}

		if r, c := j.Dims(); r != m.ny || c != m.nx {
			return nil, errors.Wrapf(filter.ErrDimensionMismatch, "observation Jacobian: [%d x %d]", r, c)
		}

		return j, nil
	}

	return jacobian(m.ny, m.nx, x, m.h)
}

// Residual returns the difference a - b of measurements a and b.
// Measurements subtract element-wise unless the model was given a ResidualFunc with WithResidual.
func (m *Measurement) Residual(a, b mat.Vector) *mat.VecDense {
	if m.res != nil {
		return m.res(a, b)
	}

	d := &mat.VecDense{}
	d.SubVec(a, b)

	return d
}

// WithResidual sets the measurement residual function and returns m
func (m *Measurement) WithResidual(res ResidualFunc) *Measurement {
	m.res = res
	return m
}

// Dims returns state and output dimensions
func (m *Measurement) Dims() (nx, ny int) {
	return m.nx, m.ny
}

// jacobian approximates the rows x cols Jacobian of fn at x with central differences.
func jacobian(rows, cols int, x mat.Vector, fn func(mat.Vector) (mat.Vector, error)) (mat.Matrix, error) {
	var fnErr error
	eval := func(y, xNow []float64) {
		if fnErr != nil {
			return
		}

		out, err := fn(mat.NewVecDense(len(xNow), xNow))
		if err != nil {
			fnErr = err
			return
		}

		if out.Len() != len(y) {
			fnErr = errors.Wrapf(filter.ErrDimensionMismatch, "function output: %d != %d", out.Len(), len(y))
			return
		}

		for i := range y {
			y[i] = out.AtVec(i)
		}
	}

	jac := mat.NewDense(rows, cols, nil)
	fd.Jacobian(jac, eval, mat.Col(nil, 0, x), &fd.JacobianSettings{
		Formula: fd.Central,
	})

	if fnErr != nil {
		return nil, errors.Wrap(fnErr, "numeric Jacobian failed")
	}

	return jac, nil
}
