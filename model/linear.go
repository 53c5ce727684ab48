package model

import (
	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"gonum.org/v1/gonum/mat"
)

// Linear is a linear, discrete-time motion model:
//
//	x[n+1] = A*x[n] + B*u[n]
type Linear struct {
	// A is system (state transition) matrix
	A *mat.Dense
	// B is control matrix; nil if the model has no control input
	B *mat.Dense
}

// NewLinear creates new linear motion model and returns it.
// It returns error if A is not square or B row count differs from A.
func NewLinear(A, B mat.Matrix) (*Linear, error) {
	if A == nil {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "system matrix must be defined for a model")
	}

	rows, cols := A.Dims()
	if rows != cols || rows == 0 {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "invalid system matrix dimensions: [%d x %d]", rows, cols)
	}

	l := &Linear{A: mat.DenseCopyOf(A)}

	if B != nil {
		br, bc := B.Dims()
		if br != rows {
			return nil, errors.Wrapf(filter.ErrDimensionMismatch, "invalid control matrix dimensions: [%d x %d]", br, bc)
		}
		l.B = mat.DenseCopyOf(B)
	}

	return l, nil
}

// Propagate returns the next internal state given state x and control input u.
// Nil u is treated as zero control input.
func (l *Linear) Propagate(x, u mat.Vector) (mat.Vector, error) {
	nx, nu := l.Dims()
	if err := checkInput(x, u, nx, nu); err != nil {
		return nil, err
	}

	out := &mat.VecDense{}
	out.MulVec(l.A, x)

	if u != nil && l.B != nil {
		outU := &mat.VecDense{}
		outU.MulVec(l.B, u)

		out.AddVec(out, outU)
	}

	return out, nil
}

// StateJacobian returns a copy of system matrix A: a linear model is its own linearization.
func (l *Linear) StateJacobian(x, u mat.Vector) (mat.Matrix, error) {
	nx, nu := l.Dims()
	if err := checkInput(x, u, nx, nu); err != nil {
		return nil, err
	}

	return l.SystemMatrix(), nil
}

// Dims returns state and control input dimensions
func (l *Linear) Dims() (nx, nu int) {
	nx, _ = l.A.Dims()
	if l.B != nil {
		_, nu = l.B.Dims()
	}

	return nx, nu
}

// SystemMatrix returns state propagation matrix
func (l *Linear) SystemMatrix() mat.Matrix {
	m := &mat.Dense{}
	m.CloneFrom(l.A)

	return m
}

// ControlMatrix returns state propagation control matrix
func (l *Linear) ControlMatrix() mat.Matrix {
	if l.B == nil {
		return nil
	}

	m := &mat.Dense{}
	m.CloneFrom(l.B)

	return m
}

// LinearOutput is a linear measurement model:
//
//	y[n] = H*x[n]
type LinearOutput struct {
	// H is observation matrix
	H *mat.Dense
}

// NewLinearOutput creates new linear measurement model and returns it.
// It returns error if H is nil or empty.
func NewLinearOutput(H mat.Matrix) (*LinearOutput, error) {
	if H == nil {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "observation matrix must be defined for a model")
	}

	rows, cols := H.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "invalid observation matrix dimensions: [%d x %d]", rows, cols)
	}

	return &LinearOutput{H: mat.DenseCopyOf(H)}, nil
}

// Observe returns external/observable state given internal state x.
func (o *LinearOutput) Observe(x mat.Vector) (mat.Vector, error) {
	nx, _ := o.Dims()
	if x == nil || x.Len() != nx {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "invalid state vector")
	}

	out := &mat.VecDense{}
	out.MulVec(o.H, x)

	return out, nil
}

// OutputJacobian returns a copy of observation matrix H.
func (o *LinearOutput) OutputJacobian(x mat.Vector) (mat.Matrix, error) {
	nx, _ := o.Dims()
	if x == nil || x.Len() != nx {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "invalid state vector")
	}

	return o.OutputMatrix(), nil
}

// Dims returns state and output dimensions
func (o *LinearOutput) Dims() (nx, ny int) {
	ny, nx = o.H.Dims()

	return nx, ny
}

// OutputMatrix returns observation matrix
func (o *LinearOutput) OutputMatrix() mat.Matrix {
	m := &mat.Dense{}
	m.CloneFrom(o.H)

	return m
}

func checkInput(x, u mat.Vector, nx, nu int) error {
	if x == nil || x.Len() != nx {
		return errors.Wrap(filter.ErrDimensionMismatch, "invalid state vector")
	}

	if u != nil && u.Len() != nu {
		return errors.Wrapf(filter.ErrDimensionMismatch, "invalid input vector: %d != %d", u.Len(), nu)
	}

	return nil
}
