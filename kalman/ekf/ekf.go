package ekf

import (
	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/estimate"
	"github.com/vse-go/go-filter/kalman/gain"
	"gonum.org/v1/gonum/mat"
)

// Predict propagates prior estimate through motion model m given control input u
// and process noise covariance q and returns the predicted estimate:
//
//	x = f(x, u)
//	P = F*P*F' + Q
//
// where F is the Jacobian of f evaluated at the prior mean.
// u may be nil if m has no control input; q may be nil if there is no process noise.
func Predict(prior filter.Estimate, m filter.MotionModel, u mat.Vector, q mat.Symmetric) (*estimate.Base, error) {
	if err := checkEstimate(prior, m); err != nil {
		return nil, err
	}

	x := prior.Val()

	// propagate input state to the next step
	xNext, err := m.Propagate(x, u)
	if err != nil {
		return nil, errors.Wrap(err, "system state propagation failed")
	}

	// calculate propagation Jacobian matrix
	F, err := m.StateJacobian(x, u)
	if err != nil {
		return nil, errors.Wrap(err, "failed to calculate propagation Jacobian")
	}

	cov := &mat.Dense{}
	cov.Mul(F, prior.Cov())
	cov.Mul(cov, F.T())

	pNext, err := gain.AddNoise(cov, q)
	if err != nil {
		return nil, errors.Wrap(err, "invalid process noise")
	}

	return estimate.NewBaseWithCov(xNext, pNext)
}

// Update corrects predicted estimate pred using measurement z, measurement model m
// and measurement noise covariance r and returns the corrected estimate with the innovation.
// Observation matrix H is the Jacobian of the measurement function evaluated at the predicted mean
// and the predicted measurement is h(x). The covariance is corrected in Joseph form.
// maxCond is the innovation covariance condition number limit; non-positive maxCond selects gain.DefaultMaxCond.
func Update(pred filter.Estimate, z mat.Vector, m filter.MeasurementModel, r mat.Symmetric, maxCond float64) (*estimate.Base, *estimate.Innovation, error) {
	if err := checkEstimate(pred, m); err != nil {
		return nil, nil, err
	}

	x := pred.Val()

	// observe system output in the next step
	y, err := m.Observe(x)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to observe system output")
	}

	// calculate observation Jacobian matrix
	H, err := m.OutputJacobian(x)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to calculate observation Jacobian")
	}

	return gain.CorrectJoseph(pred, z, gain.Align(m, z, y), H, r, maxCond)
}

func checkEstimate(est filter.Estimate, m interface{ Dims() (int, int) }) error {
	if est == nil {
		return errors.Wrap(filter.ErrDimensionMismatch, "nil estimate")
	}

	nx, _ := m.Dims()
	if est.Val().Len() != nx || est.Cov().SymmetricDim() != nx {
		return errors.Wrapf(filter.ErrDimensionMismatch, "estimate: %d, cov: %d, model: %d",
			est.Val().Len(), est.Cov().SymmetricDim(), nx)
	}

	return nil
}
