package kf

import (
	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/estimate"
	"github.com/vse-go/go-filter/kalman/gain"
	"gonum.org/v1/gonum/mat"
)

// Predict propagates prior estimate through linear motion model m given control input u
// and process noise covariance q and returns the predicted estimate:
//
//	x = A*x + B*u
//	P = A*P*A' + Q
//
// u may be nil if m has no control input; q may be nil if there is no process noise.
// It returns error if the prior, u or q dimensions do not match the model.
func Predict(prior filter.Estimate, m filter.LinearMotion, u mat.Vector, q mat.Symmetric) (*estimate.Base, error) {
	if err := checkEstimate(prior, m); err != nil {
		return nil, err
	}

	// propagate input state to the next step
	xNext, err := m.Propagate(prior.Val(), u)
	if err != nil {
		return nil, errors.Wrap(err, "system state propagation failed")
	}

	A := m.SystemMatrix()

	cov := &mat.Dense{}
	cov.Mul(A, prior.Cov())
	cov.Mul(cov, A.T())

	pNext, err := gain.AddNoise(cov, q)
	if err != nil {
		return nil, errors.Wrap(err, "invalid process noise")
	}

	return estimate.NewBaseWithCov(xNext, pNext)
}

// Update corrects predicted estimate pred using measurement z, linear measurement model m
// and measurement noise covariance r and returns the corrected estimate with the innovation:
//
//	S = H*P*H' + R
//	K = P*H'*inv(S)
//	x = x + K*(z - H*x)
//	P = (I - K*H)*P*(I - K*H)' + K*R*K'
//
// maxCond is the innovation covariance condition number limit; non-positive maxCond selects gain.DefaultMaxCond.
// It returns filter.ErrSingularInnovationCovariance if S can not be inverted.
func Update(pred filter.Estimate, z mat.Vector, m filter.LinearMeasurement, r mat.Symmetric, maxCond float64) (*estimate.Base, *estimate.Innovation, error) {
	if err := checkEstimate(pred, m); err != nil {
		return nil, nil, err
	}

	// observe system output in the next step
	y, err := m.Observe(pred.Val())
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to observe system output")
	}

	return gain.CorrectJoseph(pred, z, y, m.OutputMatrix(), r, maxCond)
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
