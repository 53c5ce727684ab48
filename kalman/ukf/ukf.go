package ukf

import (
	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/estimate"
	"github.com/vse-go/go-filter/kalman/gain"
	"github.com/vse-go/go-filter/kalman/sigma"
	"github.com/vse-go/go-filter/matrix"
	"gonum.org/v1/gonum/mat"
)

// Predict propagates prior estimate through motion model m given control input u
// and process noise covariance q using sigma points generated by gen:
//
//	Xi = f(Xi, u)
//	x  = sum(Wi * Xi)
//	P  = sum(Wi * (Xi - x)*(Xi - x)') + Q
//
// When the central weight W0 is negative, P is accumulated about the central point X0 instead of x
// so that it stays positive semi-definite.
// Unscented and cubature filters differ only in gen; nil gen selects sigma.Unscented.
// u may be nil if m has no control input; q may be nil if there is no process noise.
// It returns filter.ErrInvalidCovariance if the predicted covariance is not positive semi-definite.
func Predict(prior filter.Estimate, m filter.MotionModel, u mat.Vector, q mat.Symmetric, gen sigma.Generator) (*estimate.Base, error) {
	if err := checkEstimate(prior, m); err != nil {
		return nil, err
	}

	if gen == nil {
		gen = sigma.Unscented
	}

	sp, err := gen(prior.Val(), prior.Cov())
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate sigma points")
	}

	// propagate all sigma points
	X, err := sp.Transform(func(x mat.Vector) (mat.Vector, error) {
		return m.Propagate(x, u)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to propagate sigma points")
	}

	xMean := sigma.WeightedMean(X, sp.W)

	var ref mat.Vector = xMean
	if central(sp) {
		ref = X.ColView(0)
	}

	pNext, err := gain.AddNoise(sigma.DevCov(sigma.Deviations(X, ref, nil), sp.W), q)
	if err != nil {
		return nil, errors.Wrap(err, "invalid process noise")
	}

	if !matrix.IsPSD(pNext, matrix.SymTol) {
		return nil, errors.Wrap(filter.ErrInvalidCovariance, "predicted covariance")
	}

	return estimate.NewBaseWithCov(xMean, pNext)
}

// Update corrects predicted estimate pred using measurement z, measurement model m
// and measurement noise covariance r using sigma points generated by gen around pred:
//
//	Yi  = h(Xi)
//	y   = sum(Wi * Yi)
//	S   = sum(Wi * (Yi - y)*(Yi - y)') + R
//	Pxy = sum(Wi * (Xi - x)*(Yi - y)')
//	K   = Pxy * inv(S)
//	x   = x + K*(z - y)
//	P   = P - K*S*K'
//
// When the central weight W0 is negative, S and Pxy are accumulated about the central points X0 and Y0.
// If m implements filter.ResidualModel, output differences are computed with its Residual.
// nil gen selects sigma.Unscented.
// maxCond is the innovation covariance condition number limit; non-positive maxCond selects gain.DefaultMaxCond.
// It returns filter.ErrInvalidCovariance if the corrected covariance is not positive semi-definite.
func Update(pred filter.Estimate, z mat.Vector, m filter.MeasurementModel, r mat.Symmetric, gen sigma.Generator, maxCond float64) (*estimate.Base, *estimate.Innovation, error) {
	if err := checkEstimate(pred, m); err != nil {
		return nil, nil, err
	}

	if gen == nil {
		gen = sigma.Unscented
	}

	x := pred.Val()

	sp, err := gen(x, pred.Cov())
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to generate sigma points")
	}

	// observe all sigma point outputs
	Y, err := sp.Transform(m.Observe)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to observe sigma point outputs")
	}

	var diff sigma.Diff
	if rm, ok := m.(filter.ResidualModel); ok {
		diff = rm.Residual
	}

	yMean := sigma.ResidualMean(Y, Y.ColView(0), sp.W, diff)

	var xRef, yRef mat.Vector = x, yMean
	if central(sp) {
		xRef, yRef = sp.X.ColView(0), Y.ColView(0)
	}

	Dy := sigma.Deviations(Y, yRef, diff)

	s, err := gain.AddNoise(sigma.DevCov(Dy, sp.W), r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid measurement noise")
	}

	pxy := sigma.DevCrossCov(sigma.Deviations(sp.X, xRef, nil), Dy, sp.W)

	est, inn, err := gain.Correct(pred, z, gain.Align(m, z, yMean), pxy, s, maxCond)
	if err != nil {
		return nil, nil, err
	}

	if !matrix.IsPSD(est.Cov(), matrix.SymTol) {
		return nil, nil, errors.Wrap(filter.ErrInvalidCovariance, "corrected covariance")
	}

	return est, inn, nil
}

// central reports whether covariances of sp must be accumulated about its central point
func central(sp *sigma.Points) bool {
	return len(sp.W) > 0 && sp.W[0] < 0
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
