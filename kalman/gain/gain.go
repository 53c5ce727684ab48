package gain

import (
	"math"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/estimate"
	"github.com/vse-go/go-filter/matrix"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxCond is the default condition number limit of innovation covariance
const DefaultMaxCond = 1e12

// Compute returns Kalman gain K = Pxy * inv(S).
// S is factorized using Cholesky factorization; if S is not positive definite
// or its condition number exceeds maxCond, Compute returns ErrSingularInnovationCovariance.
// Non-positive maxCond selects DefaultMaxCond.
func Compute(pxy mat.Matrix, s mat.Symmetric, maxCond float64) (*mat.Dense, error) {
	if maxCond <= 0 {
		maxCond = DefaultMaxCond
	}

	_, c := pxy.Dims()
	if c != s.SymmetricDim() {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "Pxy cols: %d, S: %d", c, s.SymmetricDim())
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(s); !ok {
		return nil, errors.Wrap(filter.ErrSingularInnovationCovariance, "S not positive definite")
	}

	if cond := chol.Cond(); math.IsNaN(cond) || cond > maxCond {
		return nil, errors.Wrapf(filter.ErrSingularInnovationCovariance, "S condition number: %g", cond)
	}

	// K' = inv(S) * Pxy' as S is symmetric
	kT := &mat.Dense{}
	if err := chol.SolveTo(kT, pxy.T()); err != nil {
		return nil, errors.Wrapf(filter.ErrSingularInnovationCovariance, "failed to solve for gain: %v", err)
	}

	k := &mat.Dense{}
	k.CloneFrom(kT.T())

	return k, nil
}

// Correct corrects predicted estimate pred given measurement z, predicted measurement y,
// state-measurement cross covariance pxy and innovation covariance s:
//
//	K = Pxy * inv(S)
//	x = x + K * (z - y)
//	P = P - K * S * K'
//
// It returns the corrected estimate and the innovation.
func Correct(pred filter.Estimate, z, y mat.Vector, pxy mat.Matrix, s mat.Symmetric, maxCond float64) (*estimate.Base, *estimate.Innovation, error) {
	k, inn, err := innovate(pred, z, y, pxy, s, maxCond)
	if err != nil {
		return nil, nil, err
	}

	ks := &mat.Dense{}
	ks.Mul(k, s)
	ksk := &mat.Dense{}
	ksk.Mul(ks, k.T())

	p := mat.DenseCopyOf(pred.Cov())
	p.Sub(p, ksk)

	return finish(pred, k, inn, s, p)
}

// CorrectJoseph corrects predicted estimate pred given measurement z, predicted measurement y,
// observation matrix h and measurement noise covariance r. The covariance is updated in Joseph form:
//
//	P = (I - K*H) * P * (I - K*H)' + K*R*K'
//
// which keeps P symmetric positive semi-definite under rounding. r may be nil if there is no measurement noise.
func CorrectJoseph(pred filter.Estimate, z, y mat.Vector, h mat.Matrix, r mat.Symmetric, maxCond float64) (*estimate.Base, *estimate.Innovation, error) {
	pPred := pred.Cov()
	nx := pPred.SymmetricDim()

	hr, hc := h.Dims()
	if hc != nx || hr != y.Len() {
		return nil, nil, errors.Wrapf(filter.ErrDimensionMismatch, "observation matrix: [%d x %d]", hr, hc)
	}

	// P*H'
	pxy := &mat.Dense{}
	pxy.Mul(pPred, h.T())

	// H*P*H' + R
	hph := &mat.Dense{}
	hph.Mul(h, pxy)
	s, err := AddNoise(hph, r)
	if err != nil {
		return nil, nil, err
	}

	k, inn, err := innovate(pred, z, y, pxy, s, maxCond)
	if err != nil {
		return nil, nil, err
	}

	return finish(pred, k, inn, s, Joseph(pPred, k, h, r))
}

// Joseph returns Joseph form covariance (I - K*H) * P * (I - K*H)' + K*R*K'.
// r may be nil if there is no measurement noise.
func Joseph(p mat.Symmetric, k, h mat.Matrix, r mat.Symmetric) *mat.Dense {
	nx := p.SymmetricDim()

	a := &mat.Dense{}
	// K*H
	a.Mul(k, h)
	// eye - K*H
	a.Sub(matrix.Eye(nx), a)

	ap := &mat.Dense{}
	ap.Mul(a, p)
	apa := &mat.Dense{}
	apa.Mul(ap, a.T())

	if r != nil && r.SymmetricDim() > 0 {
		kr := &mat.Dense{}
		kr.Mul(k, r)
		krk := &mat.Dense{}
		krk.Mul(kr, k.T())
		apa.Add(apa, krk)
	}

	return apa
}

// AddNoise returns symmetric matrix m + r. r may be nil in which case m is only symmetrized.
func AddNoise(m mat.Matrix, r mat.Symmetric) (*mat.SymDense, error) {
	s := matrix.Symmetrize(m)
	if r == nil || r.SymmetricDim() == 0 {
		return s, nil
	}

	if r.SymmetricDim() != s.SymmetricDim() {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "noise covariance: %d != %d", r.SymmetricDim(), s.SymmetricDim())
	}

	s.AddSym(s, r)

	return s, nil
}

// Align returns predicted measurement y shifted so that z - y equals the residual of z and y
// computed by m. It returns y unchanged if m is not a filter.ResidualModel or if z and y lengths differ.
func Align(m filter.MeasurementModel, z, y mat.Vector) mat.Vector {
	rm, ok := m.(filter.ResidualModel)
	if !ok || z == nil || z.Len() != y.Len() {
		return y
	}

	aligned := &mat.VecDense{}
	aligned.SubVec(z, rm.Residual(z, y))

	return aligned
}

func innovate(pred filter.Estimate, z, y mat.Vector, pxy mat.Matrix, s mat.Symmetric, maxCond float64) (*mat.Dense, *mat.VecDense, error) {
	if z == nil || z.Len() != y.Len() {
		return nil, nil, errors.Wrapf(filter.ErrDimensionMismatch, "invalid measurement supplied: expected %d", y.Len())
	}

	if r, _ := pxy.Dims(); r != pred.Val().Len() {
		return nil, nil, errors.Wrapf(filter.ErrDimensionMismatch, "Pxy rows: %d != %d", r, pred.Val().Len())
	}

	k, err := Compute(pxy, s, maxCond)
	if err != nil {
		return nil, nil, err
	}

	// innovation vector
	inn := &mat.VecDense{}
	inn.SubVec(z, y)

	return k, inn, nil
}

func finish(pred filter.Estimate, k *mat.Dense, inn *mat.VecDense, s mat.Symmetric, p mat.Matrix) (*estimate.Base, *estimate.Innovation, error) {
	// correct state x
	x := &mat.VecDense{}
	x.CloneFromVec(pred.Val())
	corr := &mat.VecDense{}
	corr.MulVec(k, inn)
	x.AddVec(x, corr)

	est, err := estimate.NewBaseWithCov(x, matrix.Symmetrize(p))
	if err != nil {
		return nil, nil, err
	}

	sCov := mat.NewSymDense(s.SymmetricDim(), nil)
	sCov.CopySym(s)

	return est, &estimate.Innovation{Residual: inn, Cov: sCov, Gain: k}, nil
}
