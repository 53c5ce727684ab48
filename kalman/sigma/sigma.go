package sigma

import (
	"math"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/matrix"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Points stores sigma points and their weights
type Points struct {
	// X stores sigma point vectors in columns
	X *mat.Dense
	// W stores sigma point weights: W[i] is the weight of i-th column of X
	W []float64
}

// Generator generates sigma points which match the first two moments of a Gaussian with mean x and covariance cov
type Generator func(x mat.Vector, cov mat.Symmetric) (*Points, error)

// Unscented generates 2n+1 unscented sigma points for Gaussian with mean x and covariance cov.
// The central point is weighted by w0 = 1 - n/3 and the remaining 2n points
// placed at x +/- sqrt(n/(1-w0))*S[:,i] share the rest of the weight equally,
// where S*S' = cov.
// It returns error if x and cov dimensions disagree or cov is not positive semi-definite.
func Unscented(x mat.Vector, cov mat.Symmetric) (*Points, error) {
	n, err := checkDims(x, cov)
	if err != nil {
		return nil, err
	}

	sqrt, err := Sqrt(cov)
	if err != nil {
		return nil, err
	}

	nf := float64(n)
	w0 := 1 - nf/3
	scale := math.Sqrt(nf / (1 - w0))

	X := mat.NewDense(n, 2*n+1, nil)
	X.SetCol(0, mat.Col(nil, 0, x))
	spread(X, 1, x, sqrt, scale)

	W := make([]float64, 2*n+1)
	W[0] = w0
	for i := 1; i < len(W); i++ {
		W[i] = (1 - w0) / (2 * nf)
	}

	return &Points{X: X, W: W}, nil
}

// Cubature generates 2n cubature points for Gaussian with mean x and covariance cov
// placed at x +/- sqrt(n)*S[:,i], each weighted 1/(2n), where S*S' = cov.
// It returns error if x and cov dimensions disagree or cov is not positive semi-definite.
func Cubature(x mat.Vector, cov mat.Symmetric) (*Points, error) {
	n, err := checkDims(x, cov)
	if err != nil {
		return nil, err
	}

	sqrt, err := Sqrt(cov)
	if err != nil {
		return nil, err
	}

	nf := float64(n)

	X := mat.NewDense(n, 2*n, nil)
	spread(X, 0, x, sqrt, math.Sqrt(nf))

	W := make([]float64, 2*n)
	for i := range W {
		W[i] = 1 / (2 * nf)
	}

	return &Points{X: X, W: W}, nil
}

// spread stores x +/- scale*sqrt[:,i] in columns of X starting at column off:
// positive points first, negative points second.
func spread(X *mat.Dense, off int, x mat.Vector, sqrt *mat.Dense, scale float64) {
	n := x.Len()
	col := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		col.AddScaledVec(x, scale, sqrt.ColView(i))
		X.SetCol(off+i, col.RawVector().Data)

		col.AddScaledVec(x, -scale, sqrt.ColView(i))
		X.SetCol(off+n+i, col.RawVector().Data)
	}
}

// Sqrt returns matrix square root S of cov such that S*S' = cov.
// It uses Cholesky factorization and falls back to eigen decomposition
// when cov is positive semi-definite but singular.
// It returns error if cov is not symmetric positive semi-definite.
func Sqrt(cov mat.Symmetric) (*mat.Dense, error) {
	if cov == nil {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "nil covariance")
	}

	if !matrix.IsSymmetric(cov, matrix.SymTol) {
		return nil, errors.Wrap(filter.ErrInvalidCovariance, "covariance not symmetric")
	}

	n := cov.SymmetricDim()
	if n == 0 {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "zero size covariance")
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); ok {
		L := mat.NewTriDense(n, mat.Lower, nil)
		chol.LTo(L)

		return mat.DenseCopyOf(L), nil
	}

	var es mat.EigenSym
	if ok := es.Factorize(cov, true); !ok {
		return nil, errors.Wrap(filter.ErrInvalidCovariance, "eigen decomposition failed")
	}

	vals := es.Values(nil)
	tol := matrix.SymTol * math.Max(1, floats.Max(vals))
	for i, v := range vals {
		if v < -tol {
			return nil, errors.Wrapf(filter.ErrInvalidCovariance, "negative eigenvalue: %v", v)
		}
		vals[i] = math.Sqrt(math.Max(v, 0))
	}

	S := &mat.Dense{}
	es.VectorsTo(S)
	S.Mul(S, mat.NewDiagDense(n, vals))

	return S, nil
}

// Len returns the number of sigma points
func (p *Points) Len() int {
	return len(p.W)
}

// Mean returns weighted mean of the sigma points
func (p *Points) Mean() *mat.VecDense {
	return WeightedMean(p.X, p.W)
}

// Cov returns weighted covariance of the sigma points around mean
func (p *Points) Cov(mean mat.Vector) *mat.SymDense {
	return WeightedCov(p.X, mean, p.W)
}

// Transform applies fn to every sigma point and returns the transformed points stored in columns.
// It returns error if fn fails or returns vectors of inconsistent length.
func (p *Points) Transform(fn func(mat.Vector) (mat.Vector, error)) (*mat.Dense, error) {
	var Y *mat.Dense

	_, cols := p.X.Dims()
	for c := 0; c < cols; c++ {
		y, err := fn(p.X.ColView(c))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform sigma point %d", c)
		}

		if Y == nil {
			Y = mat.NewDense(y.Len(), cols, nil)
		}

		if r, _ := Y.Dims(); r != y.Len() {
			return nil, errors.Wrapf(filter.ErrDimensionMismatch, "sigma point %d: %d != %d", c, y.Len(), r)
		}

		Y.SetCol(c, mat.Col(nil, 0, y))
	}

	return Y, nil
}

// WeightedMean returns the sum of columns of X weighted by w
func WeightedMean(X *mat.Dense, w []float64) *mat.VecDense {
	scaled := mat.DenseCopyOf(X)
	scaled.Apply(func(_, j int, v float64) float64 {
		return w[j] * v
	}, scaled)

	sums := matrix.RowSums(scaled)

	return mat.NewVecDense(len(sums), sums)
}

// Diff returns the difference a - b of two points
type Diff func(a, b mat.Vector) *mat.VecDense

// ResidualMean returns the weighted mean of columns of X accumulated as residuals about ref:
//
//	mean = ref + sum(w[i] * diff(X[:,i], ref))
//
// which equals WeightedMean for nil diff as the weights sum to one.
func ResidualMean(X *mat.Dense, ref mat.Vector, w []float64, diff Diff) *mat.VecDense {
	D := Deviations(X, ref, diff)

	mean := mat.VecDenseCopyOf(ref)
	mean.AddVec(mean, WeightedMean(D, w))

	return mean
}

// Deviations returns matrix whose columns are diff(X[:,i], ref).
// nil diff subtracts element-wise.
func Deviations(X *mat.Dense, ref mat.Vector, diff Diff) *mat.Dense {
	rows, cols := X.Dims()

	D := mat.NewDense(rows, cols, nil)
	d := mat.NewVecDense(rows, nil)
	for c := 0; c < cols; c++ {
		if diff != nil {
			D.SetCol(c, diff(X.ColView(c), ref).RawVector().Data)
			continue
		}
		d.SubVec(X.ColView(c), ref)
		D.SetCol(c, d.RawVector().Data)
	}

	return D
}

// WeightedCov returns sum of outer products of (X[:,i] - mean) weighted by w
func WeightedCov(X *mat.Dense, mean mat.Vector, w []float64) *mat.SymDense {
	return DevCov(Deviations(X, mean, nil), w)
}

// CrossCov returns sum of outer products (X[:,i] - xMean)(Y[:,i] - yMean)' weighted by w
func CrossCov(X *mat.Dense, xMean mat.Vector, Y *mat.Dense, yMean mat.Vector, w []float64) *mat.Dense {
	return DevCrossCov(Deviations(X, xMean, nil), Deviations(Y, yMean, nil), w)
}

// DevCov returns sum of outer products of deviations D[:,i] weighted by w
func DevCov(D *mat.Dense, w []float64) *mat.SymDense {
	rows, cols := D.Dims()

	cov := mat.NewSymDense(rows, nil)
	for c := 0; c < cols; c++ {
		cov.SymRankOne(cov, w[c], D.ColView(c))
	}

	return cov
}

// DevCrossCov returns sum of outer products Dx[:,i]*Dy[:,i]' weighted by w
func DevCrossCov(Dx, Dy *mat.Dense, w []float64) *mat.Dense {
	rx, cols := Dx.Dims()
	ry, _ := Dy.Dims()

	cov := mat.NewDense(rx, ry, nil)
	outer := mat.NewDense(rx, ry, nil)
	for c := 0; c < cols; c++ {
		outer.Outer(w[c], Dx.ColView(c), Dy.ColView(c))
		cov.Add(cov, outer)
	}

	return cov
}

func checkDims(x mat.Vector, cov mat.Symmetric) (int, error) {
	if x == nil || cov == nil {
		return 0, errors.Wrap(filter.ErrDimensionMismatch, "nil mean or covariance")
	}

	n := x.Len()
	if n == 0 || n != cov.SymmetricDim() {
		return 0, errors.Wrapf(filter.ErrDimensionMismatch, "mean: %d, cov: %d", n, cov.SymmetricDim())
	}

	return n, nil
}
