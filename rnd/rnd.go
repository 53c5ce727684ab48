package rnd

import (
	"math"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/matrix"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Root returns a matrix R such that R*R^T = cov.
// It uses SVD instead of Cholesky as Cholesky fails when cov is (almost) singular.
// It fails with error if cov is not positive semi-definite or if SVD factorization of cov fails.
func Root(cov mat.Symmetric) (*mat.Dense, error) {
	if !matrix.IsPSD(cov, matrix.SymTol) {
		return nil, errors.Wrap(filter.ErrInvalidCovariance, "sampling covariance")
	}

	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return nil, errors.Wrap(filter.ErrInvalidCovariance, "SVD factorization failed")
	}

	U := new(mat.Dense)
	svd.UTo(U)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(math.Max(vals[i], 0))
	}
	U.Mul(U, mat.NewDiagDense(len(vals), vals))

	return U, nil
}

// WithRootN draws n random samples from a zero-mean Normal (aka Gaussian) distribution with covariance root*root^T
// using random number generator rng. It returns matrix which contains the randomly generated samples stored in its columns.
// It panics if n is not positive.
func WithRootN(rng *rand.Rand, root mat.Matrix, n int) *mat.Dense {
	rows, cols := root.Dims()
	data := make([]float64, cols*n)
	for i := range data {
		data[i] = rng.NormFloat64()
	}

	samples := mat.NewDense(rows, n, nil)
	samples.Mul(root, mat.NewDense(cols, n, data))

	return samples
}
