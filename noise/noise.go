package noise

import (
	filter "github.com/vse-go/go-filter"
	"gonum.org/v1/gonum/mat"
)

// FromCov returns zero-mean noise with covariance cov seeded with seed.
// Nil cov gives None noise, all-zero cov gives Zero noise and any other cov gives Gaussian noise which requires cov to be positive semi-definite.
func FromCov(cov mat.Symmetric, seed uint64) (filter.Noise, error) {
	if cov == nil || cov.SymmetricDim() == 0 {
		return &None{}, nil
	}

	n := cov.SymmetricDim()
	if mat.Norm(cov, 1) == 0 {
		z, err := NewZero(n)
		if err != nil {
			return nil, err
		}
		return z, nil
	}

	g, err := NewGaussianWithSeed(make([]float64, n), cov, seed)
	if err != nil {
		return nil, err
	}

	return g, nil
}
