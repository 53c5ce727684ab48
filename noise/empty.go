package noise

import (
	"fmt"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"gonum.org/v1/gonum/mat"
)

// None is the absence of noise: its mean and covariance have no elements.
// Filters skip adding None covariance regardless of the model dimensions.
type None struct{}

// NewNone returns None noise
func NewNone() (*None, error) {
	return &None{}, nil
}

// Sample returns an empty vector
func (*None) Sample() mat.Vector { return &mat.VecDense{} }

// Cov returns an empty covariance matrix
func (*None) Cov() mat.Symmetric { return &mat.SymDense{} }

// Mean returns nil
func (*None) Mean() []float64 { return nil }

// Reset is a no-op
func (*None) Reset() error { return nil }

// String implements the Stringer interface.
func (*None) String() string {
	return "None{}"
}

// Zero is noise of a fixed dimension whose samples are always zero.
// Unlike None its covariance has the noise dimension so it is checked against the model.
type Zero struct {
	n int
}

// NewZero returns n-dimensional Zero noise.
// It returns filter.ErrDimensionMismatch if n is not positive.
func NewZero(n int) (*Zero, error) {
	if n <= 0 {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "invalid noise dimension: %d", n)
	}

	return &Zero{n: n}, nil
}

// Sample returns zero vector
func (z *Zero) Sample() mat.Vector { return mat.NewVecDense(z.n, nil) }

// Cov returns zero covariance matrix
func (z *Zero) Cov() mat.Symmetric { return mat.NewSymDense(z.n, nil) }

// Mean returns zero mean
func (z *Zero) Mean() []float64 { return make([]float64, z.n) }

// Reset is a no-op
func (*Zero) Reset() error { return nil }

// String implements the Stringer interface.
func (z *Zero) String() string {
	return fmt.Sprintf("Zero{%d}", z.n)
}
