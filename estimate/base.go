package estimate

import (
	"fmt"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/matrix"
	"gonum.org/v1/gonum/mat"
)

// Base is a Gaussian estimate: mean value and its covariance
type Base struct {
	// val is estimated value
	val *mat.VecDense
	// cov is estimated covariance
	cov *mat.SymDense
}

// NewBase returns base estimate given val and zero covariance
func NewBase(val mat.Vector) (*Base, error) {
	if val == nil {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "nil estimate value")
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := mat.NewSymDense(v.Len(), nil)

	return &Base{
		val: v,
		cov: c,
	}, nil
}

// NewBaseWithCov returns base estimate given value and covariance.
// It returns error if the covariance dimension does not match the value or if cov is not symmetric.
func NewBaseWithCov(val mat.Vector, cov mat.Matrix) (*Base, error) {
	if val == nil || cov == nil {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "nil estimate value or covariance")
	}

	rv := val.Len()
	rc, cc := cov.Dims()
	if rv != rc || rc != cc {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "val: %d, cov: %d x %d", rv, rc, cc)
	}

	if !matrix.IsSymmetric(cov, matrix.SymTol) {
		return nil, errors.Wrap(filter.ErrInvalidCovariance, "covariance not symmetric")
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	return &Base{
		val: v,
		cov: matrix.Symmetrize(cov),
	}, nil
}

// Val returns estimated value
func (b *Base) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(b.val)

	return v
}

// Cov returns covariance estimate
func (b *Base) Cov() mat.Symmetric {
	cov := mat.NewSymDense(b.cov.SymmetricDim(), nil)
	cov.CopySym(b.cov)

	return cov
}

// String implements the Stringer interface.
func (b *Base) String() string {
	return fmt.Sprintf("Base{\nVal=%v\nCov=%v\n}", mat.Formatted(b.val.T(), mat.Squeeze()),
		mat.Formatted(b.cov, mat.Prefix("    "), mat.Squeeze()))
}
