package estimate

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	filter "github.com/vse-go/go-filter"
	"gonum.org/v1/gonum/mat"
)

func TestNewBase(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 1.0})
	cov := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})

	b, err := NewBase(state)
	assert.NotNil(b)
	assert.NoError(err)
	assert.Equal(2, b.Cov().SymmetricDim())

	b, err = NewBase(nil)
	assert.Nil(b)
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))

	b, err = NewBaseWithCov(state, cov)
	assert.NotNil(b)
	assert.NoError(err)

	b, err = NewBaseWithCov(state, mat.NewSymDense(1, []float64{1.0}))
	assert.Nil(b)
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))

	b, err = NewBaseWithCov(state, mat.NewDense(2, 3, nil))
	assert.Nil(b)
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))

	b, err = NewBaseWithCov(state, mat.NewDense(2, 2, []float64{1, 0.5, 0, 1}))
	assert.Nil(b)
	assert.True(errors.Is(err, filter.ErrInvalidCovariance))
}

func TestValCov(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{1.0, 2.0, 2.0, 4.0})

	b, err := NewBaseWithCov(state, cov)
	assert.NotNil(b)
	assert.NoError(err)

	v := b.Val()
	for i := 0; i < state.Len(); i++ {
		assert.Equal(state.AtVec(i), v.AtVec(i))
	}

	r, c := b.Cov().Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.Equal(cov.At(i, j), b.Cov().At(i, j))
		}
	}

	// estimates are immutable: modifying returned values or inputs has no effect
	v.(*mat.VecDense).SetVec(0, 100.0)
	state.SetVec(1, 200.0)
	cov.SetSym(0, 0, 300.0)
	assert.Equal(1.0, b.Val().AtVec(0))
	assert.Equal(2.0, b.Val().AtVec(1))
	assert.Equal(1.0, b.Cov().At(0, 0))
}

func TestString(t *testing.T) {
	assert := assert.New(t)

	b, err := NewBaseWithCov(mat.NewVecDense(2, []float64{1, 2}), mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	assert.NoError(err)
	assert.Contains(b.String(), "Val=")
	assert.Contains(b.String(), "Cov=")
}

func TestInnovationNIS(t *testing.T) {
	assert := assert.New(t)

	inn := &Innovation{
		Residual: mat.NewVecDense(2, []float64{1, 2}),
		Cov:      mat.NewSymDense(2, []float64{2, 0, 0, 4}),
	}

	nis, err := inn.NIS()
	assert.NoError(err)
	// 1/2 + 4/4
	assert.InDelta(1.5, nis, 1e-12)

	inn.Cov = mat.NewSymDense(2, nil)
	_, err = inn.NIS()
	assert.Error(err)
}

func TestInnovationLogLikelihood(t *testing.T) {
	assert := assert.New(t)

	inn := &Innovation{
		Residual: mat.NewVecDense(2, []float64{1, 2}),
		Cov:      mat.NewSymDense(2, []float64{2, 0, 0, 4}),
	}

	ll, err := inn.LogLikelihood()
	assert.NoError(err)
	// -log(2*pi) - log(det(S))/2 - NIS/2
	assert.InDelta(-math.Log(2*math.Pi)-math.Log(8)/2-0.75, ll, 1e-12)

	inn.Cov = mat.NewSymDense(2, nil)
	_, err = inn.LogLikelihood()
	assert.Error(err)
}
