package gain

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/estimate"
	"github.com/vse-go/go-filter/model"
	"gonum.org/v1/gonum/mat"
)

func TestCompute(t *testing.T) {
	assert := assert.New(t)

	pxy := mat.NewDense(2, 1, []float64{2, 1})
	s := mat.NewSymDense(1, []float64{4})

	k, err := Compute(pxy, s, 0)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0.5, 0.25}, mat.Col(nil, 0, k), 1e-12)

	// not positive definite
	k, err = Compute(pxy, mat.NewSymDense(1, []float64{0}), 0)
	assert.Nil(k)
	assert.True(errors.Is(err, filter.ErrSingularInnovationCovariance))

	// ill conditioned
	k, err = Compute(mat.NewDense(2, 2, nil), mat.NewSymDense(2, []float64{1, 0, 0, 1e-14}), 0)
	assert.Nil(k)
	assert.True(errors.Is(err, filter.ErrSingularInnovationCovariance))

	// dimension mismatch
	k, err = Compute(pxy, mat.NewSymDense(2, nil), 0)
	assert.Nil(k)
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))
}

func TestCorrect(t *testing.T) {
	assert := assert.New(t)

	pred, err := estimate.NewBaseWithCov(mat.NewVecDense(2, []float64{1, 2}), mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1}))
	assert.NoError(err)

	h := mat.NewDense(1, 2, []float64{1, 0})
	r := mat.NewSymDense(1, []float64{0.5})
	z := mat.NewVecDense(1, []float64{2})
	y := mat.NewVecDense(1, []float64{1})

	joseph, jInn, err := CorrectJoseph(pred, z, y, h, r, 0)
	assert.NoError(err)

	// S = 2.5, Pxy = [2 0.5]'
	pxy := mat.NewDense(2, 1, []float64{2, 0.5})
	s := mat.NewSymDense(1, []float64{2.5})
	est, inn, err := Correct(pred, z, y, pxy, s, 0)
	assert.NoError(err)

	assert.InDelta(2.5, jInn.Cov.At(0, 0), 1e-12)
	assert.True(mat.EqualApprox(inn.Gain, jInn.Gain, 1e-12))
	assert.True(mat.EqualApprox(est.Val(), joseph.Val(), 1e-12))
	assert.True(mat.EqualApprox(est.Cov(), joseph.Cov(), 1e-12))
	assert.InDeltaSlice([]float64{1.8, 2.2}, mat.Col(nil, 0, est.Val()), 1e-12)

	nis, err := inn.NIS()
	assert.NoError(err)
	assert.InDelta(0.4, nis, 1e-12)

	// invalid measurement
	est, inn, err = Correct(pred, mat.NewVecDense(2, nil), y, pxy, s, 0)
	assert.Nil(est)
	assert.Nil(inn)
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))

	// invalid observation matrix
	est, _, err = CorrectJoseph(pred, z, y, mat.NewDense(1, 3, nil), r, 0)
	assert.Nil(est)
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))
}

func TestAddNoise(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(2, 2, []float64{1, 2, 2, 1})

	s, err := AddNoise(m, nil)
	assert.NoError(err)
	assert.True(mat.Equal(m, s))

	s, err = AddNoise(m, &mat.SymDense{})
	assert.NoError(err)
	assert.True(mat.Equal(m, s))

	s, err = AddNoise(m, mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	assert.NoError(err)
	assert.True(mat.Equal(mat.NewDense(2, 2, []float64{2, 2, 2, 2}), s))

	s, err = AddNoise(m, mat.NewSymDense(3, nil))
	assert.Nil(s)
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))
}

func TestAlign(t *testing.T) {
	assert := assert.New(t)

	rb, err := model.RangeBearing(4)
	assert.NoError(err)

	z := mat.NewVecDense(2, []float64{10, -math.Pi + 0.01})
	y := mat.NewVecDense(2, []float64{9, math.Pi - 0.01})

	aligned := Align(rb, z, y)
	inn := &mat.VecDense{}
	inn.SubVec(z, aligned)
	assert.InDeltaSlice([]float64{1, 0.02}, inn.RawVector().Data, 1e-12)

	// linear models subtract element-wise
	pos, err := model.Position(4)
	assert.NoError(err)
	assert.Equal(y, Align(pos, z, y))

	// mismatched measurement is left for the gain to reject
	assert.Equal(y, Align(rb, mat.NewVecDense(3, nil), y))
}
