package noise

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	filter "github.com/vse-go/go-filter"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestNewGaussian(t *testing.T) {
	assert := assert.New(t)
	for _, test := range []struct {
		mean []float64
		cov  *mat.SymDense
		err  error
	}{
		{
			mean: []float64{2, 3},
			cov:  mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}),
		},
		{
			mean: []float64{2, 3, 4},
			cov:  mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}),
			err:  filter.ErrDimensionMismatch,
		},
		{
			mean: []float64{0, 0},
			cov:  mat.NewSymDense(2, []float64{1, 1, 1, 1}),
		},
		{
			mean: []float64{0, 0},
			cov:  mat.NewSymDense(2, []float64{1, 2, 2, 1}),
			err:  filter.ErrInvalidCovariance,
		},
		{
			mean: []float64{0},
			cov:  nil,
			err:  filter.ErrDimensionMismatch,
		},
	} {
		g, err := NewGaussian(test.mean, test.cov)
		if test.err != nil {
			assert.Nil(g)
			assert.True(errors.Is(err, test.err))
			continue
		}
		assert.NotNil(g)
		assert.NoError(err)
	}
}

func TestGaussianMeanCov(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NotNil(g)
	assert.NoError(err)

	gCov := g.Cov()
	assert.Equal(cov.SymmetricDim(), gCov.SymmetricDim())
	assert.True(mat.Equal(cov, gCov))

	gMean := g.Mean()
	assert.EqualValues(mean, gMean)

	// returned values are copies
	gMean[0] = 100
	assert.EqualValues(mean, g.Mean())
}

func TestGaussianSample(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, -3}
	cov := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 2})

	g, err := NewGaussianWithSeed(mean, cov, 42)
	assert.NotNil(g)
	assert.NoError(err)

	n := 20000
	samples := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		s := g.Sample()
		assert.Equal(2, s.Len())
		samples.Set(i, 0, s.AtVec(0))
		samples.Set(i, 1, s.AtVec(1))
	}

	assert.InDelta(mean[0], stat.Mean(mat.Col(nil, 0, samples), nil), 0.05)
	assert.InDelta(mean[1], stat.Mean(mat.Col(nil, 1, samples), nil), 0.05)

	sc := &mat.SymDense{}
	stat.CovarianceMatrix(sc, samples, nil)
	assert.True(mat.EqualApprox(cov, sc, 0.1))
}

func TestGaussianSeed(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{0, 0}
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	g1, err := NewGaussianWithSeed(mean, cov, 7)
	assert.NoError(err)
	g2, err := NewGaussianWithSeed(mean, cov, 7)
	assert.NoError(err)

	assert.True(mat.Equal(g1.Sample(), g2.Sample()))
}

func TestGaussianReset(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussianWithSeed(mean, cov, 3)
	assert.NoError(err)

	first := mat.VecDenseCopyOf(g.Sample())
	second := mat.VecDenseCopyOf(g.Sample())
	assert.False(mat.Equal(first, second))

	assert.NoError(g.Reset())
	assert.True(mat.Equal(first, g.Sample()))
}

func TestGaussianSingular(t *testing.T) {
	assert := assert.New(t)

	// position is driven only through velocity
	cov := mat.NewSymDense(2, []float64{0.25, 0.5, 0.5, 1})

	g, err := NewGaussianWithSeed([]float64{1, 1}, cov, 5)
	assert.NoError(err)

	for i := 0; i < 100; i++ {
		s := g.Sample()
		assert.InDelta(2*(s.AtVec(0)-1), s.AtVec(1)-1, 1e-6)
	}
}

func TestGaussianWithRand(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{0, 0}
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	rng := rand.New(rand.NewSource(9))
	g1, err := NewGaussianWithRand(mean, cov, rng)
	assert.NoError(err)
	g2, err := NewGaussianWithRand(mean, cov, rng)
	assert.NoError(err)

	// both draw from the same stream
	assert.False(mat.Equal(g1.Sample(), g2.Sample()))

	s := mat.VecDenseCopyOf(g1.Sample())
	assert.NoError(g1.Reset())
	assert.False(mat.Equal(s, g1.Sample()))
}

func TestGaussianString(t *testing.T) {
	assert := assert.New(t)

	str := `Gaussian{
Mean=[2 3]
Cov=⎡  1  0.1⎤
    ⎣0.1    1⎦
}`
	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NotNil(g)
	assert.NoError(err)
	assert.Equal(str, g.String())
}
