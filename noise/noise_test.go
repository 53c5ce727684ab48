package noise

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	filter "github.com/vse-go/go-filter"
	"gonum.org/v1/gonum/mat"
)

func TestFromCov(t *testing.T) {
	assert := assert.New(t)

	n, err := FromCov(mat.NewSymDense(2, []float64{1, 0, 0, 2}), 1)
	assert.NoError(err)
	assert.IsType(&Gaussian{}, n)
	assert.Equal([]float64{0, 0}, n.Mean())
	assert.Equal(2.0, n.Cov().At(1, 1))

	n, err = FromCov(mat.NewSymDense(3, nil), 1)
	assert.NoError(err)
	assert.IsType(&Zero{}, n)
	assert.Equal(3, n.Cov().SymmetricDim())

	n, err = FromCov(nil, 1)
	assert.NoError(err)
	assert.IsType(&None{}, n)

	// singular covariance
	n, err = FromCov(mat.NewSymDense(2, []float64{1, 1, 1, 1}), 1)
	assert.NoError(err)
	s := n.Sample()
	assert.InDelta(s.AtVec(0), s.AtVec(1), 1e-6)

	// indefinite covariance
	n, err = FromCov(mat.NewSymDense(2, []float64{1, 2, 2, 1}), 1)
	assert.Nil(n)
	assert.True(errors.Is(err, filter.ErrInvalidCovariance))
}
