package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestRowSums(t *testing.T) {
	assert := assert.New(t)

	data := []float64{1.2, 3.4, 4.5, 6.7, 8.9, 10.0}
	rowSums := []float64{4.6, 11.2, 18.9}
	delta := 0.001

	m := mat.NewDense(3, 2, data)
	assert.NotNil(m)

	// check rows
	resRows := RowSums(m)
	assert.NotNil(resRows)
	assert.InDeltaSlice(rowSums, resRows, delta)
	// should panic
	assert.Panics(func() { RowSums(nil) })
}

func TestIsSymmetric(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		m   mat.Matrix
		sym bool
	}{
		{mat.NewDense(2, 2, []float64{1, 2, 2, 1}), true},
		{mat.NewDense(2, 2, []float64{1, 2, 2.1, 1}), false},
		{mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}), false},
		{mat.NewDense(2, 2, []float64{1e6, 1e6 + 1e-4, 1e6, 1}), true},
	} {
		assert.Equal(test.sym, IsSymmetric(test.m, SymTol))
	}
}

func TestSymmetrize(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(2, 2, []float64{1, 2, 4, 3})
	s := Symmetrize(m)
	assert.Equal(2, s.SymmetricDim())
	assert.InDelta(3.0, s.At(0, 1), 1e-12)
	assert.InDelta(3.0, s.At(1, 0), 1e-12)
	assert.InDelta(1.0, s.At(0, 0), 1e-12)

	assert.Panics(func() { Symmetrize(mat.NewDense(2, 3, nil)) })
}

func TestIsPSD(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsPSD(mat.NewSymDense(2, []float64{2, 1, 1, 2}), SymTol))
	// singular but PSD
	assert.True(IsPSD(mat.NewSymDense(2, []float64{1, 1, 1, 1}), SymTol))
	assert.True(IsPSD(mat.NewSymDense(3, nil), SymTol))
	// indefinite
	assert.False(IsPSD(mat.NewSymDense(2, []float64{1, 2, 2, 1}), SymTol))
}

func TestEye(t *testing.T) {
	assert := assert.New(t)

	eye := Eye(3)
	r, c := eye.Dims()
	assert.Equal(3, r)
	assert.Equal(3, c)
	assert.Equal(3.0, mat.Trace(eye))
}
