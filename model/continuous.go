package model

import (
	"math"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"gonum.org/v1/gonum/mat"
)

// Discretize returns the discrete-time linear model of the continuous-time system
//
//	dx/dt = F*x + G*u
//
// sampled with period T under zero-order hold on u:
//
//	A = exp(F*T)
//	B = integrate(exp(F*t)dt, 0, T) * G
//
// Both are read off the exponential of the augmented matrix [F G; 0 0]*T
// which stays exact when F is singular. G may be nil if the system has no control input.
func Discretize(F, G mat.Matrix, T float64) (*Linear, error) {
	if T <= 0 || math.IsNaN(T) || math.IsInf(T, 0) {
		return nil, errors.Errorf("invalid sampling period: %v", T)
	}

	if F == nil {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "system matrix must be defined for a model")
	}

	nx, c := F.Dims()
	if nx != c || nx == 0 {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "invalid system matrix dimensions: [%d x %d]", nx, c)
	}

	nu := 0
	if G != nil {
		var gr int
		gr, nu = G.Dims()
		if gr != nx {
			return nil, errors.Wrapf(filter.ErrDimensionMismatch, "invalid control matrix dimensions: [%d x %d]", gr, nu)
		}
	}

	n := nx + nu
	aug := mat.NewDense(n, n, nil)
	aug.Slice(0, nx, 0, nx).(*mat.Dense).Scale(T, F)
	if nu > 0 {
		aug.Slice(0, nx, nx, n).(*mat.Dense).Scale(T, G)
	}

	exp := &mat.Dense{}
	exp.Exp(aug)

	A := exp.Slice(0, nx, 0, nx)
	if nu == 0 {
		return NewLinear(A, nil)
	}

	return NewLinear(A, exp.Slice(0, nx, nx, n))
}
