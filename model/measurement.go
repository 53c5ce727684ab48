package model

import (
	"math"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"gonum.org/v1/gonum/mat"
)

// Position returns linear measurement model observing the planar position
// stored in the first two elements of an nx-dimensional state.
func Position(nx int) (*LinearOutput, error) {
	if nx < 2 {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "position measurement needs at least 2 states: %d", nx)
	}

	H := mat.NewDense(2, nx, nil)
	H.Set(0, 0, 1.0)
	H.Set(1, 1, 1.0)

	return NewLinearOutput(H)
}

// RangeBearing returns nonlinear measurement model observing range and bearing
// of the planar position stored in the first two elements of an nx-dimensional state
// from a sensor placed at the origin.
func RangeBearing(nx int) (*Measurement, error) {
	return RangeBearingAt(nx, 0, 0)
}

// RangeBearingAt returns nonlinear measurement model observing range and bearing
// of the planar position stored in the first two elements of an nx-dimensional state
// from a sensor placed at (sx, sy). Bearing residuals are wrapped to [-pi, pi].
func RangeBearingAt(nx int, sx, sy float64) (*Measurement, error) {
	if nx < 2 {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "range-bearing measurement needs at least 2 states: %d", nx)
	}

	h := func(x mat.Vector) (mat.Vector, error) {
		dx, dy := x.AtVec(0)-sx, x.AtVec(1)-sy

		return mat.NewVecDense(2, []float64{math.Hypot(dx, dy), math.Atan2(dy, dx)}), nil
	}

	jac := func(x mat.Vector) (mat.Matrix, error) {
		dx, dy := x.AtVec(0)-sx, x.AtVec(1)-sy
		r2 := dx*dx + dy*dy
		if r2 == 0 {
			return nil, errors.New("range-bearing Jacobian undefined at sensor position")
		}
		r := math.Sqrt(r2)

		H := mat.NewDense(2, nx, nil)
		H.Set(0, 0, dx/r)
		H.Set(0, 1, dy/r)
		H.Set(1, 0, -dy/r2)
		H.Set(1, 1, dx/r2)

		return H, nil
	}

	res := func(a, b mat.Vector) *mat.VecDense {
		d := &mat.VecDense{}
		d.SubVec(a, b)
		d.SetVec(1, WrapAngle(d.AtVec(1)))

		return d
	}

	m, err := NewMeasurement(nx, 2, h, jac)
	if err != nil {
		return nil, err
	}

	return m.WithResidual(res), nil
}

// WrapAngle wraps angle a to [-pi, pi]
func WrapAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}
