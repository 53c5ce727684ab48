package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknownModel is returned when a motion model name is not in the catalogue
var ErrUnknownModel = errors.New("unknown motion model")

// Name is a motion model name
type Name int

const (
	// CV is constant velocity model: [px py vx vy]
	CV Name = iota
	// CA is constant acceleration model: [px py vx vy ax ay]
	CA
	// CT is coordinated turn model: [x y v theta omega]
	CT
	// CTRV is constant turn rate and velocity model: [x y v psi omega]
	CTRV
	// CTRA is constant turn rate and acceleration model: [x y v a psi omega]
	CTRA
)

// turnEps is the yaw rate below which turn models use straight line motion
const turnEps = 1e-6

type entry struct {
	name string
	dim  int
	new  func(dt float64) (filter.MotionModel, error)
}

var catalogue = map[Name]entry{
	CV:   {name: "CV", dim: 4, new: newCV},
	CA:   {name: "CA", dim: 6, new: newCA},
	CT:   {name: "CT", dim: 5, new: newCT},
	CTRV: {name: "CTRV", dim: 5, new: newCTRV},
	CTRA: {name: "CTRA", dim: 6, new: newCTRA},
}

// Names returns all motion model names in the catalogue
func Names() []Name {
	return []Name{CV, CA, CT, CTRV, CTRA}
}

// ParseName returns motion model name parsed from s. Parsing is case insensitive.
func ParseName(s string) (Name, error) {
	for n, e := range catalogue {
		if strings.EqualFold(e.name, strings.TrimSpace(s)) {
			return n, nil
		}
	}

	return 0, errors.Wrapf(ErrUnknownModel, "%q", s)
}

// String implements the Stringer interface.
func (n Name) String() string {
	if e, ok := catalogue[n]; ok {
		return e.name
	}

	return "Name(" + strconv.Itoa(int(n)) + ")"
}

// StateDim returns state dimension of the named model
func (n Name) StateDim() int {
	return catalogue[n].dim
}

// New returns motion model n discretized with sampling period dt.
// It returns error if n is unknown or dt is not positive.
func New(n Name, dt float64) (filter.MotionModel, error) {
	e, ok := catalogue[n]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownModel, "%d", int(n))
	}

	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, errors.Errorf("invalid sampling period: %v", dt)
	}

	return e.new(dt)
}

func newCV(T float64) (filter.MotionModel, error) {
	// d[p v]/dt = [v 0]
	F := mat.NewDense(4, 4, []float64{
		0, 0, 1, 0,
		0, 0, 0, 1,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})

	return discretize(F, T)
}

func newCA(T float64) (filter.MotionModel, error) {
	// d[p v a]/dt = [v a 0]
	F := mat.NewDense(6, 6, []float64{
		0, 0, 1, 0, 0, 0,
		0, 0, 0, 1, 0, 0,
		0, 0, 0, 0, 1, 0,
		0, 0, 0, 0, 0, 1,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0,
	})

	return discretize(F, T)
}

// discretize returns control-free kinematic model with system matrix F sampled with period T
func discretize(F mat.Matrix, T float64) (filter.MotionModel, error) {
	l, err := Discretize(F, nil, T)
	if err != nil {
		return nil, err
	}

	return l, nil
}

func newCT(T float64) (filter.MotionModel, error) {
	f := func(x, _ mat.Vector) (mat.Vector, error) {
		v, th, om := x.AtVec(2), x.AtVec(3), x.AtVec(4)

		return mat.NewVecDense(5, []float64{
			x.AtVec(0) + T*v*math.Cos(th),
			x.AtVec(1) + T*v*math.Sin(th),
			v,
			th + T*om,
			om,
		}), nil
	}

	jac := func(x, _ mat.Vector) (mat.Matrix, error) {
		v, th := x.AtVec(2), x.AtVec(3)
		s, c := math.Sincos(th)

		return mat.NewDense(5, 5, []float64{
			1, 0, T * c, -T * v * s, 0,
			0, 1, T * s, T * v * c, 0,
			0, 0, 1, 0, 0,
			0, 0, 0, 1, T,
			0, 0, 0, 0, 1,
		}), nil
	}

	return NewMotion(5, 0, f, jac)
}

func newCTRV(T float64) (filter.MotionModel, error) {
	f := func(x, _ mat.Vector) (mat.Vector, error) {
		px, py, v, psi, om := x.AtVec(0), x.AtVec(1), x.AtVec(2), x.AtVec(3), x.AtVec(4)

		psiNext := psi + om*T
		if math.Abs(om) < turnEps {
			px += v * T * math.Cos(psi)
			py += v * T * math.Sin(psi)
		} else {
			px += v / om * (math.Sin(psiNext) - math.Sin(psi))
			py += v / om * (math.Cos(psi) - math.Cos(psiNext))
		}

		return mat.NewVecDense(5, []float64{px, py, v, psiNext, om}), nil
	}

	return NewMotion(5, 0, f, nil)
}

func newCTRA(T float64) (filter.MotionModel, error) {
	f := func(x, _ mat.Vector) (mat.Vector, error) {
		px, py := x.AtVec(0), x.AtVec(1)
		v, a, psi, om := x.AtVec(2), x.AtVec(3), x.AtVec(4), x.AtVec(5)

		vNext := v + a*T
		psiNext := psi + om*T
		if math.Abs(om) < turnEps {
			d := v*T + 0.5*a*T*T
			px += d * math.Cos(psi)
			py += d * math.Sin(psi)
		} else {
			s0, c0 := math.Sincos(psi)
			s1, c1 := math.Sincos(psiNext)
			om2 := om * om
			px += (vNext*om*s1 + a*c1 - v*om*s0 - a*c0) / om2
			py += (-vNext*om*c1 + a*s1 + v*om*c0 - a*s0) / om2
		}

		return mat.NewVecDense(6, []float64{px, py, vNext, a, psiNext, om}), nil
	}

	return NewMotion(6, 0, f, nil)
}
