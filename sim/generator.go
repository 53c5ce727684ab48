package sim

import (
	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/noise"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Generator generates synthetic system states and measurements
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates new Generator whose random draws are seeded with seed
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// StateSample draws x ~ N(state.Val(), state.Cov()), propagates it through motion model m
// with control input u and adds process noise w ~ N(0, q):
//
//	x = f(x, u) + w
//
// u may be nil if m has no control input; q may be nil if there is no process noise.
func (g *Generator) StateSample(state filter.Estimate, m filter.MotionModel, u mat.Vector, q mat.Symmetric) (*mat.VecDense, error) {
	x, err := g.draw(state)
	if err != nil {
		return nil, err
	}

	return g.propagate(x, m, u, q)
}

// MeasurementSample draws x ~ N(state.Val(), state.Cov()), observes it through measurement model h
// and adds measurement noise v ~ N(0, r):
//
//	y = h(x) + v
//
// r may be nil if there is no measurement noise.
func (g *Generator) MeasurementSample(state filter.Estimate, h filter.MeasurementModel, r mat.Symmetric) (*mat.VecDense, error) {
	x, err := g.draw(state)
	if err != nil {
		return nil, err
	}

	return g.observe(x, h, r)
}

// Trajectory is a simulated system run
type Trajectory struct {
	// Truth stores true system states in rows
	Truth *mat.Dense
	// Measurements stores noisy measurements of the true states in rows
	Measurements *mat.Dense
}

// Len returns the number of trajectory steps
func (t *Trajectory) Len() int {
	r, _ := t.Truth.Dims()
	return r
}

// Trajectory simulates steps of the system given by motion model m and measurement model h.
// The initial state is drawn from x0; every step propagates the previous true state with
// process noise q and observes it with measurement noise r.
// It returns error if steps is not positive or if the models fail.
func (g *Generator) Trajectory(x0 filter.Estimate, m filter.MotionModel, u mat.Vector, q mat.Symmetric,
	h filter.MeasurementModel, r mat.Symmetric, steps int) (*Trajectory, error) {
	if steps <= 0 {
		return nil, errors.Errorf("invalid number of steps: %d", steps)
	}

	nx, _ := m.Dims()
	_, ny := h.Dims()

	truth := mat.NewDense(steps, nx, nil)
	meas := mat.NewDense(steps, ny, nil)

	x, err := g.draw(x0)
	if err != nil {
		return nil, err
	}

	for i := 0; i < steps; i++ {
		x, err = g.propagate(x, m, u, q)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d", i)
		}

		y, err := g.observe(x, h, r)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d", i)
		}

		truth.SetRow(i, x.RawVector().Data)
		meas.SetRow(i, y.RawVector().Data)
	}

	return &Trajectory{
		Truth:        truth,
		Measurements: meas,
	}, nil
}

func (g *Generator) draw(state filter.Estimate) (*mat.VecDense, error) {
	if state == nil {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "nil state")
	}

	x, err := g.sample(state.Val(), state.Cov())
	if err != nil {
		return nil, errors.Wrap(err, "failed to draw state")
	}

	return x, nil
}

func (g *Generator) propagate(x mat.Vector, m filter.MotionModel, u mat.Vector, q mat.Symmetric) (*mat.VecDense, error) {
	xNext, err := m.Propagate(x, u)
	if err != nil {
		return nil, errors.Wrap(err, "system state propagation failed")
	}

	return g.addNoise(xNext, q)
}

func (g *Generator) observe(x mat.Vector, h filter.MeasurementModel, r mat.Symmetric) (*mat.VecDense, error) {
	y, err := h.Observe(x)
	if err != nil {
		return nil, errors.Wrap(err, "failed to observe system output")
	}

	return g.addNoise(y, r)
}

func (g *Generator) addNoise(x mat.Vector, cov mat.Symmetric) (*mat.VecDense, error) {
	if cov == nil || cov.SymmetricDim() == 0 {
		return mat.VecDenseCopyOf(x), nil
	}

	out, err := g.sample(x, cov)
	if err != nil {
		return nil, errors.Wrap(err, "failed to draw noise")
	}

	return out, nil
}

// sample draws from N(mean, cov) using the generator random source
func (g *Generator) sample(mean mat.Vector, cov mat.Symmetric) (*mat.VecDense, error) {
	m := make([]float64, mean.Len())
	for i := range m {
		m[i] = mean.AtVec(i)
	}

	n, err := noise.NewGaussianWithRand(m, cov, g.rng)
	if err != nil {
		return nil, err
	}

	return mat.VecDenseCopyOf(n.Sample()), nil
}
