package noise

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/rnd"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Gaussian is gaussian noise
type Gaussian struct {
	// rng draws standard normal samples
	rng *rand.Rand
	// root is a square root of cov
	root *mat.Dense
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov *mat.SymDense
	// seed seeds rng
	seed uint64
	// shared is true when rng is owned by the caller
	shared bool
}

// NewGaussian creates new Gaussian noise with given mean and covariance seeded from the current time.
// It returns error if it fails to create Gaussian.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	return NewGaussianWithSeed(mean, cov, uint64(time.Now().UnixNano()))
}

// NewGaussianWithSeed creates new Gaussian noise with given mean and covariance
// whose samples are drawn from a source seeded with seed.
// It returns error if mean and cov dimensions disagree or cov is not positive semi-definite.
func NewGaussianWithSeed(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	g, err := newGaussian(mean, cov, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	g.seed = seed

	return g, nil
}

// NewGaussianWithRand creates new Gaussian noise with given mean and covariance
// whose samples are drawn from rng. Reset has no effect on noise created this way.
// It returns error if mean and cov dimensions disagree or cov is not positive semi-definite.
func NewGaussianWithRand(mean []float64, cov mat.Symmetric, rng *rand.Rand) (*Gaussian, error) {
	g, err := newGaussian(mean, cov, rng)
	if err != nil {
		return nil, err
	}
	g.shared = true

	return g, nil
}

func newGaussian(mean []float64, cov mat.Symmetric, rng *rand.Rand) (*Gaussian, error) {
	if cov == nil || len(mean) != cov.SymmetricDim() {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "gaussian mean: %d", len(mean))
	}

	root, err := rnd.Root(cov)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create new Gaussian noise")
	}

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	m := make([]float64, len(mean))
	copy(m, mean)

	return &Gaussian{
		rng:  rng,
		root: root,
		mean: m,
		cov:  c,
	}, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	s := rnd.WithRootN(g.rng, g.root, 1)

	x := mat.NewVecDense(len(g.mean), nil)
	x.AddVec(mat.NewVecDense(len(g.mean), g.Mean()), s.ColView(0))

	return x
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	mean := make([]float64, len(g.mean))
	copy(mean, g.mean)

	return mean
}

// Reset reseeds the noise with its original seed so the sample sequence starts over.
func (g *Gaussian) Reset() error {
	if g.shared {
		return nil
	}
	g.rng = rand.New(rand.NewSource(g.seed))

	return nil
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
