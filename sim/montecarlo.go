package sim

import (
	"context"
	"math"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/kalman"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RunStats are filter run statistics
type RunStats struct {
	// Run is run index
	Run int
	// RMSE is root mean squared position error
	RMSE float64
	// ANEES is average normalised estimation error squared divided by state dimension
	ANEES float64
	// Skipped is the number of updates skipped due to singular innovation covariance
	Skipped int
	// ANIS is average normalised innovation squared divided by measurement dimension
	ANIS float64
	// Outliers is the number of updates whose NIS exceeds the NISGate quantile
	Outliers int
	// LogLikelihood is the sum of innovation log densities
	LogLikelihood float64
}

// NISGate is the chi-squared quantile above which an innovation counts as an outlier
const NISGate = 0.99

// Filter runs filter f over trajectory measurements starting from prior with control input u
// and returns the corrected estimates, one per trajectory step, and the innovation statistics of the run.
// Updates failing with filter.ErrSingularInnovationCovariance keep the predicted estimate and are counted as skipped.
// It returns error if any other failure occurs.
func Filter(f *kalman.Filter, prior filter.Estimate, u mat.Vector, t *Trajectory, log *zap.SugaredLogger) ([]filter.Estimate, RunStats, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	_, ny := t.Measurements.Dims()
	gate := distuv.ChiSquared{K: float64(ny)}.Quantile(NISGate)

	est := prior
	ests := make([]filter.Estimate, t.Len())
	stats := RunStats{}
	nis := make([]float64, 0, t.Len())

	for i := range ests {
		z := mat.VecDenseCopyOf(t.Measurements.RowView(i))

		next, inn, err := f.Run(est, u, z)
		if err != nil {
			if !errors.Is(err, filter.ErrSingularInnovationCovariance) {
				return nil, stats, errors.Wrapf(err, "step %d", i)
			}
			log.Debugw("Skipping filter update", "step", i, "variant", f.Variant().String(), "error", err)
			stats.Skipped++
		}

		if inn != nil {
			v, err := inn.NIS()
			if err != nil {
				return nil, stats, errors.Wrapf(filter.ErrSingularInnovationCovariance, "step %d: %v", i, err)
			}
			ll, err := inn.LogLikelihood()
			if err != nil {
				return nil, stats, errors.Wrapf(filter.ErrSingularInnovationCovariance, "step %d: %v", i, err)
			}

			if v > gate {
				log.Debugw("Innovation outside NIS gate", "step", i, "nis", v, "gate", gate)
				stats.Outliers++
			}
			nis = append(nis, v)
			stats.LogLikelihood += ll
		}

		est = next
		ests[i] = est
	}

	if len(nis) > 0 {
		stats.ANIS = stat.Mean(nis, nil) / float64(ny)
	}

	return ests, stats, nil
}

// Evaluate returns position RMSE and ANEES of estimates ests against trajectory truth.
// Position is stored in the first two state elements.
func Evaluate(truth *mat.Dense, ests []filter.Estimate) (RunStats, error) {
	steps, nx := truth.Dims()
	if steps != len(ests) || steps == 0 || nx < 2 {
		return RunStats{}, errors.Wrapf(filter.ErrDimensionMismatch, "truth: %d x %d, estimates: %d", steps, nx, len(ests))
	}

	sqErr := make([]float64, steps)
	nees := make([]float64, steps)

	for i, est := range ests {
		if est.Val().Len() != nx {
			return RunStats{}, errors.Wrapf(filter.ErrDimensionMismatch, "step %d: %d != %d", i, est.Val().Len(), nx)
		}

		e := &mat.VecDense{}
		e.SubVec(truth.RowView(i), est.Val())

		sqErr[i] = floats.Dot(e.RawVector().Data[:2], e.RawVector().Data[:2])

		var chol mat.Cholesky
		if ok := chol.Factorize(est.Cov()); !ok {
			return RunStats{}, errors.Wrapf(filter.ErrInvalidCovariance, "step %d", i)
		}

		x := &mat.VecDense{}
		if err := chol.SolveVecTo(x, e); err != nil {
			return RunStats{}, errors.Wrapf(filter.ErrInvalidCovariance, "step %d: %v", i, err)
		}
		nees[i] = mat.Dot(e, x)
	}

	return RunStats{
		RMSE:  math.Sqrt(stat.Mean(sqErr, nil)),
		ANEES: stat.Mean(nees, nil) / float64(nx),
	}, nil
}

// RunFunc runs a single Monte Carlo run using generator g and returns its statistics
type RunFunc func(ctx context.Context, run int, g *Generator) (RunStats, error)

// MonteCarlo runs runs independent runs of fn on at most workers goroutines.
// Every run gets its own Generator seeded with seed + run so results do not depend on scheduling.
// It returns the statistics ordered by run or the first error encountered.
func MonteCarlo(ctx context.Context, runs, workers int, seed uint64, fn RunFunc, log *zap.SugaredLogger) ([]RunStats, error) {
	if runs <= 0 {
		return nil, errors.Errorf("invalid number of runs: %d", runs)
	}

	if workers <= 0 {
		workers = 1
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	stats := make([]RunStats, runs)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < runs; i++ {
		run := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			s, err := fn(ctx, run, NewGenerator(seed+uint64(run)))
			if err != nil {
				return errors.Wrapf(err, "run %d", run)
			}
			s.Run = run
			stats[run] = s

			log.Debugw("Monte Carlo run finished", "run", run, "rmse", s.RMSE, "anees", s.ANEES, "anis", s.ANIS)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}

// Summary returns statistics averaged over runs in stats.
// RMSE, ANEES, ANIS and LogLikelihood are averaged while Skipped and Outliers are summed.
func Summary(stats []RunStats) RunStats {
	if len(stats) == 0 {
		return RunStats{}
	}

	var (
		r  = make([]float64, len(stats))
		a  = make([]float64, len(stats))
		n  = make([]float64, len(stats))
		ll = make([]float64, len(stats))
	)

	sum := RunStats{}
	for i, s := range stats {
		r[i] = s.RMSE
		a[i] = s.ANEES
		n[i] = s.ANIS
		ll[i] = s.LogLikelihood
		sum.Skipped += s.Skipped
		sum.Outliers += s.Outliers
	}

	sum.RMSE = stat.Mean(r, nil)
	sum.ANEES = stat.Mean(a, nil)
	sum.ANIS = stat.Mean(n, nil)
	sum.LogLikelihood = stat.Mean(ll, nil)

	return sum
}
