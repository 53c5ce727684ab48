package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/config"
	"github.com/vse-go/go-filter/estimate"
	"github.com/vse-go/go-filter/kalman"
	"github.com/vse-go/go-filter/noise"
	"github.com/vse-go/go-filter/sim"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"
)

// experiment is a configured simulation: the system, its filter and the initial estimate
type experiment struct {
	c      *config.Config
	motion filter.MotionModel
	meas   filter.MeasurementModel
	mats   *config.Matrices
	f      *kalman.Filter
	prior  *estimate.Base
}

func newExperiment(c *config.Config) (*experiment, error) {
	motion, meas, err := c.Models()
	if err != nil {
		return nil, err
	}

	mats, err := c.Matrices()
	if err != nil {
		return nil, err
	}

	v, err := kalman.ParseVariant(c.Variant)
	if err != nil {
		return nil, err
	}

	q, err := noise.FromCov(mats.Q, c.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "invalid process noise")
	}

	r, err := noise.FromCov(mats.R, c.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "invalid measurement noise")
	}

	f, err := kalman.New(v, motion, meas, q, r, c.Options()...)
	if err != nil {
		return nil, err
	}

	prior, err := estimate.NewBaseWithCov(mats.X0, mats.P0)
	if err != nil {
		return nil, err
	}

	return &experiment{
		c:      c,
		motion: motion,
		meas:   meas,
		mats:   mats,
		f:      f,
		prior:  prior,
	}, nil
}

// simulate generates a trajectory with g and filters it
func (e *experiment) simulate(g *sim.Generator, log *zap.SugaredLogger) (*sim.Trajectory, []filter.Estimate, sim.RunStats, error) {
	traj, err := g.Trajectory(e.prior, e.motion, nil, e.mats.Q, e.meas, e.mats.R, e.c.Steps)
	if err != nil {
		return nil, nil, sim.RunStats{}, err
	}

	ests, stats, err := sim.Filter(e.f, e.prior, nil, traj, log)
	if err != nil {
		return nil, nil, sim.RunStats{}, err
	}

	errStats, err := sim.Evaluate(traj.Truth, ests)
	if err != nil {
		return nil, nil, sim.RunStats{}, err
	}
	stats.RMSE, stats.ANEES = errStats.RMSE, errStats.ANEES

	return traj, ests, stats, nil
}

func doRun(cmd *cobra.Command, args []string) error {
	c, log, err := load(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	e, err := newExperiment(c)
	if err != nil {
		return err
	}

	log.Infow("Starting simulation", "model", c.Model, "variant", c.Variant, "measurement", c.Measurement, "steps", c.Steps, "seed", c.Seed)

	traj, ests, stats, err := e.simulate(sim.NewGenerator(c.Seed), log)
	if err != nil {
		return err
	}

	last := ests[len(ests)-1]
	log.Debugw("Final estimate", "mean", fmt.Sprintf("%v", mat.Formatted(last.Val().T(), mat.Squeeze())), "trace", mat.Trace(last.Cov()))
	log.Infow("Simulation finished", "rmse", stats.RMSE, "anees", stats.ANEES, "anis", stats.ANIS,
		"outliers", stats.Outliers, "loglik", stats.LogLikelihood, "skipped", stats.Skipped)

	if c.Plot == "" {
		return nil
	}

	measured := traj.Measurements
	if c.Measurement == config.RangeBearing {
		sx, sy := c.SensorPosition()
		measured = sim.PolarToXY(measured, sx, sy)
	}

	p, err := sim.NewTrajectoryPlot(traj.Truth, measured, sim.Means(ests))
	if err != nil {
		return err
	}

	every := len(ests) / 10
	if err := sim.AddEllipses(p, ests, every); err != nil {
		return err
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, c.Plot); err != nil {
		return errors.Wrapf(err, "failed to save plot %s", c.Plot)
	}

	log.Infow("Plot saved", "path", c.Plot)

	return nil
}
