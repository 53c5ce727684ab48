package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/vse-go/go-filter/sim"
)

func doMonteCarlo(cmd *cobra.Command, args []string) error {
	runs, err := cmd.Flags().GetInt("runs")
	if err != nil {
		return err
	}
	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}

	c, log, err := load(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	e, err := newExperiment(c)
	if err != nil {
		return err
	}

	log.Infow("Starting Monte Carlo", "model", c.Model, "variant", c.Variant, "runs", runs, "workers", workers)

	run := func(ctx context.Context, i int, g *sim.Generator) (sim.RunStats, error) {
		_, _, stats, err := e.simulate(g, log)
		return stats, err
	}

	stats, err := sim.MonteCarlo(cmd.Context(), runs, workers, c.Seed, run, log)
	if err != nil {
		return err
	}

	sum := sim.Summary(stats)
	log.Infow("Monte Carlo finished", "runs", len(stats), "rmse", sum.RMSE, "anees", sum.ANEES, "anis", sum.ANIS,
		"outliers", sum.Outliers, "skipped", sum.Skipped)

	return nil
}
