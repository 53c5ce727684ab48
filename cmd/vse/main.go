package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vse-go/go-filter/config"
	"github.com/vse-go/go-filter/internal/logging"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cobra.CheckErr(newRootCmd().ExecuteContext(ctx))
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vse [command] [flags]",
		Short:         "vse simulates target tracking with Kalman filters",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "`<path>` to YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "log `<level>`: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("log-dev", false, "enable development logging")

	runCmd := &cobra.Command{
		Use:   "run [flags]",
		Short: "Simulate a trajectory and filter it",
		RunE:  doRun,
	}
	addFilterFlags(runCmd.Flags())
	runCmd.Flags().StringP("plot", "p", "", "`<path>` to save trajectory plot to")

	mcCmd := &cobra.Command{
		Use:   "montecarlo [flags]",
		Short: "Run Monte Carlo filter evaluation",
		RunE:  doMonteCarlo,
	}
	addFilterFlags(mcCmd.Flags())
	mcCmd.Flags().Int("runs", 100, "number of Monte Carlo runs")
	mcCmd.Flags().Int("workers", 4, "number of concurrent runs")

	configCmd := &cobra.Command{
		Use:   "config [flags]",
		Short: "Print effective configuration",
		RunE:  doConfig,
	}
	addFilterFlags(configCmd.Flags())

	rootCmd.AddCommand(
		runCmd,
		mcCmd,
		configCmd,
	)

	return rootCmd
}

func addFilterFlags(fs *pflag.FlagSet) {
	d := config.Default()

	fs.StringP("model", "m", d.Model, "motion model: CV, CA, CT, CTRV or CTRA")
	fs.StringP("variant", "v", d.Variant, "filter variant: KF, EKF, UKF or CKF")
	fs.String("measurement", d.Measurement, "measurement model: position or range_bearing")
	fs.Float64("dt", d.Dt, "sampling period")
	fs.Int("steps", d.Steps, "number of simulation steps")
	fs.Uint64("seed", d.Seed, "random seed")
	fs.Float64("max-cond", d.MaxCond, "innovation covariance condition number limit")
	fs.Int("iterations", d.Iterations, "number of EKF update iterations")
}

// load reads configuration of cmd and creates the logger it asks for
func load(cmd *cobra.Command) (*config.Config, *zap.SugaredLogger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	c, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	log, err := logging.New(c.Log.Level, c.Log.Dev)
	if err != nil {
		return nil, nil, err
	}

	return c, log, nil
}

func doConfig(cmd *cobra.Command, args []string) error {
	c, _, err := load(cmd)
	if err != nil {
		return err
	}

	data, err := c.YAML()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))

	return nil
}
