package main

import (
	"github.com/jonathan/outreach-cadence/internal/logging"
	"github.com/jonathan/outreach-cadence/internal/observability"
	"github.com/jonathan/outreach-cadence/internal/outreach"
	"github.com/jonathan/outreach-cadence/internal/sweep"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Promote due steps once",
	Long:  "Claim up to one batch of due drafted steps, create their touch tasks and queue them. Events are not published.",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logging.Sync(logger) //nolint:errcheck

	ctx := cmd.Context()
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	engine := outreach.NewEngine(outreach.NewPostgresStore(database), nil, cfg.Cadence.Engine(), logger)
	runner, err := sweep.NewRunner(cfg.SweepSchedule, engine, logger)
	if err != nil {
		return err
	}

	result, err := runner.RunOnce(ctx)
	if err != nil {
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintPromoteResult(result)
	return nil
}
