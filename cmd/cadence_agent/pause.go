package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/logging"
	"github.com/jonathan/outreach-cadence/internal/observability"
	"github.com/jonathan/outreach-cadence/internal/outreach"
	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <sequence-id>",
	Short: "Hold an active sequence",
	Long:  "Pause a sequence: no steps are drafted or promoted for it until it is resumed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSequenceStatus(cmd, args[0], false)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <sequence-id>",
	Short: "Reactivate a paused sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSequenceStatus(cmd, args[0], true)
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
}

func runSequenceStatus(cmd *cobra.Command, arg string, resume bool) error {
	sequenceID, err := uuid.Parse(arg)
	if err != nil {
		return fmt.Errorf("invalid sequence id %q: %w", arg, err)
	}

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
	printer := observability.NewPrinter(cmd.OutOrStdout())

	if !resume {
		seq, err := engine.PauseSequence(ctx, sequenceID)
		if err != nil {
			return err
		}
		printer.PrintSequence(seq)
		return nil
	}

	seq, result, err := engine.ResumeSequence(ctx, sequenceID)
	if err != nil {
		return err
	}
	printer.PrintSequence(seq)
	printer.PrintEvaluation(&result)
	return nil
}
