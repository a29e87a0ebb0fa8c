package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/logging"
	"github.com/jonathan/outreach-cadence/internal/observability"
	"github.com/jonathan/outreach-cadence/internal/outreach"
	"github.com/spf13/cobra"
)

var evaluateJSON bool

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <sequence-id>",
	Short: "Run the scheduler for one sequence",
	Long:  "Evaluate a sequence: draft its next step, report the pending one, or close it when touches are exhausted.",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvaluate,
}

func init() {
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	sequenceID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid sequence id %q: %w", args[0], err)
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
	result, err := engine.Evaluate(ctx, sequenceID)
	if err != nil {
		return err
	}

	if evaluateJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	seq, err := engine.GetSequence(ctx, sequenceID)
	if err != nil {
		return err
	}
	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintSequence(seq)
	printer.PrintEvaluation(&result)
	return nil
}
