package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/observability"
	"github.com/jonathan/outreach-cadence/internal/schemas"
	"github.com/spf13/cobra"
)

var (
	previewInputFile string
	previewJSON      bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Compute a cadence state offline",
	Long: `Compute the cadence state for a hypothetical sequence without a database.
The input file holds touches, engagement signals, contact channels and optional config
overrides; "-" reads standard input.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVarP(&previewInputFile, "input", "i", "", "Path to preview JSON (required)")
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "Print the state as JSON")
	_ = previewCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(previewCmd)
}

type previewInput struct {
	Config   cadence.Config            `json:"config"`
	Touches  []cadence.CompletedTouch  `json:"touches"`
	Signals  cadence.EngagementSignals `json:"signals"`
	Channels cadence.ContactChannels   `json:"channels"`
}

func runPreview(cmd *cobra.Command, _ []string) error {
	var data []byte
	var err error
	if previewInputFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(previewInputFile)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	input, err := parsePreviewInput(data)
	if err != nil {
		return err
	}

	state := cadence.ComputeState(input.Touches, input.Signals, input.Channels, input.Config)

	if previewJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintTouches(input.Touches)
	printer.PrintState(&state)
	return nil
}

// parsePreviewInput validates data against the preview schema. Config fields left out keep
// their default values.
func parsePreviewInput(data []byte) (previewInput, error) {
	if err := schemas.Validate(schemas.CadencePreview, data); err != nil {
		return previewInput{}, err
	}

	input := previewInput{Config: cadence.DefaultConfig}
	if err := json.Unmarshal(data, &input); err != nil {
		return previewInput{}, fmt.Errorf("failed to parse input: %w", err)
	}
	if err := input.Config.Validate(); err != nil {
		return previewInput{}, err
	}
	return input, nil
}
