// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/db"
	"github.com/jonathan/outreach-cadence/internal/outreach"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5

	timeLayout = "2006-01-02 15:04 MST"
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "now"
	}
	return t.UTC().Format(timeLayout)
}

// PrintState outputs the cadence decision derived for a sequence.
func (p *Printer) PrintState(state *cadence.State) {
	if state == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Touches:     %d\n", state.TouchCount))
	sb.WriteString(fmt.Sprintf("Engagement:  %s\n", state.EngagementLevel))
	sb.WriteString(fmt.Sprintf("Delay:       %d day(s)\n", state.DelayDays))
	if state.LastTouchAt != nil {
		sb.WriteString(fmt.Sprintf("Last touch:  %s\n", formatTime(state.LastTouchAt)))
	}
	sb.WriteString("\n")

	if state.IsExhausted {
		sb.WriteString("✗ Exhausted: sequence closes as CLOSED_LOST")
	} else {
		sb.WriteString(fmt.Sprintf("Next:        %s at %s", state.NextChannel, formatTime(state.NextScheduledAt)))
	}

	p.printBox("CADENCE STATE", sb.String())
}

// PrintTouches outputs the completed touches that fed a decision.
func (p *Printer) PrintTouches(touches []cadence.CompletedTouch) {
	if len(touches) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Completed touches: %d\n\n", len(touches)))

	// Most recent last; show the tail.
	start := max(len(touches)-maxItemsToShow, 0)
	if start > 0 {
		sb.WriteString(fmt.Sprintf("... %d earlier touches\n", start))
	}
	for _, t := range touches[start:] {
		at := t.CompletedAt
		sb.WriteString(fmt.Sprintf("#%d  %-9s %s\n", t.StepOrder, t.Channel, formatTime(&at)))
	}

	p.printBox("TOUCH HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSequence outputs a sequence with its contact channels and steps.
func (p *Printer) PrintSequence(seq *db.Sequence) {
	if seq == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Sequence:  %s\n", seq.ID))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", seq.Status))
	if seq.Contact != nil {
		channels := cadence.ResolveChannels(seq.Contact.Channels())
		names := make([]string, len(channels))
		for i, ch := range channels {
			names[i] = ch.String()
		}
		sb.WriteString(fmt.Sprintf("Channels:  %s\n", strings.Join(names, ", ")))
	}

	if len(seq.Steps) > 0 {
		sb.WriteString("\nSteps:\n")
		count := min(len(seq.Steps), maxItemsToShow)
		for i := 0; i < count; i++ {
			step := seq.Steps[i]
			sb.WriteString(fmt.Sprintf("  %d. %-9s %-11s %s\n",
				step.StepOrder, step.Channel, step.Status, formatTime(&step.NextStepReadyAt)))
		}
		if len(seq.Steps) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(seq.Steps)-maxItemsToShow))
		}
	}

	p.printBox("SEQUENCE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEvaluation outputs what a scheduler evaluation did.
func (p *Printer) PrintEvaluation(result *outreach.EvaluateResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	switch {
	case result.Closed:
		sb.WriteString("Sequence exhausted and closed")
	case result.Created:
		sb.WriteString(fmt.Sprintf("✓ Drafted step %s\n", result.StepID))
		sb.WriteString(fmt.Sprintf("  ready at %s", formatTime(result.ScheduledAt)))
	case result.StepID != nil:
		sb.WriteString(fmt.Sprintf("Open step %s already pending\n", result.StepID))
		sb.WriteString(fmt.Sprintf("  ready at %s", formatTime(result.ScheduledAt)))
	default:
		sb.WriteString("No change (sequence not active)")
	}

	p.printBox("EVALUATION", sb.String())
	p.PrintState(result.State)
}

// PrintPromoteResult outputs the outcome of one sweep.
func (p *Printer) PrintPromoteResult(result outreach.PromoteResult) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Due steps processed:  %d\n", result.Processed))
	sb.WriteString(fmt.Sprintf("Touch tasks created:  %d", result.Created))
	if result.Processed == outreach.PromoteBatchSize {
		sb.WriteString("\n\nBatch was full; more steps may be due.")
	}

	p.printBox("SWEEP", sb.String())
}
