package outreach

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/db"
	"go.uber.org/zap"
)

// completionRank orders delivered statuses; a completion never moves a step backwards.
var completionRank = map[string]int{
	db.StepStatusSent:    1,
	db.StepStatusOpened:  2,
	db.StepStatusReplied: 3,
	db.StepStatusBooked:  4,
}

// Completion reports that a queued touch was delivered or answered.
type Completion struct {
	StepID      uuid.UUID `json:"step_id"`
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completed_at"`
}

// CompletionResult describes the effect of a recorded completion.
type CompletionResult struct {
	StepID     uuid.UUID       `json:"step_id"`
	SequenceID uuid.UUID       `json:"sequence_id"`
	Status     string          `json:"status"`
	Won        bool            `json:"won"`
	Evaluation *EvaluateResult `json:"evaluation,omitempty"`
}

// Tracker records touch completions and re-evaluates the sequence afterwards.
type Tracker struct {
	store     Store
	scheduler *Scheduler
	cfg       cadence.Config
	publisher Publisher
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewTracker creates a tracker evaluating sequences with cfg.
func NewTracker(store Store, scheduler *Scheduler, cfg cadence.Config, publisher Publisher, logger *zap.Logger) *Tracker {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Tracker{
		store:     store,
		scheduler: scheduler,
		cfg:       cfg,
		publisher: publisher,
		metrics:   NewMetrics(),
		logger:    logger.Named("tracker"),
		now:       time.Now,
	}
}

// RecordCompletion marks a step delivered. Only QUEUED or already delivered steps accept a
// completion. A BOOKED completion closes the sequence as won; any other completion is
// followed by a scheduler evaluation so the next touch gets drafted.
func (t *Tracker) RecordCompletion(ctx context.Context, c Completion) (CompletionResult, error) {
	rank, ok := completionRank[c.Status]
	if !ok {
		return CompletionResult{}, fmt.Errorf("%w: %q is not a completion status", ErrInvalidTransition, c.Status)
	}
	completedAt := c.CompletedAt
	if completedAt.IsZero() {
		completedAt = t.now()
	}
	completedAt = completedAt.UTC()

	result := CompletionResult{StepID: c.StepID}
	var seq *db.Sequence

	err := t.store.WithTx(ctx, func(repo Repository) error {
		step, err := repo.FindStep(ctx, c.StepID)
		if err != nil {
			return err
		}
		result.SequenceID = step.SequenceID

		if step.Status != db.StepStatusQueued && !db.IsCompletedStepStatus(step.Status) {
			return fmt.Errorf("%w: step is %s", ErrInvalidTransition, step.Status)
		}

		status := c.Status
		if completionRank[step.Status] > rank {
			status = step.Status
		}
		result.Status = status

		if err := repo.MarkStepCompleted(ctx, step.ID, status, completedAt); err != nil {
			return err
		}

		if status != db.StepStatusBooked {
			return nil
		}

		seq, err = repo.FindSequence(ctx, step.SequenceID)
		if err != nil {
			return err
		}
		if db.IsTerminalSequenceStatus(seq.Status) {
			return nil
		}
		if err := repo.UpdateSequenceStatus(ctx, seq.ID, db.SequenceStatusClosedWon); err != nil {
			return err
		}
		if _, err := repo.CloseOpenSteps(ctx, seq.ID); err != nil {
			return err
		}
		result.Won = true
		return nil
	})
	if err != nil {
		return CompletionResult{}, fmt.Errorf("failed to record completion for step %s: %w", c.StepID, err)
	}

	t.metrics.TouchesRecorded.WithLabelValues(result.Status).Inc()
	t.logger.Info("touch recorded",
		zap.String("step_id", c.StepID.String()),
		zap.String("sequence_id", result.SequenceID.String()),
		zap.String("status", result.Status),
	)

	if result.Won {
		t.metrics.SequencesClosed.WithLabelValues(db.SequenceStatusClosedWon).Inc()
		publish(ctx, t.publisher, t.logger, SubjectSequenceClosed, SequenceClosedEvent{
			SequenceID: seq.ID,
			ContactID:  seq.ContactID,
			Status:     db.SequenceStatusClosedWon,
			TouchCount: len(CompletedTouches(seq.Steps)),
			ClosedAt:   t.now().UTC(),
		})
		return result, nil
	}

	eval, err := t.scheduler.Evaluate(ctx, result.SequenceID, t.cfg)
	if err != nil {
		return result, err
	}
	result.Evaluation = &eval
	return result, nil
}
