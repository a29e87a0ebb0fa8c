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

// EvaluateResult reports what a scheduler evaluation did.
//
// When Created is false and StepID is set, the sequence already had an open step and
// StepID/ScheduledAt describe it.
type EvaluateResult struct {
	Created     bool           `json:"created"`
	StepID      *uuid.UUID     `json:"step_id,omitempty"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	Closed      bool           `json:"closed,omitempty"`
	State       *cadence.State `json:"state,omitempty"`
}

// Scheduler decides the next step of a sequence and persists it.
type Scheduler struct {
	store     Store
	locks     *SequenceLocks
	publisher Publisher
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a scheduler. A nil publisher discards events.
func NewScheduler(store Store, publisher Publisher, logger *zap.Logger) *Scheduler {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Scheduler{
		store:     store,
		locks:     NewSequenceLocks(),
		publisher: publisher,
		metrics:   NewMetrics(),
		logger:    logger.Named("scheduler"),
		now:       time.Now,
	}
}

// CompletedTouches returns the delivered touches of a step list in step order.
func CompletedTouches(steps []db.Step) []cadence.CompletedTouch {
	touches := make([]cadence.CompletedTouch, 0, len(steps))
	for i := range steps {
		if !db.IsCompletedStepStatus(steps[i].Status) {
			continue
		}
		touches = append(touches, cadence.CompletedTouch{
			CompletedAt: steps[i].CompletedAt(),
			Channel:     steps[i].Channel,
			StepOrder:   steps[i].StepOrder,
		})
	}
	return touches
}

func openStep(steps []db.Step) *db.Step {
	for i := range steps {
		if db.IsOpenStepStatus(steps[i].Status) {
			return &steps[i]
		}
	}
	return nil
}

// Evaluate computes the cadence state of a sequence and acts on it: an exhausted sequence is
// closed as CLOSED_LOST along with its open steps, otherwise the next step is drafted.
// Sequences that are not ACTIVE are left untouched.
func (s *Scheduler) Evaluate(ctx context.Context, sequenceID uuid.UUID, cfg cadence.Config) (EvaluateResult, error) {
	if err := cfg.Validate(); err != nil {
		return EvaluateResult{}, err
	}

	unlock := s.locks.Lock(sequenceID)
	defer unlock()

	var (
		result  EvaluateResult
		seq     *db.Sequence
		created *db.Step
		state   cadence.State
	)

	err := s.store.WithTx(ctx, func(repo Repository) error {
		var err error
		seq, err = repo.FindSequence(ctx, sequenceID)
		if err != nil {
			return err
		}
		if seq.Status != db.SequenceStatusActive {
			return nil
		}

		var signals cadence.EngagementSignals
		stored, err := repo.FindEngagementSignals(ctx, seq.ProspectID)
		if err != nil {
			return err
		}
		if stored != nil {
			signals = *stored
		}

		touches := CompletedTouches(seq.Steps)
		state = cadence.ComputeState(touches, signals, seq.Contact.Channels(), cfg)
		result.State = &state

		if state.IsExhausted {
			if err := repo.UpdateSequenceStatus(ctx, seq.ID, db.SequenceStatusClosedLost); err != nil {
				return err
			}
			if _, err := repo.CloseOpenSteps(ctx, seq.ID); err != nil {
				return err
			}
			result.Closed = true
			return nil
		}

		if open := openStep(seq.Steps); open != nil {
			result.StepID = &open.ID
			readyAt := open.NextStepReadyAt
			result.ScheduledAt = &readyAt
			return nil
		}

		scheduledAt := s.now().UTC()
		if state.NextScheduledAt != nil {
			scheduledAt = *state.NextScheduledAt
		}

		created, err = repo.CreateStep(ctx, db.StepInput{
			SequenceID:  seq.ID,
			StepOrder:   len(touches) + 1,
			Status:      db.StepStatusDrafted,
			TriggeredBy: db.TriggeredByCadence,
			Channel:     state.NextChannel,
			ScheduledAt: scheduledAt,
		})
		if err != nil {
			return err
		}

		result.Created = true
		result.StepID = &created.ID
		result.ScheduledAt = &scheduledAt
		return nil
	})
	if err != nil {
		return EvaluateResult{}, fmt.Errorf("failed to evaluate sequence %s: %w", sequenceID, err)
	}

	switch {
	case result.Closed:
		s.metrics.SequencesClosed.WithLabelValues(db.SequenceStatusClosedLost).Inc()
		s.logger.Info("sequence exhausted",
			zap.String("sequence_id", seq.ID.String()),
			zap.Int("touch_count", state.TouchCount),
		)
		publish(ctx, s.publisher, s.logger, SubjectSequenceClosed, SequenceClosedEvent{
			SequenceID: seq.ID,
			ContactID:  seq.ContactID,
			Status:     db.SequenceStatusClosedLost,
			TouchCount: state.TouchCount,
			ClosedAt:   s.now().UTC(),
		})
	case result.Created:
		s.metrics.StepsScheduled.WithLabelValues(created.Channel.String()).Inc()
		s.logger.Info("step scheduled",
			zap.String("sequence_id", seq.ID.String()),
			zap.Int("step_order", created.StepOrder),
			zap.String("channel", created.Channel.String()),
			zap.Time("scheduled_at", *result.ScheduledAt),
			zap.String("engagement", string(state.EngagementLevel)),
		)
		publish(ctx, s.publisher, s.logger, SubjectStepScheduled, StepScheduledEvent{
			SequenceID:  seq.ID,
			StepID:      created.ID,
			StepOrder:   created.StepOrder,
			Channel:     created.Channel,
			ScheduledAt: *result.ScheduledAt,
		})
	}

	return result, nil
}
