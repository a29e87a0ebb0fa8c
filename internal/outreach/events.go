package outreach

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/cadence"
	"go.uber.org/zap"
)

// Event subjects
const (
	SubjectStepScheduled  = "cadence.step.scheduled"
	SubjectSequenceClosed = "cadence.sequence.closed"
	SubjectTaskCreated    = "cadence.task.created"
	SubjectTouchCompleted = "outreach.touch.completed"
)

// StepScheduledEvent is published when the scheduler drafts a new step.
type StepScheduledEvent struct {
	SequenceID  uuid.UUID       `json:"sequence_id"`
	StepID      uuid.UUID       `json:"step_id"`
	StepOrder   int             `json:"step_order"`
	Channel     cadence.Channel `json:"channel"`
	ScheduledAt time.Time       `json:"scheduled_at"`
}

// SequenceClosedEvent is published when a sequence reaches a terminal status.
type SequenceClosedEvent struct {
	SequenceID uuid.UUID `json:"sequence_id"`
	ContactID  uuid.UUID `json:"contact_id"`
	Status     string    `json:"status"`
	TouchCount int       `json:"touch_count"`
	ClosedAt   time.Time `json:"closed_at"`
}

// TaskCreatedEvent is published for each touch task produced by a sweep.
type TaskCreatedEvent struct {
	TaskID     uuid.UUID       `json:"task_id"`
	StepID     uuid.UUID       `json:"step_id"`
	SequenceID uuid.UUID       `json:"sequence_id"`
	ContactID  uuid.UUID       `json:"contact_id"`
	Channel    cadence.Channel `json:"channel"`
	Subject    string          `json:"subject"`
}

// Publisher delivers engine events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// publish runs after commit; a delivery failure never undoes a committed decision.
func publish(ctx context.Context, p Publisher, logger *zap.Logger, subject string, event any) {
	if err := p.Publish(ctx, subject, event); err != nil {
		logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
