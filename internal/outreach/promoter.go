package outreach

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/db"
	"go.uber.org/zap"
)

// PromoteBatchSize caps how many due steps a single sweep claims.
const PromoteBatchSize = 50

// PromoteResult summarizes one sweep.
type PromoteResult struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
}

// TouchSubject is the subject line of the touch task created for a channel.
func TouchSubject(channel cadence.Channel) string {
	return "Cadence follow-up: " + channel.String()
}

// Promoter turns due drafted steps into open touch tasks.
type Promoter struct {
	store     Store
	publisher Publisher
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewPromoter creates a promoter. A nil publisher discards events.
func NewPromoter(store Store, publisher Publisher, logger *zap.Logger) *Promoter {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Promoter{
		store:     store,
		publisher: publisher,
		metrics:   NewMetrics(),
		logger:    logger.Named("promoter"),
		now:       time.Now,
	}
}

// PromoteDueSteps claims up to PromoteBatchSize due steps and, for each, creates a FOLLOW_UP
// touch task and moves the step to QUEUED. The whole batch commits atomically.
func (p *Promoter) PromoteDueSteps(ctx context.Context) (PromoteResult, error) {
	start := time.Now()
	now := p.now().UTC()

	var (
		result PromoteResult
		events []TaskCreatedEvent
	)

	err := p.store.WithTx(ctx, func(repo Repository) error {
		result = PromoteResult{}
		events = events[:0]

		due, err := repo.FindDueSteps(ctx, now, PromoteBatchSize)
		if err != nil {
			return err
		}

		for i := range due {
			step := &due[i]
			result.Processed++

			task, err := repo.CreateTouchTaskLog(ctx, db.TouchTaskInput{
				ContactID: step.ContactID,
				StepID:    &step.ID,
				Type:      db.TouchTaskTypeFollowUp,
				Channel:   step.Channel,
				Subject:   TouchSubject(step.Channel),
				Status:    db.TouchTaskStatusOpen,
			})
			if err != nil {
				return fmt.Errorf("failed to create touch task for step %s: %w", step.ID, err)
			}

			if err := repo.UpdateStep(ctx, step.ID, db.StepStatusQueued, &task.ID); err != nil {
				return fmt.Errorf("failed to queue step %s: %w", step.ID, err)
			}

			result.Created++
			events = append(events, TaskCreatedEvent{
				TaskID:     task.ID,
				StepID:     step.ID,
				SequenceID: step.SequenceID,
				ContactID:  step.ContactID,
				Channel:    step.Channel,
				Subject:    task.Subject,
			})
		}
		return nil
	})
	if err != nil {
		return PromoteResult{}, fmt.Errorf("failed to promote due steps: %w", err)
	}

	p.metrics.PromoteDuration.Observe(time.Since(start).Seconds())
	p.metrics.PromoteBatchSize.Observe(float64(result.Processed))

	for _, ev := range events {
		p.metrics.TouchTasksCreated.WithLabelValues(ev.Channel.String()).Inc()
		publish(ctx, p.publisher, p.logger, SubjectTaskCreated, ev)
	}

	if result.Processed > 0 {
		p.logger.Info("promoted due steps",
			zap.Int("processed", result.Processed),
			zap.Int("created", result.Created),
		)
	}
	return result, nil
}
