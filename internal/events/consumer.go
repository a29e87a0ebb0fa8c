package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/outreach"
	"github.com/jonathan/outreach-cadence/internal/schemas"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// QueueGroup spreads completions across service replicas.
const QueueGroup = "cadence-engine"

// CompletionRecorder records delivered touches. *outreach.Tracker implements it.
type CompletionRecorder interface {
	RecordCompletion(ctx context.Context, c outreach.Completion) (outreach.CompletionResult, error)
}

// TouchCompleted is the payload of outreach.touch.completed messages.
type TouchCompleted struct {
	StepID      string     `json:"step_id"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Ack is sent back when a completion message carries a reply subject.
type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Consumer subscribes to touch completions and hands them to the recorder.
type Consumer struct {
	nc       *nats.Conn
	recorder CompletionRecorder
	logger   *zap.Logger
}

// NewConsumer creates a consumer.
func NewConsumer(nc *nats.Conn, recorder CompletionRecorder, logger *zap.Logger) *Consumer {
	return &Consumer{
		nc:       nc,
		recorder: recorder,
		logger:   logger.Named("consumer"),
	}
}

// Run processes messages until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	msgs := make(chan *nats.Msg, 64)
	sub, err := c.nc.ChanQueueSubscribe(outreach.SubjectTouchCompleted, QueueGroup, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", outreach.SubjectTouchCompleted, err)
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	c.logger.Info("consuming touch completions", zap.String("subject", outreach.SubjectTouchCompleted))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			err := c.handle(ctx, msg.Data)
			if err != nil {
				c.logger.Warn("touch completion rejected", zap.Error(err))
			}
			c.reply(msg, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, data []byte) error {
	if err := schemas.Validate(schemas.TouchCompleted, data); err != nil {
		return err
	}

	var payload TouchCompleted
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode touch completion: %w", err)
	}

	stepID, err := uuid.Parse(payload.StepID)
	if err != nil {
		return fmt.Errorf("invalid step_id: %w", err)
	}

	completion := outreach.Completion{StepID: stepID, Status: payload.Status}
	if payload.CompletedAt != nil {
		completion.CompletedAt = *payload.CompletedAt
	}

	_, err = c.recorder.RecordCompletion(ctx, completion)
	return err
}

func (c *Consumer) reply(msg *nats.Msg, handleErr error) {
	if msg.Reply == "" {
		return
	}
	ack := Ack{OK: handleErr == nil}
	if handleErr != nil {
		ack.Error = handleErr.Error()
	}
	data, err := json.Marshal(ack)
	if err != nil {
		return
	}
	if err := msg.Respond(data); err != nil {
		c.logger.Warn("failed to acknowledge touch completion", zap.Error(err))
	}
}
