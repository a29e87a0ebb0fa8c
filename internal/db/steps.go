package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/outreach-cadence/internal/cadence"
)

const stepColumns = `st.id, st.sequence_id, st.step_order, st.status, st.channel, st.scheduled_at,
	st.next_step_ready_at, st.sent_at, st.triggered_by, st.body, st.touch_task_log_id,
	st.created_at, st.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStep(row rowScanner, extra ...any) (*Step, error) {
	var step Step
	var channel string
	dest := []any{
		&step.ID, &step.SequenceID, &step.StepOrder, &step.Status, &channel, &step.ScheduledAt,
		&step.NextStepReadyAt, &step.SentAt, &step.TriggeredBy, &step.Body, &step.TouchTaskLogID,
		&step.CreatedAt, &step.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	step.Channel = cadence.Channel(channel)
	return &step, nil
}

// CreateStep inserts a step. A duplicate (sequence, order) returns ErrStepConflict.
func (q *Queries) CreateStep(ctx context.Context, input StepInput) (*Step, error) {
	if !input.Channel.Valid() {
		return nil, fmt.Errorf("invalid channel %q", input.Channel)
	}

	row := q.q.QueryRow(ctx,
		`INSERT INTO cadence_steps AS st
		     (sequence_id, step_order, status, channel, scheduled_at, next_step_ready_at, triggered_by)
		 VALUES ($1, $2, $3, $4, $5, $5, $6)
		 RETURNING `+stepColumns,
		input.SequenceID, input.StepOrder, input.Status, string(input.Channel), input.ScheduledAt, input.TriggeredBy,
	)
	step, err := scanStep(row)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return nil, ErrStepConflict
		}
		if pgErrorCode(err) == pgForeignKeyViolation {
			return nil, ErrSequenceNotFound
		}
		return nil, fmt.Errorf("failed to create step: %w", err)
	}
	return step, nil
}

// ListSteps returns a sequence's steps ordered by step order.
func (q *Queries) ListSteps(ctx context.Context, sequenceID uuid.UUID) ([]Step, error) {
	rows, err := q.q.Query(ctx,
		`SELECT `+stepColumns+`
		 FROM cadence_steps st
		 WHERE st.sequence_id = $1
		 ORDER BY st.step_order`,
		sequenceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, *step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	return steps, nil
}

// FindStep loads a step and locks its row for the rest of the transaction.
func (q *Queries) FindStep(ctx context.Context, id uuid.UUID) (*Step, error) {
	row := q.q.QueryRow(ctx,
		`SELECT `+stepColumns+`
		 FROM cadence_steps st
		 WHERE st.id = $1
		 FOR UPDATE`,
		id,
	)
	step, err := scanStep(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStepNotFound
		}
		return nil, fmt.Errorf("failed to get step: %w", err)
	}
	return step, nil
}

// FindDueSteps claims up to limit drafted steps of active sequences that are ready at or
// before readyBefore. Rows are locked with SKIP LOCKED, so concurrent sweeps in other
// transactions never receive the same step.
func (q *Queries) FindDueSteps(ctx context.Context, readyBefore time.Time, limit int) ([]DueStep, error) {
	rows, err := q.q.Query(ctx,
		`SELECT `+stepColumns+`, s.contact_id, s.prospect_id
		 FROM cadence_steps st
		 JOIN cadence_sequences s ON s.id = st.sequence_id
		 WHERE st.status = $1
		   AND st.next_step_ready_at <= $2
		   AND s.status = $3
		 ORDER BY st.next_step_ready_at, st.id
		 LIMIT $4
		 FOR UPDATE OF st SKIP LOCKED`,
		StepStatusDrafted, readyBefore, SequenceStatusActive, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find due steps: %w", err)
	}
	defer rows.Close()

	due := []DueStep{}
	for rows.Next() {
		var d DueStep
		step, err := scanStep(rows, &d.ContactID, &d.ProspectID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due step: %w", err)
		}
		d.Step = *step
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find due steps: %w", err)
	}
	return due, nil
}

// UpdateStep sets a step's status and, when logID is non-nil, links its touch task log.
func (q *Queries) UpdateStep(ctx context.Context, id uuid.UUID, status string, logID *uuid.UUID) error {
	tag, err := q.q.Exec(ctx,
		`UPDATE cadence_steps
		 SET status = $2, touch_task_log_id = COALESCE($3, touch_task_log_id), updated_at = NOW()
		 WHERE id = $1`,
		id, status, logID,
	)
	if err != nil {
		return fmt.Errorf("failed to update step: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStepNotFound
	}
	return nil
}

// MarkStepCompleted records a delivered touch. The first completion time is kept.
func (q *Queries) MarkStepCompleted(ctx context.Context, id uuid.UUID, status string, completedAt time.Time) error {
	tag, err := q.q.Exec(ctx,
		`UPDATE cadence_steps
		 SET status = $2, sent_at = COALESCE(sent_at, $3), updated_at = NOW()
		 WHERE id = $1`,
		id, status, completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark step completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStepNotFound
	}
	return nil
}

// CloseOpenSteps moves every drafted or queued step of the sequence to CLOSED_LOST.
func (q *Queries) CloseOpenSteps(ctx context.Context, sequenceID uuid.UUID) (int, error) {
	tag, err := q.q.Exec(ctx,
		`UPDATE cadence_steps
		 SET status = $2, updated_at = NOW()
		 WHERE sequence_id = $1 AND status IN ($3, $4)`,
		sequenceID, StepStatusClosedLost, StepStatusDrafted, StepStatusQueued,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to close open steps: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
