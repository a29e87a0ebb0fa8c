package db

import (
	"context"
	"fmt"

	"github.com/jonathan/outreach-cadence/internal/cadence"
)

// CreateTouchTaskLog records a follow-up task for a contact.
func (q *Queries) CreateTouchTaskLog(ctx context.Context, input TouchTaskInput) (*TouchTaskLog, error) {
	var log TouchTaskLog
	var channel string
	err := q.q.QueryRow(ctx,
		`INSERT INTO touch_task_logs (contact_id, step_id, type, channel, subject, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, contact_id, step_id, type, channel, subject, status, created_at`,
		input.ContactID, input.StepID, input.Type, string(input.Channel), input.Subject, input.Status,
	).Scan(&log.ID, &log.ContactID, &log.StepID, &log.Type, &channel, &log.Subject, &log.Status, &log.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to create touch task log: %w", err)
	}
	log.Channel = cadence.Channel(channel)
	return &log, nil
}
