package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sequenceSelect = `SELECT s.id, s.contact_id, s.prospect_id, s.status, s.closed_at, s.created_at, s.updated_at,
	       c.id, c.email, c.phone, c.linkedin_url, c.created_at
	FROM cadence_sequences s
	JOIN contacts c ON c.id = s.contact_id
	WHERE s.id = $1`

// CreateSequence starts an active sequence for a contact with no steps.
func (q *Queries) CreateSequence(ctx context.Context, contactID, prospectID uuid.UUID) (*Sequence, error) {
	seq := Sequence{Steps: []Step{}}
	err := q.q.QueryRow(ctx,
		`INSERT INTO cadence_sequences (contact_id, prospect_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, contact_id, prospect_id, status, closed_at, created_at, updated_at`,
		contactID, prospectID, SequenceStatusActive,
	).Scan(&seq.ID, &seq.ContactID, &seq.ProspectID, &seq.Status, &seq.ClosedAt, &seq.CreatedAt, &seq.UpdatedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return nil, ErrActiveSequenceExists
		case pgForeignKeyViolation:
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to create sequence: %w", err)
	}
	return &seq, nil
}

// FindSequence loads a sequence with its contact and steps, locking the sequence row
// until the surrounding transaction ends. That lock serializes cadence decisions per sequence.
func (q *Queries) FindSequence(ctx context.Context, id uuid.UUID) (*Sequence, error) {
	return q.findSequence(ctx, id, true)
}

// GetSequence loads a sequence with its contact and steps without locking.
func (q *Queries) GetSequence(ctx context.Context, id uuid.UUID) (*Sequence, error) {
	return q.findSequence(ctx, id, false)
}

func (q *Queries) findSequence(ctx context.Context, id uuid.UUID, lock bool) (*Sequence, error) {
	query := sequenceSelect
	if lock {
		query += ` FOR UPDATE OF s`
	}

	var seq Sequence
	var contact Contact
	err := q.q.QueryRow(ctx, query, id).Scan(
		&seq.ID, &seq.ContactID, &seq.ProspectID, &seq.Status, &seq.ClosedAt, &seq.CreatedAt, &seq.UpdatedAt,
		&contact.ID, &contact.Email, &contact.Phone, &contact.LinkedInURL, &contact.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSequenceNotFound
		}
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}
	seq.Contact = &contact

	steps, err := q.ListSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	seq.Steps = steps

	return &seq, nil
}

// UpdateSequenceStatus sets the sequence status, stamping closed_at on terminal statuses.
func (q *Queries) UpdateSequenceStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := q.q.Exec(ctx,
		`UPDATE cadence_sequences
		 SET status = $2,
		     closed_at = CASE WHEN $3 THEN COALESCE(closed_at, NOW()) ELSE closed_at END,
		     updated_at = NOW()
		 WHERE id = $1`,
		id, status, IsTerminalSequenceStatus(status),
	)
	if err != nil {
		return fmt.Errorf("failed to update sequence status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSequenceNotFound
	}
	return nil
}
