// Package outreach runs the cadence engine against persisted sequences: it schedules the next
// step of a sequence, promotes due steps into touch tasks and records delivered touches.
package outreach

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/db"
)

// Repository is the persistence surface the engine needs. *db.Queries implements it.
type Repository interface {
	FindSequence(ctx context.Context, id uuid.UUID) (*db.Sequence, error)
	GetSequence(ctx context.Context, id uuid.UUID) (*db.Sequence, error)
	CreateSequence(ctx context.Context, contactID, prospectID uuid.UUID) (*db.Sequence, error)
	UpdateSequenceStatus(ctx context.Context, id uuid.UUID, status string) error

	CreateStep(ctx context.Context, input db.StepInput) (*db.Step, error)
	FindStep(ctx context.Context, id uuid.UUID) (*db.Step, error)
	FindDueSteps(ctx context.Context, readyBefore time.Time, limit int) ([]db.DueStep, error)
	UpdateStep(ctx context.Context, id uuid.UUID, status string, logID *uuid.UUID) error
	MarkStepCompleted(ctx context.Context, id uuid.UUID, status string, completedAt time.Time) error
	CloseOpenSteps(ctx context.Context, sequenceID uuid.UUID) (int, error)

	CreateTouchTaskLog(ctx context.Context, input db.TouchTaskInput) (*db.TouchTaskLog, error)

	CreateContact(ctx context.Context, input db.ContactInput) (*db.Contact, error)
	FindEngagementSignals(ctx context.Context, prospectID uuid.UUID) (*cadence.EngagementSignals, error)
	UpsertEngagementSignals(ctx context.Context, prospectID uuid.UUID, signals cadence.EngagementSignals) (*db.EngagementRecord, error)
}

// Store gives transactional scope: every call made through the Repository passed to fn
// commits together, or none do if fn returns an error.
type Store interface {
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// PostgresStore adapts *db.DB to Store.
type PostgresStore struct {
	db *db.DB
}

// NewPostgresStore creates a Store backed by PostgreSQL.
func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{db: database}
}

// WithTx implements Store.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Repository) error) error {
	return s.db.WithTx(ctx, func(q *db.Queries) error {
		return fn(q)
	})
}

var _ Repository = (*db.Queries)(nil)
