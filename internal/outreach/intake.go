package outreach

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/db"
	"go.uber.org/zap"
)

// Intake admits contacts and sequences into the engine.
type Intake struct {
	store     Store
	scheduler *Scheduler
	cfg       cadence.Config
	logger    *zap.Logger
}

// NewIntake creates an intake that evaluates new sequences with cfg.
func NewIntake(store Store, scheduler *Scheduler, cfg cadence.Config, logger *zap.Logger) *Intake {
	return &Intake{
		store:     store,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger.Named("intake"),
	}
}

// CreateContact stores a contact's reachability data.
func (i *Intake) CreateContact(ctx context.Context, input db.ContactInput) (*db.Contact, error) {
	var contact *db.Contact
	err := i.store.WithTx(ctx, func(repo Repository) error {
		var err error
		contact, err = repo.CreateContact(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// StartSequence opens an ACTIVE sequence for the contact and drafts its first step,
// which is ready immediately.
func (i *Intake) StartSequence(ctx context.Context, contactID, prospectID uuid.UUID) (*db.Sequence, EvaluateResult, error) {
	var seq *db.Sequence
	err := i.store.WithTx(ctx, func(repo Repository) error {
		var err error
		seq, err = repo.CreateSequence(ctx, contactID, prospectID)
		return err
	})
	if err != nil {
		return nil, EvaluateResult{}, fmt.Errorf("failed to start sequence: %w", err)
	}

	i.logger.Info("sequence started",
		zap.String("sequence_id", seq.ID.String()),
		zap.String("contact_id", contactID.String()),
	)

	result, err := i.scheduler.Evaluate(ctx, seq.ID, i.cfg)
	if err != nil {
		return seq, EvaluateResult{}, err
	}
	return seq, result, nil
}

// PauseSequence stops cadence decisions and promotions for an ACTIVE sequence. Its drafted
// steps stay in place and become due again after ResumeSequence. Pausing a paused sequence
// is a no-op.
func (i *Intake) PauseSequence(ctx context.Context, id uuid.UUID) (*db.Sequence, error) {
	return i.setStatus(ctx, id, db.SequenceStatusActive, db.SequenceStatusPaused)
}

// ResumeSequence reactivates a PAUSED sequence and evaluates it, so a sequence paused
// before its next step was drafted gets one.
func (i *Intake) ResumeSequence(ctx context.Context, id uuid.UUID) (*db.Sequence, EvaluateResult, error) {
	seq, err := i.setStatus(ctx, id, db.SequenceStatusPaused, db.SequenceStatusActive)
	if err != nil {
		return nil, EvaluateResult{}, err
	}

	result, err := i.scheduler.Evaluate(ctx, id, i.cfg)
	if err != nil {
		return seq, EvaluateResult{}, err
	}
	return seq, result, nil
}

// setStatus moves a sequence from one non-terminal status to another. A sequence already in
// the target status is returned unchanged.
func (i *Intake) setStatus(ctx context.Context, id uuid.UUID, from, to string) (*db.Sequence, error) {
	unlock := i.scheduler.locks.Lock(id)
	defer unlock()

	var seq *db.Sequence
	changed := false
	err := i.store.WithTx(ctx, func(repo Repository) error {
		var err error
		seq, err = repo.FindSequence(ctx, id)
		if err != nil {
			return err
		}

		switch seq.Status {
		case to:
			return nil
		case from:
		default:
			return fmt.Errorf("%w: status is %s", ErrSequenceClosed, seq.Status)
		}

		if err := repo.UpdateSequenceStatus(ctx, id, to); err != nil {
			return err
		}
		seq.Status = to
		changed = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set sequence %s to %s: %w", id, to, err)
	}

	if changed {
		i.logger.Info("sequence status changed",
			zap.String("sequence_id", id.String()),
			zap.String("from", from),
			zap.String("to", to),
		)
	}
	return seq, nil
}

// GetSequence loads a sequence with its contact and steps.
func (i *Intake) GetSequence(ctx context.Context, id uuid.UUID) (*db.Sequence, error) {
	var seq *db.Sequence
	err := i.store.WithTx(ctx, func(repo Repository) error {
		var err error
		seq, err = repo.GetSequence(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return seq, nil
}

// RecordEngagement merges engagement signals for a prospect.
func (i *Intake) RecordEngagement(ctx context.Context, prospectID uuid.UUID, signals cadence.EngagementSignals) (*db.EngagementRecord, error) {
	var rec *db.EngagementRecord
	err := i.store.WithTx(ctx, func(repo Repository) error {
		var err error
		rec, err = repo.UpsertEngagementSignals(ctx, prospectID, signals)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
