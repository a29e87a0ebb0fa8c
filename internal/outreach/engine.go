package outreach

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/db"
	"go.uber.org/zap"
)

// Engine bundles the intake, scheduler, tracker and promoter over one store and cadence config.
type Engine struct {
	intake    *Intake
	scheduler *Scheduler
	tracker   *Tracker
	promoter  *Promoter
	cfg       cadence.Config
}

// NewEngine wires the cadence components. A nil publisher discards events.
func NewEngine(store Store, publisher Publisher, cfg cadence.Config, logger *zap.Logger) *Engine {
	scheduler := NewScheduler(store, publisher, logger)
	return &Engine{
		intake:    NewIntake(store, scheduler, cfg, logger),
		scheduler: scheduler,
		tracker:   NewTracker(store, scheduler, cfg, publisher, logger),
		promoter:  NewPromoter(store, publisher, logger),
		cfg:       cfg,
	}
}

// Config returns the cadence config the engine evaluates with.
func (e *Engine) Config() cadence.Config {
	return e.cfg
}

func (e *Engine) setClock(now func() time.Time) {
	e.scheduler.now = now
	e.tracker.now = now
	e.promoter.now = now
}

// CreateContact stores a contact's reachability data.
func (e *Engine) CreateContact(ctx context.Context, input db.ContactInput) (*db.Contact, error) {
	return e.intake.CreateContact(ctx, input)
}

// StartSequence opens a sequence for the contact and drafts its first step.
func (e *Engine) StartSequence(ctx context.Context, contactID, prospectID uuid.UUID) (*db.Sequence, EvaluateResult, error) {
	return e.intake.StartSequence(ctx, contactID, prospectID)
}

// GetSequence loads a sequence with its contact and steps.
func (e *Engine) GetSequence(ctx context.Context, id uuid.UUID) (*db.Sequence, error) {
	return e.intake.GetSequence(ctx, id)
}

// PauseSequence stops cadence decisions for an active sequence.
func (e *Engine) PauseSequence(ctx context.Context, id uuid.UUID) (*db.Sequence, error) {
	return e.intake.PauseSequence(ctx, id)
}

// ResumeSequence reactivates a paused sequence and evaluates it.
func (e *Engine) ResumeSequence(ctx context.Context, id uuid.UUID) (*db.Sequence, EvaluateResult, error) {
	return e.intake.ResumeSequence(ctx, id)
}

// RecordEngagement merges engagement signals for a prospect.
func (e *Engine) RecordEngagement(ctx context.Context, prospectID uuid.UUID, signals cadence.EngagementSignals) (*db.EngagementRecord, error) {
	return e.intake.RecordEngagement(ctx, prospectID, signals)
}

// Evaluate runs the scheduler for one sequence.
func (e *Engine) Evaluate(ctx context.Context, sequenceID uuid.UUID) (EvaluateResult, error) {
	return e.scheduler.Evaluate(ctx, sequenceID, e.cfg)
}

// RecordCompletion records a delivered touch.
func (e *Engine) RecordCompletion(ctx context.Context, c Completion) (CompletionResult, error) {
	return e.tracker.RecordCompletion(ctx, c)
}

// PromoteDueSteps turns due drafted steps into touch tasks.
func (e *Engine) PromoteDueSteps(ctx context.Context) (PromoteResult, error) {
	return e.promoter.PromoteDueSteps(ctx)
}
