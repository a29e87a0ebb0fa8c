package outreach

import (
	"errors"

	"github.com/jonathan/outreach-cadence/internal/db"
)

// Store errors surfaced by the engine.
var (
	ErrSequenceNotFound     = db.ErrSequenceNotFound
	ErrStepNotFound         = db.ErrStepNotFound
	ErrContactNotFound      = db.ErrContactNotFound
	ErrStepConflict         = db.ErrStepConflict
	ErrActiveSequenceExists = db.ErrActiveSequenceExists
)

// ErrInvalidTransition is returned when a step cannot move to the requested status.
var ErrInvalidTransition = errors.New("invalid step status transition")

// ErrSequenceClosed is returned when pausing or resuming a sequence that already closed.
var ErrSequenceClosed = errors.New("sequence is closed")
