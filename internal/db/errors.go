package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrSequenceNotFound is returned when no sequence row exists for the identifier.
	ErrSequenceNotFound = errors.New("sequence not found")
	// ErrStepNotFound is returned when no step row exists for the identifier.
	ErrStepNotFound = errors.New("step not found")
	// ErrContactNotFound is returned when a referenced contact does not exist.
	ErrContactNotFound = errors.New("contact not found")
	// ErrStepConflict signals that a step with the same order already exists in the sequence.
	ErrStepConflict = errors.New("step order already exists for sequence")
	// ErrActiveSequenceExists signals that the contact already has an active or paused sequence.
	ErrActiveSequenceExists = errors.New("contact already has an active sequence")
)

// PostgreSQL error codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
