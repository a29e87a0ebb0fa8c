package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/outreach-cadence/internal/outreach"
	"github.com/jonathan/outreach-cadence/internal/types"
)

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid credentials"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		credentials *ErrInvalidCredentials
		validation  *ErrValidation
		fieldErrs   validator.ValidationErrors
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &fieldErrs), errors.Is(err, types.ErrNoReachableChannel):
		return http.StatusBadRequest
	case errors.As(err, &credentials):
		return http.StatusUnauthorized
	case errors.Is(err, outreach.ErrSequenceNotFound),
		errors.Is(err, outreach.ErrStepNotFound),
		errors.Is(err, outreach.ErrContactNotFound):
		return http.StatusNotFound
	case errors.Is(err, outreach.ErrActiveSequenceExists),
		errors.Is(err, outreach.ErrStepConflict),
		errors.Is(err, outreach.ErrInvalidTransition),
		errors.Is(err, outreach.ErrSequenceClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
