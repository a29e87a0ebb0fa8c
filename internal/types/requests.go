// Package types provides request and response shapes for the cadence admin API.
package types

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrNoReachableChannel is returned when a contact has no way to be reached.
var ErrNoReachableChannel = errors.New("at least one of email, phone or linkedin_url is required")

// CreateContactRequest represents the request to register a contact.
type CreateContactRequest struct {
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,min=3"`
	LinkedInURL *string `json:"linkedin_url,omitempty" validate:"omitempty,url"`
}

// StartSequenceRequest represents the request to start a sequence for a contact.
type StartSequenceRequest struct {
	ContactID  string `json:"contact_id" validate:"required,uuid"`
	ProspectID string `json:"prospect_id" validate:"required,uuid"`
}

// CompleteStepRequest reports the delivery outcome of a queued touch.
type CompleteStepRequest struct {
	Status      string     `json:"status" validate:"required,oneof=SENT OPENED REPLIED BOOKED"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// EngagementRequest carries engagement signals for a prospect.
type EngagementRequest struct {
	WizardMaxStep int  `json:"wizard_max_step" validate:"gte=0"`
	PDFDownloaded bool `json:"pdf_downloaded"`
	EmailOpens    int  `json:"email_opens" validate:"gte=0"`
}

// TokenRequest exchanges the admin password for an API token.
type TokenRequest struct {
	Password string `json:"password" validate:"required"`
	Subject  string `json:"subject,omitempty" validate:"omitempty,max=64"`
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Validate validates the CreateContactRequest using the validator. Blank channels are
// cleared to nil first, so they count as absent rather than malformed.
func (r *CreateContactRequest) Validate() error {
	r.Email = nilIfBlank(r.Email)
	r.Phone = nilIfBlank(r.Phone)
	r.LinkedInURL = nilIfBlank(r.LinkedInURL)

	if r.Email == nil && r.Phone == nil && r.LinkedInURL == nil {
		return ErrNoReachableChannel
	}
	return validator.New().Struct(r)
}

func nilIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Validate validates the StartSequenceRequest using the validator.
func (r *StartSequenceRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the CompleteStepRequest using the validator.
func (r *CompleteStepRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the EngagementRequest using the validator.
func (r *EngagementRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the TokenRequest using the validator.
func (r *TokenRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
