package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/cadence"
)

// SequenceStatus constants
const (
	SequenceStatusActive     = "ACTIVE"
	SequenceStatusPaused     = "PAUSED"
	SequenceStatusClosedWon  = "CLOSED_WON"
	SequenceStatusClosedLost = "CLOSED_LOST"
)

// Step status constants. DRAFTED -> QUEUED -> SENT -> {OPENED, REPLIED, BOOKED};
// CLOSED_LOST is reachable from any open status.
const (
	StepStatusDrafted    = "DRAFTED"
	StepStatusQueued     = "QUEUED"
	StepStatusSent       = "SENT"
	StepStatusOpened     = "OPENED"
	StepStatusReplied    = "REPLIED"
	StepStatusBooked     = "BOOKED"
	StepStatusClosedLost = "CLOSED_LOST"
)

// TriggeredByCadence marks steps created by the cadence scheduler.
const TriggeredByCadence = "cadence"

// Touch task constants
const (
	TouchTaskTypeFollowUp = "FOLLOW_UP"
	TouchTaskStatusOpen   = "touch_open"
)

// IsCompletedStepStatus reports whether a step in this status counts as a delivered touch.
func IsCompletedStepStatus(status string) bool {
	switch status {
	case StepStatusSent, StepStatusOpened, StepStatusReplied, StepStatusBooked:
		return true
	}
	return false
}

// IsOpenStepStatus reports whether a step is still waiting to be delivered.
func IsOpenStepStatus(status string) bool {
	return status == StepStatusDrafted || status == StepStatusQueued
}

// IsTerminalSequenceStatus reports whether a sequence no longer receives cadence decisions.
func IsTerminalSequenceStatus(status string) bool {
	return status == SequenceStatusClosedWon || status == SequenceStatusClosedLost
}

// Contact is the reachability record for one outreach target.
type Contact struct {
	ID          uuid.UUID `json:"id"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	LinkedInURL *string   `json:"linkedin_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Channels returns the contact's reachability snapshot.
func (c *Contact) Channels() cadence.ContactChannels {
	if c == nil {
		return cadence.ContactChannels{}
	}
	return cadence.ContactChannels{
		Email:       c.Email,
		Phone:       c.Phone,
		LinkedInURL: c.LinkedInURL,
	}
}

// ContactInput represents input for creating a contact
type ContactInput struct {
	Email       *string
	Phone       *string
	LinkedInURL *string
}

// Sequence is the outreach aggregate for one contact.
type Sequence struct {
	ID         uuid.UUID  `json:"id"`
	ContactID  uuid.UUID  `json:"contact_id"`
	ProspectID uuid.UUID  `json:"prospect_id"`
	Status     string     `json:"status"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Contact    *Contact   `json:"contact,omitempty"`
	Steps      []Step     `json:"steps"`
}

// Step is one planned or delivered touch within a sequence.
type Step struct {
	ID              uuid.UUID       `json:"id"`
	SequenceID      uuid.UUID       `json:"sequence_id"`
	StepOrder       int             `json:"step_order"`
	Status          string          `json:"status"`
	Channel         cadence.Channel `json:"channel"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	NextStepReadyAt time.Time       `json:"next_step_ready_at"`
	SentAt          *time.Time      `json:"sent_at,omitempty"`
	TriggeredBy     string          `json:"triggered_by"`
	Body            string          `json:"body"`
	TouchTaskLogID  *uuid.UUID      `json:"touch_task_log_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CompletedAt is the time the touch was delivered, falling back to its schedule.
func (s *Step) CompletedAt() time.Time {
	if s.SentAt != nil {
		return *s.SentAt
	}
	return s.ScheduledAt
}

// StepInput represents input for creating a step
type StepInput struct {
	SequenceID  uuid.UUID
	StepOrder   int
	Status      string
	TriggeredBy string
	Channel     cadence.Channel
	ScheduledAt time.Time
}

// DueStep is a drafted step whose ready time has passed, with its sequence context.
type DueStep struct {
	Step
	ContactID  uuid.UUID `json:"contact_id"`
	ProspectID uuid.UUID `json:"prospect_id"`
}

// TouchTaskLog is the actionable unit of work created when a step becomes due.
type TouchTaskLog struct {
	ID        uuid.UUID       `json:"id"`
	ContactID uuid.UUID       `json:"contact_id"`
	StepID    *uuid.UUID      `json:"step_id,omitempty"`
	Type      string          `json:"type"`
	Channel   cadence.Channel `json:"channel"`
	Subject   string          `json:"subject"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// TouchTaskInput represents input for creating a touch task log
type TouchTaskInput struct {
	ContactID uuid.UUID
	StepID    *uuid.UUID
	Type      string
	Channel   cadence.Channel
	Subject   string
	Status    string
}

// EngagementRecord is the stored engagement snapshot for a prospect.
type EngagementRecord struct {
	ProspectID uuid.UUID                 `json:"prospect_id"`
	Signals    cadence.EngagementSignals `json:"signals"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}
