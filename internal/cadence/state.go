package cadence

import "time"

// EngagementLevel classifies how engaged a prospect is.
type EngagementLevel string

// EngagementLevel constants
const (
	EngagementNormal EngagementLevel = "normal"
	EngagementHigh   EngagementLevel = "high"
)

// WizardStepThreshold is the discovery-wizard depth at which a prospect counts as highly engaged.
const WizardStepThreshold = 3

// EngagementSignals are point-in-time engagement facts for one prospect.
//
// EmailOpens is kept for reporting only. Privacy proxies prefetch tracking pixels, so
// opens are never used for timing and ComputeState does not read the field.
type EngagementSignals struct {
	WizardMaxStep int  `json:"wizard_max_step"`
	PDFDownloaded bool `json:"pdf_downloaded"`
	EmailOpens    int  `json:"email_opens,omitempty"`
}

// Level returns the engagement level implied by the signals.
func (s EngagementSignals) Level() EngagementLevel {
	if s.WizardMaxStep >= WizardStepThreshold || s.PDFDownloaded {
		return EngagementHigh
	}
	return EngagementNormal
}

// CompletedTouch is a touch that has already been delivered.
type CompletedTouch struct {
	CompletedAt time.Time `json:"completed_at"`
	Channel     Channel   `json:"channel"`
	StepOrder   int       `json:"step_order"`
}

// State is the cadence decision for a sequence at a point in time.
//
// A nil NextScheduledAt with a non-empty NextChannel means the next touch is due now.
type State struct {
	TouchCount      int             `json:"touch_count"`
	EngagementLevel EngagementLevel `json:"engagement_level"`
	DelayDays       int             `json:"delay_days"`
	IsExhausted     bool            `json:"is_exhausted"`
	NextChannel     Channel         `json:"next_channel,omitempty"`
	LastTouchAt     *time.Time      `json:"last_touch_at,omitempty"`
	NextScheduledAt *time.Time      `json:"next_scheduled_at,omitempty"`
}

// ComputeState derives the cadence state from completed touches, engagement, reachability and config.
func ComputeState(touches []CompletedTouch, signals EngagementSignals, channels ContactChannels, cfg Config) State {
	state := State{
		TouchCount:      len(touches),
		EngagementLevel: signals.Level(),
	}

	state.DelayDays = cfg.BaseDelayDays
	if state.EngagementLevel == EngagementHigh {
		state.DelayDays = cfg.EngagedDelayDays
	}

	state.IsExhausted = state.TouchCount >= cfg.MaxTouches

	for _, t := range touches {
		if state.LastTouchAt == nil || t.CompletedAt.After(*state.LastTouchAt) {
			at := t.CompletedAt
			state.LastTouchAt = &at
		}
	}

	if state.IsExhausted {
		return state
	}

	available := ResolveChannels(channels)
	state.NextChannel = available[state.TouchCount%len(available)]

	if state.LastTouchAt != nil {
		next := state.LastTouchAt.Add(time.Duration(state.DelayDays) * 24 * time.Hour)
		state.NextScheduledAt = &next
	}

	return state
}
