package cadence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func touchesAt(n int, start time.Time) []CompletedTouch {
	touches := make([]CompletedTouch, n)
	for i := range touches {
		touches[i] = CompletedTouch{
			CompletedAt: start.Add(time.Duration(i) * 24 * time.Hour),
			Channel:     ChannelEmail,
			StepOrder:   i + 1,
		}
	}
	return touches
}

func fullChannels() ContactChannels {
	return ContactChannels{
		Email:       strPtr("a@example.com"),
		Phone:       strPtr("+15550100"),
		LinkedInURL: strPtr("https://linkedin.com/in/a"),
	}
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, 3, DefaultConfig.BaseDelayDays)
	assert.Equal(t, 1, DefaultConfig.EngagedDelayDays)
	assert.Equal(t, 4, DefaultConfig.MaxTouches)
	assert.NoError(t, DefaultConfig.Validate())
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{BaseDelayDays: 3, EngagedDelayDays: 1, MaxTouches: 0}.Validate())
	assert.Error(t, Config{BaseDelayDays: -1, EngagedDelayDays: 1, MaxTouches: 4}.Validate())
	assert.NoError(t, Config{BaseDelayDays: 0, EngagedDelayDays: 0, MaxTouches: 1}.Validate())
}

func TestComputeState_ExhaustionClearsNextAction(t *testing.T) {
	for maxTouches := 1; maxTouches <= 6; maxTouches++ {
		cfg := Config{BaseDelayDays: 3, EngagedDelayDays: 1, MaxTouches: maxTouches}
		for n := 0; n <= maxTouches+2; n++ {
			state := ComputeState(touchesAt(n, baseTime), EngagementSignals{}, fullChannels(), cfg)

			assert.Equal(t, n, state.TouchCount)
			if n >= maxTouches {
				assert.True(t, state.IsExhausted, "max=%d n=%d", maxTouches, n)
				assert.Empty(t, state.NextChannel, "max=%d n=%d", maxTouches, n)
				assert.Nil(t, state.NextScheduledAt, "max=%d n=%d", maxTouches, n)
			} else {
				assert.False(t, state.IsExhausted, "max=%d n=%d", maxTouches, n)
				assert.NotEmpty(t, state.NextChannel, "max=%d n=%d", maxTouches, n)
			}
		}
	}
}

func TestComputeState_EngagementDrivesDelay(t *testing.T) {
	cfg := Config{BaseDelayDays: 5, EngagedDelayDays: 2, MaxTouches: 4}

	for step := 0; step <= 6; step++ {
		for _, pdf := range []bool{false, true} {
			signals := EngagementSignals{WizardMaxStep: step, PDFDownloaded: pdf}
			state := ComputeState(touchesAt(1, baseTime), signals, fullChannels(), cfg)

			if step >= 3 || pdf {
				assert.Equal(t, EngagementHigh, state.EngagementLevel, "step=%d pdf=%v", step, pdf)
				assert.Equal(t, cfg.EngagedDelayDays, state.DelayDays)
			} else {
				assert.Equal(t, EngagementNormal, state.EngagementLevel, "step=%d pdf=%v", step, pdf)
				assert.Equal(t, cfg.BaseDelayDays, state.DelayDays)
			}
		}
	}
}

func TestComputeState_EmailOpensNeverChangeResult(t *testing.T) {
	for _, signals := range []EngagementSignals{
		{},
		{WizardMaxStep: 2},
		{WizardMaxStep: 3},
		{PDFDownloaded: true},
	} {
		baseline := ComputeState(touchesAt(2, baseTime), signals, fullChannels(), DefaultConfig)
		for _, opens := range []int{1, 5, 250} {
			mutated := signals
			mutated.EmailOpens = opens
			got := ComputeState(touchesAt(2, baseTime), mutated, fullChannels(), DefaultConfig)
			assert.Equal(t, baseline, got, "opens=%d", opens)
		}
	}
}

func TestComputeState_RotationIsTouchCountModulo(t *testing.T) {
	cfg := Config{BaseDelayDays: 3, EngagedDelayDays: 1, MaxTouches: 20}
	for _, channels := range []ContactChannels{
		fullChannels(),
		{Email: strPtr("a@example.com")},
		{Email: strPtr("a@example.com"), Phone: strPtr("+15550100")},
		{Email: strPtr("a@example.com"), LinkedInURL: strPtr("https://linkedin.com/in/a")},
	} {
		available := ResolveChannels(channels)
		for n := 0; n < 10; n++ {
			state := ComputeState(touchesAt(n, baseTime), EngagementSignals{}, channels, cfg)
			assert.Equal(t, available[n%len(available)], state.NextChannel, "n=%d", n)
		}
	}
}

func TestComputeState_FirstTouchIsEmailAndImmediate(t *testing.T) {
	for _, signals := range []EngagementSignals{{}, {PDFDownloaded: true}} {
		state := ComputeState(nil, signals, ContactChannels{Phone: strPtr("+15550100")}, DefaultConfig)

		assert.Equal(t, 0, state.TouchCount)
		assert.Equal(t, ChannelEmail, state.NextChannel)
		assert.Nil(t, state.LastTouchAt)
		assert.Nil(t, state.NextScheduledAt)
		assert.False(t, state.IsExhausted)
	}
}

func TestComputeState_LastTouchIsLatestNotLast(t *testing.T) {
	later := baseTime.Add(48 * time.Hour)
	touches := []CompletedTouch{
		{CompletedAt: later, Channel: ChannelEmail, StepOrder: 1},
		{CompletedAt: baseTime, Channel: ChannelCall, StepOrder: 2},
	}

	state := ComputeState(touches, EngagementSignals{}, fullChannels(), DefaultConfig)

	require.NotNil(t, state.LastTouchAt)
	assert.Equal(t, later, *state.LastTouchAt)
	require.NotNil(t, state.NextScheduledAt)
	assert.Equal(t, later.Add(72*time.Hour), *state.NextScheduledAt)
}

func TestComputeState_SecondTouchWaitsBaseDelay(t *testing.T) {
	now := time.Now()
	touches := []CompletedTouch{
		{CompletedAt: now.Add(-72 * time.Hour), Channel: ChannelEmail, StepOrder: 1},
	}

	state := ComputeState(touches, EngagementSignals{}, fullChannels(), DefaultConfig)

	assert.Equal(t, 3, state.DelayDays)
	assert.False(t, state.IsExhausted)
	assert.Equal(t, ChannelCall, state.NextChannel)
	require.NotNil(t, state.NextScheduledAt)
	assert.WithinDuration(t, now, *state.NextScheduledAt, time.Second)
}

func TestComputeState_ExhaustedAtExactlyMax(t *testing.T) {
	cfg := Config{BaseDelayDays: 3, EngagedDelayDays: 1, MaxTouches: 2}

	assert.False(t, ComputeState(touchesAt(1, baseTime), EngagementSignals{}, fullChannels(), cfg).IsExhausted)
	assert.True(t, ComputeState(touchesAt(2, baseTime), EngagementSignals{}, fullChannels(), cfg).IsExhausted)
	assert.True(t, ComputeState(touchesAt(4, baseTime), EngagementSignals{}, fullChannels(), cfg).IsExhausted)
}
