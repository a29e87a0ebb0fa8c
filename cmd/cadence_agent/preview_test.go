package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const engagedPreview = `{
  "touches": [{"completed_at": "2024-03-10T12:00:00Z", "channel": "email", "step_order": 1}],
  "signals": {"wizard_max_step": 3},
  "channels": {"email": "ana@example.com", "phone": "+15550100"}
}`

func writePreview(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preview.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestPreviewCommand_JSON(t *testing.T) {
	out, err := executeCommand(t, "", "preview", "--input", writePreview(t, engagedPreview), "--json")
	require.NoError(t, err)

	var state cadence.State
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, 1, state.TouchCount)
	assert.Equal(t, cadence.EngagementHigh, state.EngagementLevel)
	assert.Equal(t, 1, state.DelayDays)
	assert.Equal(t, cadence.ChannelCall, state.NextChannel)
	require.NotNil(t, state.NextScheduledAt)
	assert.True(t, state.NextScheduledAt.Equal(time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)))
}

func TestPreviewCommand_Boxed(t *testing.T) {
	out, err := executeCommand(t, "", "preview", "--input", writePreview(t, engagedPreview))
	require.NoError(t, err)

	assert.Contains(t, out, "TOUCH HISTORY")
	assert.Contains(t, out, "CADENCE STATE")
	assert.Contains(t, out, "2024-03-11 12:00 UTC")
}

func TestPreviewCommand_Stdin(t *testing.T) {
	out, err := executeCommand(t, `{"config": {"max_touches": 1}, "touches": [{"completed_at": "2024-03-10T12:00:00Z"}]}`,
		"preview", "--input", "-", "--json")
	require.NoError(t, err)

	var state cadence.State
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.True(t, state.IsExhausted)
	assert.Empty(t, state.NextChannel)
}

func TestPreviewCommand_Errors(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		errorString string
	}{
		{
			name:        "missing --input",
			args:        []string{"preview"},
			errorString: "required",
		},
		{
			name:        "missing file",
			args:        []string{"preview", "--input", filepath.Join(t.TempDir(), "nope.json")},
			errorString: "failed to read input",
		},
		{
			name:        "unknown channel",
			args:        []string{"preview", "--input", writePreview(t, `{"touches": [{"completed_at": "2024-03-10T12:00:00Z", "channel": "fax"}]}`)},
			errorString: "channel",
		},
		{
			name:        "zero max touches",
			args:        []string{"preview", "--input", writePreview(t, `{"config": {"max_touches": 0}}`)},
			errorString: "max_touches",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestParsePreviewInput_KeepsConfigDefaults(t *testing.T) {
	input, err := parsePreviewInput([]byte(`{"config": {"base_delay_days": 5}}`))
	require.NoError(t, err)

	assert.Equal(t, 5, input.Config.BaseDelayDays)
	assert.Equal(t, cadence.DefaultConfig.EngagedDelayDays, input.Config.EngagedDelayDays)
	assert.Equal(t, cadence.DefaultConfig.MaxTouches, input.Config.MaxTouches)
}
