package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWrappedInProse(t *testing.T) {
	raw := `Sure! Here is the structured request you asked for:
{"action": "create", "events": [{"title": "Lunch", "startTime": "12:00", "durationMinutes": 30}]}
Let me know if you need anything else.`

	it, ok := Parse(raw)
	require.True(t, ok)
	assert.Equal(t, ActionCreate, it.Action)
	require.Len(t, it.Events, 1)
	assert.Equal(t, "Lunch", it.Events[0].Title)
	assert.Equal(t, "12:00", it.Events[0].StartTime)
	assert.Equal(t, 30, it.Events[0].DurationMinutes)
}

func TestParseActionNormalization(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Action
	}{
		{"create", `{"action": "create"}`, ActionCreate},
		{"uppercase edit", `{"action": "EDIT"}`, ActionEdit},
		{"padded delete", `{"action": "  delete "}`, ActionDelete},
		{"unrecognized verb", `{"action": "reschedule"}`, ActionUnknown},
		{"missing action", `{"events": []}`, ActionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, ok := Parse(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.want, it.Action)
		})
	}
}

func TestParseClarification(t *testing.T) {
	it, ok := Parse(`{"action": "edit", "clarification": "Which meeting do you mean?"}`)
	require.True(t, ok)
	assert.Equal(t, "Which meeting do you mean?", it.Clarification)
}

func TestParseNotAnIntent(t *testing.T) {
	for _, raw := range []string{
		"",
		"I don't understand what you want.",
		"}{",
		"unbalanced { only",
		`{"action": "create", "events": "not an array"}`,
		`{"action": 42}`,
	} {
		it, ok := Parse(raw)
		assert.False(t, ok, "expected %q not to parse", raw)
		assert.Nil(t, it)
	}
}
