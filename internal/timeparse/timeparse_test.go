package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAbsolute(t *testing.T) {
	ref := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

	t.Run("rfc3339 passes through untouched", func(t *testing.T) {
		got, ok := Resolve("2025-03-10T14:30:00Z", ref)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC), got)
	})

	t.Run("rfc3339 keeps its own offset", func(t *testing.T) {
		got, ok := Resolve("2025-03-10T14:30:00+02:00", ref)
		require.True(t, ok)
		_, offset := got.Zone()
		assert.Equal(t, 2*60*60, offset)
		assert.Equal(t, 14, got.Hour())
	})

	t.Run("zoneless iso resolves in reference location", func(t *testing.T) {
		loc := time.FixedZone("PST", -8*60*60)
		localRef := time.Date(2025, time.March, 10, 8, 0, 0, 0, loc)

		got, ok := Resolve("2025-03-11T09:15", localRef)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 11, 9, 15, 0, 0, loc), got)
	})
}

func TestResolveBareTimes(t *testing.T) {
	ref := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		hour int
		min  int
	}{
		{"24-hour with minutes", "14:30", 14, 30},
		{"24-hour single digit hour", "9:05", 9, 5},
		{"compact military", "1430", 14, 30},
		{"12-hour no minutes", "3 PM", 15, 0},
		{"12-hour with minutes", "3:04 PM", 15, 4},
		{"12-hour dot separator", "3.04 PM", 15, 4},
		{"lowercase meridiem", "3 pm", 15, 0},
		{"lowercase with minutes", "3:04 pm", 15, 4},
		{"mixed-case meridiem", "9:30 Am", 9, 30},
		{"noon", "12:00 PM", 12, 0},
		{"leading and trailing spaces", "  14:30  ", 14, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.text, ref)
			require.True(t, ok, "expected %q to resolve", tt.text)

			want := time.Date(2025, time.March, 10, tt.hour, tt.min, 0, 0, time.UTC)
			assert.Equal(t, want, got, "bare time must anchor to the reference date")
			assert.Zero(t, got.Second())
		})
	}
}

func TestResolveUnrecognized(t *testing.T) {
	ref := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

	for _, text := range []string{"", "   ", "not a time", "noon", "25:99", "tomorrow"} {
		_, ok := Resolve(text, ref)
		assert.False(t, ok, "expected %q not to resolve", text)
	}
}

func TestResolveEnd(t *testing.T) {
	ref := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

	t.Run("explicit end wins", func(t *testing.T) {
		got, ok := ResolveEnd("12:00", "13:30", 60, ref)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 10, 13, 30, 0, 0, time.UTC), got)
	})

	t.Run("missing end falls back to start plus duration", func(t *testing.T) {
		got, ok := ResolveEnd("12:00", "", 30, ref)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 10, 12, 30, 0, 0, time.UTC), got)
	})

	t.Run("garbled end falls back too", func(t *testing.T) {
		got, ok := ResolveEnd("12:00", "later", 45, ref)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 10, 12, 45, 0, 0, time.UTC), got)
	})

	t.Run("unresolvable start fails", func(t *testing.T) {
		_, ok := ResolveEnd("whenever", "", 60, ref)
		assert.False(t, ok)
	})
}
