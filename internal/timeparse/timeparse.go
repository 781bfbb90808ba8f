// Package timeparse resolves the time expressions found in assistant
// intents — absolute ISO-8601 timestamps or bare times of day — into
// concrete timestamps anchored to a reference date.
package timeparse

import (
	"strings"
	"time"
)

// zonelessLayouts cover ISO timestamps without an embedded zone; they
// resolve in the reference date's location.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// bareTimeLayouts are tried in this exact order and the first layout that
// parses wins, so an ambiguous string always resolves the same way.
var bareTimeLayouts = []string{
	"15:04",   // 24-hour HH:mm and H:mm
	"1504",    // compact HHmm
	"3 PM",    // 12-hour
	"3:04 PM", // 12-hour with minutes
	"3.04 PM", // 12-hour with dot separator
}

// Resolve parses text into an absolute timestamp. Absolute ISO-8601 values
// are returned as parsed; a bare time of day is combined with ref's date
// (year/month/day) and location, seconds forced to zero. The second return
// is false when no recognized format matches — callers fall back to other
// signals rather than treating this as an error.
func Resolve(text string, ref time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	// RFC 3339 honors any embedded zone offset.
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, true
	}

	for _, layout := range zonelessLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, ref.Location()), true
		}
	}

	// The 12-hour layouts want an uppercase meridiem, which model output
	// does not guarantee.
	upper := strings.ToUpper(text)
	for _, layout := range bareTimeLayouts {
		t, err := time.Parse(layout, upper)
		if err != nil {
			continue
		}
		resolved := time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), 0, 0, ref.Location())
		return resolved, true
	}

	return time.Time{}, false
}

// ResolveEnd computes an event's end time. A directly resolvable endText
// wins; otherwise the end is the resolved start plus fallbackMinutes.
// Returns false when the start itself cannot be resolved.
func ResolveEnd(startText, endText string, fallbackMinutes int, ref time.Time) (time.Time, bool) {
	if end, ok := Resolve(endText, ref); ok {
		return end, true
	}

	start, ok := Resolve(startText, ref)
	if !ok {
		return time.Time{}, false
	}
	return start.Add(time.Duration(fallbackMinutes) * time.Minute), true
}
