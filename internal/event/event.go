// Package event defines the calendar event model shared by the stores,
// the reconciler, and the chat surface.
package event

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Alert is the reminder offset attached to an event.
type Alert string

const (
	AlertNone      Alert = "none"
	AlertAtTime    Alert = "at_time"
	Alert5Minutes  Alert = "5m"
	Alert15Minutes Alert = "15m"
	Alert30Minutes Alert = "30m"
	Alert1Hour     Alert = "1h"
	Alert1Day      Alert = "1d"
)

// Offset returns how long before the event start the alert fires.
func (a Alert) Offset() (time.Duration, bool) {
	switch a {
	case AlertAtTime:
		return 0, true
	case Alert5Minutes:
		return 5 * time.Minute, true
	case Alert15Minutes:
		return 15 * time.Minute, true
	case Alert30Minutes:
		return 30 * time.Minute, true
	case Alert1Hour:
		return time.Hour, true
	case Alert1Day:
		return 24 * time.Hour, true
	}
	return 0, false
}

// Repeat is an event's recurrence rule. Recurrence is recorded, not
// materialized: stores persist the rule but never expand instances.
type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
	RepeatYearly  Repeat = "yearly"
)

// Event is one scheduled calendar item. ID is the identifier assigned by
// the backing store and is empty until the event has been persisted.
type Event struct {
	ID       string
	Title    string
	Start    time.Time
	End      time.Time
	Location string
	AllDay   bool
	Alert    Alert
	Repeat   Repeat
	Notes    string
	URL      string
}

// Validate checks the event invariants: a non-empty title and End > Start.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("event title must not be empty")
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("event end %s must be after start %s", e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
	}
	return nil
}

// Duration returns the event's length.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// SortByStart orders events ascending by start time, the invariant every
// snapshot maintains.
func SortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}

// Match resolves a fuzzy title reference against a snapshot. Matching is
// case-insensitive substring containment; the first event in snapshot
// order (earliest start) whose title contains the trimmed query wins.
// An empty or whitespace-only query matches nothing.
func Match(events []Event, query string) *Event {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	for i := range events {
		if strings.Contains(strings.ToLower(events[i].Title), query) {
			return &events[i]
		}
	}
	return nil
}

// NoEventsSummary is the summary text for an empty day.
const NoEventsSummary = "No events scheduled for today."

// Summary renders the context summary injected into completion prompts:
// one line per event, location segment omitted when absent.
func Summary(events []Event) string {
	if len(events) == 0 {
		return NoEventsSummary
	}

	var b strings.Builder
	for i, e := range events {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(e.Title)
		if e.Location != "" {
			b.WriteString(" @ ")
			b.WriteString(e.Location)
		}
		fmt.Fprintf(&b, " from %s to %s", e.Start.Format("3:04 PM"), e.End.Format("3:04 PM"))
	}
	return b.String()
}
