// Package intent defines the structured interpretation of a user
// utterance and the tolerant parser that extracts it from raw model
// output.
package intent

import (
	"encoding/json"
	"strings"
)

// Action is the calendar operation an intent requests.
type Action string

const (
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionUnknown Action = "unknown"
)

// EventSpec is one proposed event inside an intent. StartTime and EndTime
// carry raw time expressions (ISO-8601 or bare time of day) that the
// reconciler resolves per use; nothing here is stored persistently.
type EventSpec struct {
	Title           string `json:"title,omitempty"`
	NewTitle        string `json:"newTitle,omitempty"`
	StartTime       string `json:"startTime,omitempty"`
	EndTime         string `json:"endTime,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

// Intent is the structured interpretation of one user utterance. A
// non-empty Clarification means the action must not be executed and the
// text is surfaced to the user instead.
type Intent struct {
	Action        Action      `json:"action"`
	Clarification string      `json:"clarification,omitempty"`
	Events        []EventSpec `json:"events,omitempty"`
}

// Parse extracts an Intent from raw completion output. The output is not
// guaranteed to be pure JSON — the model may wrap it in prose — so the
// substring between the first '{' and the last '}' is treated as the
// payload. A missing bracket or a decode failure returns ok=false; this
// is an expected, frequent condition, not an error.
func Parse(raw string) (*Intent, bool) {
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first < 0 || last <= first {
		return nil, false
	}

	var it Intent
	if err := json.Unmarshal([]byte(raw[first:last+1]), &it); err != nil {
		return nil, false
	}

	switch Action(strings.ToLower(strings.TrimSpace(string(it.Action)))) {
	case ActionCreate:
		it.Action = ActionCreate
	case ActionEdit:
		it.Action = ActionEdit
	case ActionDelete:
		it.Action = ActionDelete
	default:
		it.Action = ActionUnknown
	}

	return &it, true
}
