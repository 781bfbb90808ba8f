package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/VedPanse/siriplus/internal/event"
)

// GoogleStore is an EventStore backed by the Google Calendar API.
type GoogleStore struct {
	service    *calendar.Service
	calendarID string
}

// NewGoogleStore creates a Google Calendar store using the provided
// authenticated HTTP client. calendarID is usually "primary".
func NewGoogleStore(ctx context.Context, httpClient *http.Client, calendarID string) (*GoogleStore, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	return &GoogleStore{service: service, calendarID: calendarID}, nil
}

// CheckPermission probes the calendar. A 401/403 reports access as not
// granted rather than failing.
func (s *GoogleStore) CheckPermission(ctx context.Context) (bool, error) {
	_, err := s.service.Calendars.Get(s.calendarID).Context(ctx).Do()
	if err != nil {
		if errors.Is(mapGoogleError(err), ErrPermissionDenied) {
			return false, nil
		}
		return false, fmt.Errorf("failed to probe calendar: %w", err)
	}
	return true, nil
}

// ListEvents retrieves the events in [dayStart, dayEnd), ordered by start.
// SingleEvents expands recurring events into instances so the day view is
// complete.
func (s *GoogleStore) ListEvents(ctx context.Context, dayStart, dayEnd time.Time) ([]event.Event, error) {
	list, err := s.service.Events.List(s.calendarID).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", mapGoogleError(err))
	}

	var events []event.Event
	for _, item := range list.Items {
		ev, err := fromGoogleEvent(item)
		if err != nil {
			// Skip events whose timestamps cannot be parsed.
			continue
		}
		events = append(events, ev)
	}
	event.SortByStart(events)
	return events, nil
}

// CreateEvent inserts a new event and returns it with the assigned ID.
func (s *GoogleStore) CreateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	if err := ev.Validate(); err != nil {
		return event.Event{}, fmt.Errorf("create event: %w", err)
	}

	created, err := s.service.Events.Insert(s.calendarID, toGoogleEvent(ev)).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return event.Event{}, fmt.Errorf("failed to insert event: %w", mapGoogleError(err))
	}
	return fromGoogleEvent(created)
}

// UpdateEvent rewrites the title, start, and duration of an event.
func (s *GoogleStore) UpdateEvent(ctx context.Context, id, title string, start time.Time, duration time.Duration) (event.Event, error) {
	existing, err := s.service.Events.Get(s.calendarID, id).Context(ctx).Do()
	if err != nil {
		return event.Event{}, fmt.Errorf("failed to get event: %w", mapGoogleError(err))
	}

	existing.Summary = title
	existing.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)}
	existing.End = &calendar.EventDateTime{DateTime: start.Add(duration).Format(time.RFC3339)}

	updated, err := s.service.Events.Update(s.calendarID, id, existing).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return event.Event{}, fmt.Errorf("failed to update event: %w", mapGoogleError(err))
	}
	return fromGoogleEvent(updated)
}

// DeleteEvents deletes each listed event. The first failure aborts the
// batch; already-deleted events surface as ErrNotFound.
func (s *GoogleStore) DeleteEvents(ctx context.Context, ids []string) error {
	for _, id := range ids {
		err := s.service.Events.Delete(s.calendarID, id).
			SendUpdates("none").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to delete event %s: %w", id, mapGoogleError(err))
		}
	}
	return nil
}

// Close is a no-op; the underlying HTTP client is owned by the caller.
func (s *GoogleStore) Close() error { return nil }

// mapGoogleError translates googleapi status codes into the store's
// error taxonomy.
func mapGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrPermissionDenied
		case http.StatusNotFound, http.StatusGone:
			return ErrNotFound
		}
	}
	return err
}

// alertMinutes maps alert enums to reminder offsets in minutes.
var alertMinutes = map[event.Alert]int64{
	event.AlertAtTime:    0,
	event.Alert5Minutes:  5,
	event.Alert15Minutes: 15,
	event.Alert30Minutes: 30,
	event.Alert1Hour:     60,
	event.Alert1Day:      1440,
}

// toGoogleEvent converts the internal model into the API representation.
func toGoogleEvent(ev event.Event) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Title,
		Location:    ev.Location,
		Description: ev.Notes,
	}

	if ev.AllDay {
		out.Start = &calendar.EventDateTime{Date: ev.Start.Format("2006-01-02")}
		out.End = &calendar.EventDateTime{Date: ev.End.Format("2006-01-02")}
	} else {
		out.Start = &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)}
		out.End = &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339)}
	}

	if minutes, ok := alertMinutes[ev.Alert]; ok {
		out.Reminders = &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: minutes},
			},
			ForceSendFields: []string{"UseDefault"},
		}
	} else {
		out.Reminders = &calendar.EventReminders{UseDefault: true}
	}

	if rule := repeatRule(ev.Repeat); rule != "" {
		out.Recurrence = []string{rule}
	}

	if ev.URL != "" {
		out.Source = &calendar.EventSource{Url: ev.URL, Title: ev.Title}
	}

	return out
}

// fromGoogleEvent converts an API event into the internal model.
func fromGoogleEvent(item *calendar.Event) (event.Event, error) {
	ev := event.Event{
		ID:       item.Id,
		Title:    item.Summary,
		Location: item.Location,
		Notes:    item.Description,
		Alert:    event.AlertNone,
		Repeat:   event.RepeatNone,
	}

	var err error
	if item.Start != nil && item.Start.Date != "" {
		ev.AllDay = true
		ev.Start, err = time.ParseInLocation("2006-01-02", item.Start.Date, time.Local)
		if err != nil {
			return event.Event{}, fmt.Errorf("failed to parse event start date: %w", err)
		}
		ev.End = ev.Start.AddDate(0, 0, 1)
		if item.End != nil && item.End.Date != "" {
			if end, err := time.ParseInLocation("2006-01-02", item.End.Date, time.Local); err == nil {
				ev.End = end
			}
		}
	} else {
		if item.Start == nil || item.End == nil {
			return event.Event{}, fmt.Errorf("event %s has no start/end", item.Id)
		}
		ev.Start, err = time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return event.Event{}, fmt.Errorf("failed to parse event start time: %w", err)
		}
		ev.End, err = time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			return event.Event{}, fmt.Errorf("failed to parse event end time: %w", err)
		}
	}

	if item.Reminders != nil && !item.Reminders.UseDefault {
		for _, r := range item.Reminders.Overrides {
			if a, ok := alertFromMinutes(r.Minutes); ok {
				ev.Alert = a
				break
			}
		}
	}

	for _, rule := range item.Recurrence {
		if r, ok := repeatFromRule(rule); ok {
			ev.Repeat = r
			break
		}
	}

	if item.Source != nil {
		ev.URL = item.Source.Url
	}

	return ev, nil
}

func repeatRule(r event.Repeat) string {
	switch r {
	case event.RepeatDaily:
		return "RRULE:FREQ=DAILY"
	case event.RepeatWeekly:
		return "RRULE:FREQ=WEEKLY"
	case event.RepeatMonthly:
		return "RRULE:FREQ=MONTHLY"
	case event.RepeatYearly:
		return "RRULE:FREQ=YEARLY"
	}
	return ""
}

func repeatFromRule(rule string) (event.Repeat, bool) {
	rule = strings.TrimPrefix(rule, "RRULE:")
	switch {
	case strings.HasPrefix(rule, "FREQ=DAILY"):
		return event.RepeatDaily, true
	case strings.HasPrefix(rule, "FREQ=WEEKLY"):
		return event.RepeatWeekly, true
	case strings.HasPrefix(rule, "FREQ=MONTHLY"):
		return event.RepeatMonthly, true
	case strings.HasPrefix(rule, "FREQ=YEARLY"):
		return event.RepeatYearly, true
	}
	return event.RepeatNone, false
}

func alertFromMinutes(minutes int64) (event.Alert, bool) {
	for alert, m := range alertMinutes {
		if m == minutes {
			return alert, true
		}
	}
	return event.AlertNone, false
}
