package store

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/VedPanse/siriplus/internal/event"
)

// CalDAVStore is an EventStore backed by a CalDAV server such as iCloud
// (https://caldav.icloud.com). The password should be an app-specific
// password, not the account password.
type CalDAVStore struct {
	httpClient   *http.Client
	serverURL    string
	username     string
	password     string
	calendarPath string
}

// NewCalDAVStore creates a CalDAV store for the calendar collection at
// calendarPath (e.g. "/<userID>/calendars/home/").
func NewCalDAVStore(serverURL, username, password, calendarPath string) *CalDAVStore {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return &CalDAVStore{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		serverURL:    strings.TrimSuffix(serverURL, "/"),
		username:     username,
		password:     password,
		calendarPath: calendarPath,
	}
}

// makeRequest makes an authenticated HTTP request to the CalDAV server.
func (s *CalDAVStore) makeRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.serverURL+path, body)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(s.username, s.password)
	if body != nil && method != "PUT" {
		req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	}
	if method == "PUT" {
		req.Header.Set("Content-Type", "text/calendar; charset=utf-8")
	}
	req.Header.Set("Depth", "1")

	return s.httpClient.Do(req)
}

// CheckPermission probes the calendar collection with a PROPFIND. A
// 401/403 reports access as not granted.
func (s *CalDAVStore) CheckPermission(ctx context.Context) (bool, error) {
	propfind := `<?xml version="1.0" encoding="utf-8" ?>
<d:propfind xmlns:d="DAV:">
  <d:prop><d:displayname/></d:prop>
</d:propfind>`

	resp, err := s.makeRequest(ctx, "PROPFIND", s.calendarPath, strings.NewReader(propfind))
	if err != nil {
		return false, fmt.Errorf("failed to probe calendar: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	case http.StatusOK, http.StatusMultiStatus:
		return true, nil
	}
	return false, fmt.Errorf("failed to probe calendar: HTTP %d", resp.StatusCode)
}

// ListEvents queries the server for events in [dayStart, dayEnd) using a
// CalDAV calendar-query REPORT and decodes the returned iCalendar data.
func (s *CalDAVStore) ListEvents(ctx context.Context, dayStart, dayEnd time.Time) ([]event.Event, error) {
	query := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop>
    <D:getetag/>
    <C:calendar-data/>
  </D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="%s" end="%s"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`,
		dayStart.UTC().Format("20060102T150405Z"), dayEnd.UTC().Format("20060102T150405Z"))

	resp, err := s.makeRequest(ctx, "REPORT", s.calendarPath, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("failed to query calendar: %w", ErrPermissionDenied)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return nil, fmt.Errorf("failed to query calendar: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	payloads, err := parseCalDAVResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CalDAV response: %w", err)
	}

	var events []event.Event
	for _, payload := range payloads {
		cal, err := ical.NewDecoder(strings.NewReader(payload)).Decode()
		if err != nil {
			continue
		}
		ev, err := fromICalendar(cal)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	event.SortByStart(events)
	return events, nil
}

// CreateEvent assigns a UID, encodes the event as iCalendar, and PUTs it.
func (s *CalDAVStore) CreateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	if err := ev.Validate(); err != nil {
		return event.Event{}, fmt.Errorf("create event: %w", err)
	}
	ev.ID = uuid.NewString()
	if err := s.putEvent(ctx, ev); err != nil {
		return event.Event{}, err
	}
	return ev, nil
}

// UpdateEvent re-PUTs the event resource with the new title, start, and
// duration; the remaining fields are carried over from the stored event.
func (s *CalDAVStore) UpdateEvent(ctx context.Context, id, title string, start time.Time, duration time.Duration) (event.Event, error) {
	existing, err := s.getEvent(ctx, id)
	if err != nil {
		return event.Event{}, err
	}

	existing.Title = title
	existing.Start = start
	existing.End = start.Add(duration)
	if err := s.putEvent(ctx, existing); err != nil {
		return event.Event{}, err
	}
	return existing, nil
}

// DeleteEvents deletes each listed event resource. The first failure
// aborts the batch; a 404 surfaces as ErrNotFound.
func (s *CalDAVStore) DeleteEvents(ctx context.Context, ids []string) error {
	for _, id := range ids {
		resp, err := s.makeRequest(ctx, "DELETE", s.resourcePath(id), nil)
		if err != nil {
			return fmt.Errorf("failed to delete event %s: %w", id, err)
		}
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNoContent, http.StatusOK:
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("failed to delete event %s: %w", id, ErrNotFound)
		default:
			return fmt.Errorf("failed to delete event %s: HTTP %d", id, resp.StatusCode)
		}
	}
	return nil
}

// Close is a no-op.
func (s *CalDAVStore) Close() error { return nil }

func (s *CalDAVStore) resourcePath(id string) string {
	return s.calendarPath + id + ".ics"
}

func (s *CalDAVStore) getEvent(ctx context.Context, id string) (event.Event, error) {
	resp, err := s.makeRequest(ctx, "GET", s.resourcePath(id), nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("failed to get event: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return event.Event{}, fmt.Errorf("failed to get event %s: %w", id, ErrNotFound)
	default:
		return event.Event{}, fmt.Errorf("failed to get event: HTTP %d", resp.StatusCode)
	}

	cal, err := ical.NewDecoder(resp.Body).Decode()
	if err != nil {
		return event.Event{}, fmt.Errorf("failed to parse iCalendar: %w", err)
	}
	return fromICalendar(cal)
}

func (s *CalDAVStore) putEvent(ctx context.Context, ev event.Event) error {
	cal, err := toICalendar(ev)
	if err != nil {
		return fmt.Errorf("failed to convert event: %w", err)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode iCalendar: %w", err)
	}

	resp, err := s.makeRequest(ctx, "PUT", s.resourcePath(ev.ID), &buf)
	if err != nil {
		return fmt.Errorf("failed to put event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to put event: HTTP %d", resp.StatusCode)
	}
	return nil
}

// parseCalDAVResponse extracts the calendar-data payloads from a
// multistatus REPORT response.
func parseCalDAVResponse(body []byte) ([]string, error) {
	type calendarData struct {
		Data string `xml:",chardata"`
	}
	type prop struct {
		CalendarData calendarData `xml:"calendar-data"`
	}
	type response struct {
		Prop prop `xml:"propstat>prop"`
	}
	type multistatus struct {
		Responses []response `xml:"response"`
	}

	var ms multistatus
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	var payloads []string
	for _, resp := range ms.Responses {
		if resp.Prop.CalendarData.Data != "" {
			payloads = append(payloads, resp.Prop.CalendarData.Data)
		}
	}
	return payloads, nil
}

// alarmTriggers maps alert enums to VALARM TRIGGER durations.
var alarmTriggers = map[event.Alert]string{
	event.AlertAtTime:    "PT0S",
	event.Alert5Minutes:  "-PT5M",
	event.Alert15Minutes: "-PT15M",
	event.Alert30Minutes: "-PT30M",
	event.Alert1Hour:     "-PT1H",
	event.Alert1Day:      "-P1D",
}

// toICalendar converts an event into a single-VEVENT calendar.
func toICalendar(ev event.Event) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//SiriPlus//EN")

	vevent := ical.NewComponent(ical.CompEvent)
	cal.Children = append(cal.Children, vevent)

	vevent.Props.SetText(ical.PropUID, ev.ID)
	vevent.Props.SetText(ical.PropSummary, ev.Title)
	if ev.Location != "" {
		vevent.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.Notes != "" {
		vevent.Props.SetText(ical.PropDescription, ev.Notes)
	}
	if ev.URL != "" {
		vevent.Props.SetText(ical.PropURL, ev.URL)
	}

	if ev.AllDay {
		dtstart := ical.NewProp(ical.PropDateTimeStart)
		dtstart.SetDate(ev.Start)
		vevent.Props.Set(dtstart)

		dtend := ical.NewProp(ical.PropDateTimeEnd)
		dtend.SetDate(ev.End)
		vevent.Props.Set(dtend)
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.Start)
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, ev.End)
	}

	// Recurrence is recorded as a rule only, never expanded here.
	if rule := repeatRule(ev.Repeat); rule != "" {
		vevent.Props.SetText(ical.PropRecurrenceRule, strings.TrimPrefix(rule, "RRULE:"))
	}

	if trigger, ok := alarmTriggers[ev.Alert]; ok {
		valarm := ical.NewComponent(ical.CompAlarm)
		valarm.Props.SetText(ical.PropAction, "DISPLAY")
		valarm.Props.SetText(ical.PropDescription, ev.Title)
		valarm.Props.SetText(ical.PropTrigger, trigger)
		vevent.Children = append(vevent.Children, valarm)
	}

	now := time.Now()
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, now)
	vevent.Props.SetDateTime(ical.PropCreated, now)
	vevent.Props.SetDateTime(ical.PropLastModified, now)

	return cal, nil
}

// fromICalendar converts the first VEVENT of a calendar into an event.
func fromICalendar(cal *ical.Calendar) (event.Event, error) {
	var vevent *ical.Component
	for _, comp := range cal.Children {
		if comp.Name == ical.CompEvent {
			vevent = comp
			break
		}
	}
	if vevent == nil {
		return event.Event{}, fmt.Errorf("no VEVENT found in calendar")
	}

	ev := event.Event{Alert: event.AlertNone, Repeat: event.RepeatNone}

	if uid := vevent.Props.Get(ical.PropUID); uid != nil {
		ev.ID = uid.Value
	}
	if summary := vevent.Props.Get(ical.PropSummary); summary != nil {
		ev.Title = summary.Value
	}
	if loc := vevent.Props.Get(ical.PropLocation); loc != nil {
		ev.Location = loc.Value
	}
	if desc := vevent.Props.Get(ical.PropDescription); desc != nil {
		ev.Notes = desc.Value
	}
	if url := vevent.Props.Get(ical.PropURL); url != nil {
		ev.URL = url.Value
	}

	dtstart := vevent.Props.Get(ical.PropDateTimeStart)
	if dtstart == nil {
		return event.Event{}, fmt.Errorf("VEVENT has no DTSTART")
	}
	start, err := dtstart.DateTime(time.Local)
	if err != nil {
		return event.Event{}, fmt.Errorf("failed to parse DTSTART: %w", err)
	}
	ev.Start = start
	ev.AllDay = dtstart.Params.Get(ical.ParamValue) == "DATE"

	if dtend := vevent.Props.Get(ical.PropDateTimeEnd); dtend != nil {
		end, err := dtend.DateTime(time.Local)
		if err != nil {
			return event.Event{}, fmt.Errorf("failed to parse DTEND: %w", err)
		}
		ev.End = end
	} else if ev.AllDay {
		ev.End = ev.Start.AddDate(0, 0, 1)
	} else {
		ev.End = ev.Start.Add(time.Hour)
	}

	if rrule := vevent.Props.Get(ical.PropRecurrenceRule); rrule != nil {
		if r, ok := repeatFromRule(rrule.Value); ok {
			ev.Repeat = r
		}
	}

	for _, child := range vevent.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		trigger := child.Props.Get(ical.PropTrigger)
		if trigger == nil {
			continue
		}
		for alert, t := range alarmTriggers {
			if trigger.Value == t {
				ev.Alert = alert
				break
			}
		}
		break
	}

	return ev, nil
}
