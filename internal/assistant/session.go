// Package assistant implements the per-conversation session that
// interprets calendar intents, applies them against an event store, and
// falls back to plain conversation when no intent is recognized.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/VedPanse/siriplus/internal/event"
	"github.com/VedPanse/siriplus/internal/intent"
	"github.com/VedPanse/siriplus/internal/llm"
	"github.com/VedPanse/siriplus/internal/store"
	"github.com/VedPanse/siriplus/internal/timeparse"
)

// DefaultTitle is used when a create spec carries no title.
const DefaultTitle = "New Event"

// User-facing replies. Partial success is reported as a count, never as a
// per-item report.
const (
	replyNoCreate      = "No event created."
	replyNoUpdate      = "No matching events to update today."
	replyNoDelete      = "No matching events to delete today."
	replyStoreFailure  = "Sorry, I couldn't reach your calendar. Please try again."
	replyStaleDelete   = "Some of those events no longer exist in your calendar."
	replyNoPermission  = "Calendar access is not granted. Please allow calendar access and try again."
	replyLLMUnavailble = "The assistant is offline right now. Please try again later."
)

// Session owns one conversation: the event snapshot for today, its
// textual summary, and the collaborators the reconciler mutates through.
// The snapshot and summary are only ever replaced after a completed store
// round trip, never patched speculatively.
type Session struct {
	store           store.EventStore
	responder       llm.Responder
	log             *zap.Logger
	defaultDuration time.Duration

	// now is replaceable in tests to pin "today".
	now func() time.Time

	// busy guards re-entrancy: at most one reconciliation per session.
	busy atomic.Bool

	mu               sync.Mutex
	events           []event.Event
	summary          string
	permissionDenied bool
}

// NewSession creates a session over the given store and responder.
// defaultDurationMinutes is the event length assumed when an intent
// carries neither an end time nor a duration; zero means 60.
func NewSession(st store.EventStore, responder llm.Responder, log *zap.Logger, defaultDurationMinutes int) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultDurationMinutes <= 0 {
		defaultDurationMinutes = 60
	}
	return &Session{
		store:           st,
		responder:       responder,
		log:             log,
		defaultDuration: time.Duration(defaultDurationMinutes) * time.Minute,
		now:             time.Now,
		summary:         event.NoEventsSummary,
	}
}

// today returns the bounds of the current day in the local calendar zone.
func (s *Session) today() (time.Time, time.Time) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// Events returns a copy of the current snapshot, sorted by start time.
func (s *Session) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Summary returns the current context summary text.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// PermissionDenied reports whether the last refresh was rejected by the
// store. The state persists until a refresh succeeds after the user
// grants access.
func (s *Session) PermissionDenied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permissionDenied
}

// RefreshEvents re-fetches today's events from the store and rebuilds the
// summary. On failure the snapshot and summary keep their last-known-good
// values.
func (s *Session) RefreshEvents(ctx context.Context) error {
	granted, err := s.store.CheckPermission(ctx)
	if err != nil {
		return fmt.Errorf("permission check failed: %w", err)
	}
	if !granted {
		s.mu.Lock()
		s.permissionDenied = true
		s.mu.Unlock()
		return store.ErrPermissionDenied
	}

	dayStart, dayEnd := s.today()
	events, err := s.store.ListEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	event.SortByStart(events)

	s.mu.Lock()
	s.permissionDenied = false
	s.events = events
	s.summary = event.Summary(events)
	s.mu.Unlock()
	return nil
}

// HandleMessage runs one full turn: intent recognition, reconciliation or
// conversational fallback, and snapshot upkeep. It returns the assistant
// reply, or "" when another turn is already in flight (the new turn is
// dropped, mirroring a loading guard). No failure ever escapes as an
// error; every branch degrades to some reply.
func (s *Session) HandleMessage(ctx context.Context, text string) string {
	if !s.busy.CompareAndSwap(false, true) {
		s.log.Debug("dropping turn, another is in flight")
		return ""
	}
	defer s.busy.Store(false)

	if s.PermissionDenied() {
		// Give a refresh a chance in case access was granted meanwhile.
		if err := s.RefreshEvents(ctx); err != nil {
			return replyNoPermission
		}
	}

	it := s.recognizeIntent(ctx, text)
	if it == nil {
		return s.delegate(ctx, text)
	}

	if strings.TrimSpace(it.Clarification) != "" {
		// A clarification blocks execution even when event specs came along.
		return it.Clarification
	}

	switch it.Action {
	case intent.ActionCreate:
		return s.applyCreate(ctx, it.Events)
	case intent.ActionEdit:
		return s.applyEdit(ctx, it.Events)
	case intent.ActionDelete:
		return s.applyDelete(ctx, it.Events)
	default:
		return s.delegate(ctx, text)
	}
}

// recognizeIntent asks the completion collaborator for intent JSON.
// Intent recognition is strictly best-effort: an unavailable collaborator,
// a failed call, or unparsable output all mean "no intent".
func (s *Session) recognizeIntent(ctx context.Context, text string) *intent.Intent {
	if s.responder == nil || !s.responder.IsAvailable() {
		s.log.Debug("completion collaborator unavailable, skipping intent recognition")
		return nil
	}

	dayStart, _ := s.today()
	prompt := intentPrompt(dayStart.Format("Monday, January 2, 2006"), s.Summary(), text)

	raw, err := s.responder.Respond(ctx, prompt)
	if err != nil {
		s.log.Debug("intent completion failed", zap.Error(err))
		return nil
	}

	it, ok := intent.Parse(raw)
	if !ok {
		s.log.Debug("completion output is not a calendar intent", zap.Int("output_len", len(raw)))
		return nil
	}
	return it
}

// applyCreate creates one event per resolvable spec, then re-fetches the
// snapshot regardless of how many specs succeeded.
func (s *Session) applyCreate(ctx context.Context, specs []intent.EventSpec) string {
	dayStart, _ := s.today()
	created := 0

	for _, spec := range specs {
		start, ok := timeparse.Resolve(spec.StartTime, dayStart)
		if !ok {
			s.log.Info("skipping create spec, start time unresolvable", zap.String("start_time", spec.StartTime))
			continue
		}

		fallback := spec.DurationMinutes
		if fallback <= 0 {
			fallback = int(s.defaultDuration / time.Minute)
		}
		end, ok := timeparse.ResolveEnd(spec.StartTime, spec.EndTime, fallback, dayStart)
		if !ok {
			continue
		}

		title := strings.TrimSpace(spec.Title)
		if title == "" {
			title = DefaultTitle
		}

		ev := event.Event{Title: title, Start: start, End: end}
		if _, err := s.store.CreateEvent(ctx, ev); err != nil {
			s.log.Error("failed to create event", zap.String("title", title), zap.Error(err))
			continue
		}
		created++
	}

	s.refreshAfterMutation(ctx)

	if created == 0 {
		return replyNoCreate
	}
	return fmt.Sprintf("Created %d event(s) for today.", created)
}

// applyEdit updates one event per spec whose title reference matches the
// snapshot, then re-fetches unconditionally.
func (s *Session) applyEdit(ctx context.Context, specs []intent.EventSpec) string {
	snapshot := s.Events()
	dayStart, _ := s.today()
	updated := 0

	for _, spec := range specs {
		query := spec.Title
		if strings.TrimSpace(query) == "" {
			query = spec.NewTitle
		}
		target := event.Match(snapshot, query)
		if target == nil {
			s.log.Info("skipping edit spec, no matching event", zap.String("query", query))
			continue
		}
		if target.ID == "" {
			// Not yet persisted; nothing to update in the store.
			s.log.Info("skipping edit spec, matched event has no identifier", zap.String("title", target.Title))
			continue
		}

		start, ok := timeparse.Resolve(spec.StartTime, dayStart)
		if !ok {
			start = target.Start
		}

		// An explicitly resolved end wins over durationMinutes; with
		// neither, the event keeps its current duration.
		var end time.Time
		if explicit, ok := timeparse.Resolve(spec.EndTime, dayStart); ok {
			end = explicit
		} else if spec.DurationMinutes > 0 {
			end = start.Add(time.Duration(spec.DurationMinutes) * time.Minute)
		} else {
			end = start.Add(target.Duration())
		}

		// Rename is opt-in: without a new title the event keeps its own.
		title := target.Title
		if strings.TrimSpace(spec.NewTitle) != "" {
			title = spec.NewTitle
		} else if strings.TrimSpace(spec.Title) != "" {
			title = spec.Title
		}

		if _, err := s.store.UpdateEvent(ctx, target.ID, title, start, end.Sub(start)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.log.Warn("edit target disappeared from store", zap.String("id", target.ID))
			} else {
				s.log.Error("failed to update event", zap.String("id", target.ID), zap.Error(err))
			}
			continue
		}
		updated++
	}

	s.refreshAfterMutation(ctx)

	if updated == 0 {
		return replyNoUpdate
	}
	return fmt.Sprintf("Updated %d event(s) for today.", updated)
}

// applyDelete collects the identifiers of all matched specs and issues a
// single batch delete; with nothing matched the store is never called.
func (s *Session) applyDelete(ctx context.Context, specs []intent.EventSpec) string {
	snapshot := s.Events()

	var ids []string
	seen := make(map[string]bool)
	for _, spec := range specs {
		target := event.Match(snapshot, spec.Title)
		if target == nil {
			s.log.Info("skipping delete spec, no matching event", zap.String("query", spec.Title))
			continue
		}
		if target.ID == "" {
			s.log.Info("skipping delete spec, matched event has no identifier", zap.String("title", target.Title))
			continue
		}
		if !seen[target.ID] {
			seen[target.ID] = true
			ids = append(ids, target.ID)
		}
	}

	if len(ids) == 0 {
		return replyNoDelete
	}

	if err := s.store.DeleteEvents(ctx, ids); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Raced with an external delete; heal the snapshot.
			s.log.Warn("delete targets disappeared from store", zap.Strings("ids", ids))
			s.refreshAfterMutation(ctx)
			return replyStaleDelete
		}
		s.log.Error("failed to delete events", zap.Strings("ids", ids), zap.Error(err))
		return replyStoreFailure
	}

	s.refreshAfterMutation(ctx)
	return fmt.Sprintf("Deleted %d event(s) for today.", len(ids))
}

// refreshAfterMutation re-fetches the snapshot after a mutating turn. The
// store is authoritative and may have reconciled fields the session does
// not otherwise know, so the snapshot is never patched locally. A failed
// refresh keeps the last-known-good snapshot.
func (s *Session) refreshAfterMutation(ctx context.Context) {
	if err := s.RefreshEvents(ctx); err != nil {
		s.log.Error("failed to refresh snapshot after mutation", zap.Error(err))
	}
}

// delegate forwards the turn to the conversational fallback with the
// current calendar context injected.
func (s *Session) delegate(ctx context.Context, text string) string {
	if s.responder == nil || !s.responder.IsAvailable() {
		return replyLLMUnavailble
	}

	reply, err := s.responder.Respond(ctx, chatPrompt(s.Summary(), text))
	if err != nil || strings.TrimSpace(reply) == "" {
		s.log.Warn("conversational fallback failed", zap.Error(err))
		return replyLLMUnavailble
	}
	return reply
}
