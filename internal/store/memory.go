package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VedPanse/siriplus/internal/event"
)

// MemoryStore is an EventStore held entirely in memory. It backs the
// "memory" backend, which lets the assistant run without calendar
// credentials, and the reconciler tests.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string]event.Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]event.Event)}
}

// CheckPermission always grants access; there is nothing to request.
func (s *MemoryStore) CheckPermission(ctx context.Context) (bool, error) {
	return true, nil
}

// ListEvents returns events starting within [dayStart, dayEnd), sorted
// ascending by start time.
func (s *MemoryStore) ListEvents(ctx context.Context, dayStart, dayEnd time.Time) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []event.Event
	for _, ev := range s.events {
		if !ev.Start.Before(dayStart) && ev.Start.Before(dayEnd) {
			out = append(out, ev)
		}
	}
	event.SortByStart(out)
	return out, nil
}

// CreateEvent validates the event, assigns it an identifier, and stores it.
func (s *MemoryStore) CreateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	if err := ev.Validate(); err != nil {
		return event.Event{}, fmt.Errorf("create event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = uuid.NewString()
	s.events[ev.ID] = ev
	return ev, nil
}

// UpdateEvent rewrites title, start, and duration of an existing event.
func (s *MemoryStore) UpdateEvent(ctx context.Context, id, title string, start time.Time, duration time.Duration) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return event.Event{}, fmt.Errorf("update event %s: %w", id, ErrNotFound)
	}

	ev.Title = title
	ev.Start = start
	ev.End = start.Add(duration)
	s.events[id] = ev
	return ev, nil
}

// DeleteEvents removes every listed event. Identifiers that no longer
// exist are reported via ErrNotFound after the rest have been removed.
func (s *MemoryStore) DeleteEvents(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []string
	for _, id := range ids {
		if _, ok := s.events[id]; !ok {
			missing = append(missing, id)
			continue
		}
		delete(s.events, id)
	}
	if len(missing) > 0 {
		return fmt.Errorf("delete events %v: %w", missing, ErrNotFound)
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
