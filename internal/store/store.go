// Package store defines the event store contract the reconciler mutates
// through, plus the concrete backends: Google Calendar, CalDAV, a local
// SQLite file, and an in-memory store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/VedPanse/siriplus/internal/event"
)

// Sentinel errors for the failure classes callers branch on. Backends wrap
// these with fmt.Errorf("...: %w", ...) so errors.Is still matches; any
// other failure is treated as transient.
var (
	// ErrPermissionDenied means access to the backing calendar is not
	// granted. Not retried automatically; the user must re-trigger after
	// changing permission.
	ErrPermissionDenied = errors.New("calendar access not granted")

	// ErrNotFound means a mutation target no longer exists in the store,
	// typically because it was deleted externally between list and write.
	ErrNotFound = errors.New("event not found")
)

// EventStore is the CRUD contract over a calendar backend. All operations
// may fail and failures always propagate to the caller — only the
// reconciler decides to swallow absence of a match, never adapter failure.
type EventStore interface {
	// CheckPermission reports whether the store may be accessed,
	// requesting access first where the backend supports that.
	CheckPermission(ctx context.Context) (bool, error)

	// ListEvents returns the events starting within [dayStart, dayEnd),
	// sorted ascending by start time.
	ListEvents(ctx context.Context, dayStart, dayEnd time.Time) ([]event.Event, error)

	// CreateEvent persists a new event and returns it with the
	// store-assigned identifier filled in.
	CreateEvent(ctx context.Context, ev event.Event) (event.Event, error)

	// UpdateEvent rewrites the title, start, and duration of the event
	// with the given identifier.
	UpdateEvent(ctx context.Context, id, title string, start time.Time, duration time.Duration) (event.Event, error)

	// DeleteEvents removes every event in ids as one batch.
	DeleteEvents(ctx context.Context, ids []string) error

	// Close releases any resources held by the store.
	Close() error
}
