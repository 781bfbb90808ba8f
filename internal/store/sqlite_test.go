package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VedPanse/siriplus/internal/event"
)

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	granted, err := s.CheckPermission(ctx)
	require.NoError(t, err)
	assert.True(t, granted)

	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.Local)
	dayStart, dayEnd := dayBounds(day)

	created, err := s.CreateEvent(ctx, event.Event{
		Title:    "Lunch",
		Start:    day.Add(12 * time.Hour),
		End:      day.Add(13 * time.Hour),
		Location: "Cafe Rio",
		Alert:    event.Alert15Minutes,
		Repeat:   event.RepeatWeekly,
		Notes:    "bring the contract",
		URL:      "https://example.com/lunch",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	_, err = s.CreateEvent(ctx, event.Event{
		Title: "Standup",
		Start: day.Add(9 * time.Hour),
		End:   day.Add(9*time.Hour + 15*time.Minute),
	})
	require.NoError(t, err)

	events, err := s.ListEvents(ctx, dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Title, "listing must be ordered by start time")

	got := events[1]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Cafe Rio", got.Location)
	assert.Equal(t, event.Alert15Minutes, got.Alert)
	assert.Equal(t, event.RepeatWeekly, got.Repeat)
	assert.Equal(t, "bring the contract", got.Notes)
	assert.Equal(t, "https://example.com/lunch", got.URL)
	assert.True(t, got.Start.Equal(day.Add(12*time.Hour)))
	assert.True(t, got.End.Equal(day.Add(13*time.Hour)))

	updated, err := s.UpdateEvent(ctx, created.ID, "Late Lunch", day.Add(13*time.Hour), 45*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "Late Lunch", updated.Title)
	assert.True(t, updated.End.Equal(day.Add(13*time.Hour+45*time.Minute)))
	assert.Equal(t, "Cafe Rio", updated.Location, "fields outside the update must survive")

	require.NoError(t, s.DeleteEvents(ctx, []string{created.ID}))

	events, err = s.ListEvents(ctx, dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Title)
}

func TestSQLiteStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	_, err := s.UpdateEvent(ctx, "missing", "Title", time.Now(), time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)

	ev, err := s.CreateEvent(ctx, event.Event{
		Title: "Keep",
		Start: time.Now(),
		End:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	err = s.DeleteEvents(ctx, []string{"missing", ev.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	dayStart, dayEnd := dayBounds(time.Now())
	events, err := s.ListEvents(ctx, dayStart, dayEnd)
	require.NoError(t, err)
	assert.Empty(t, events, "found ids are deleted even when others are stale")
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)

	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.Local)
	_, err = s.CreateEvent(ctx, event.Event{
		Title: "Persisted",
		Start: day.Add(10 * time.Hour),
		End:   day.Add(11 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	dayStart, dayEnd := dayBounds(day)
	events, err := s.ListEvents(ctx, dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Persisted", events[0].Title)
}
