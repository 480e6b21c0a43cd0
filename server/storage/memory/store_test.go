package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calde-dev/calde/server/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.Calendar) {
	t.Helper()
	s := New()
	s.AddPrincipal(&storage.Principal{PrincipalID: "alice", DisplayName: "alice@example.com"})
	cal, err := s.CreateCalendar(context.Background(), "alice", &storage.Calendar{
		CalendarID:  "work",
		DisplayName: "Work",
	})
	require.NoError(t, err)
	return s, cal
}

func TestCalendarLifecycle(t *testing.T) {
	s, cal := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetCalendar(ctx, "alice", "work")
	require.NoError(t, err)
	assert.Equal(t, "Work", got.DisplayName)
	assert.NotEmpty(t, got.SyncToken)

	name := "Office"
	updated, err := s.UpdateCalendar(ctx, "alice", "work", &storage.CalendarUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Office", updated.DisplayName)
	assert.NotEqual(t, cal.SyncToken, updated.SyncToken)

	require.NoError(t, s.DeleteCalendar(ctx, "alice", "work"))
	_, err = s.GetCalendar(ctx, "alice", "work")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetCalendarMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.GetCalendar(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetPrincipal(context.Background(), "bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEventLifecycleAndTombstone(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	before, err := s.GetCalendar(ctx, "alice", "work")
	require.NoError(t, err)

	ev, err := s.CreateEvent(ctx, "alice", "work", &storage.Event{
		EventID:   "standup",
		Summary:   "Standup",
		StartDate: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.False(t, ev.Deleted())

	after, err := s.GetCalendar(ctx, "alice", "work")
	require.NoError(t, err)
	assert.NotEqual(t, before.SyncToken, after.SyncToken)

	require.NoError(t, s.DeleteEvent(ctx, "alice", "work", "standup"))
	_, err = s.GetEvent(ctx, "alice", "work", "standup", false)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The tombstone still shows up in the full listing.
	all, err := s.GetEventsForCalendar(ctx, "alice", "work", false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Deleted())

	live, err := s.GetEventsByDate(ctx, "alice", "work", nil, nil, false)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestETagChangesOnUpdate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	ev, err := s.CreateEvent(ctx, "alice", "work", &storage.Event{
		EventID:   "one",
		StartDate: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	first, err := s.GetETag(ctx, ev)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	ev.Summary = "changed"
	updated, err := s.UpdateEvent(ctx, "alice", "work", ev)
	require.NoError(t, err)
	second, err := s.GetETag(ctx, updated)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestGetEventsByDate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateEvent(ctx, "alice", "work", &storage.Event{
		EventID:   "plain",
		StartDate: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{
			name:  "window covering the event",
			start: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
			want:  1,
		},
		{
			name:  "window before the event",
			start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			want:  0,
		},
		{
			name:  "window overlapping the start",
			start: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
			end:   time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
			want:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetEventsByDate(ctx, "alice", "work", &tt.start, &tt.end, false)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestGetEventsByDateRecurring(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Weekly Mondays at 09:00 starting 2026-03-02, with 03-09 excluded and
	// 03-16 moved to 03-17.
	_, err := s.CreateEvent(ctx, "alice", "work", &storage.Event{
		EventID:   "weekly",
		StartDate: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Recurring: &storage.Recurring{
			Freq:    "WEEKLY",
			Until:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			ExDates: []time.Time{time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)},
			Recurrences: []storage.Recurrence{{
				RecurrenceID: time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC),
				StartDate:    time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC),
				EndDate:      time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC),
			}},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{
			name:  "plain occurrence matches",
			start: time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC),
			want:  1,
		},
		{
			name:  "excluded occurrence does not match",
			start: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			want:  0,
		},
		{
			name:  "moved occurrence matches at its new time",
			start: time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC),
			want:  1,
		},
		{
			name:  "moved occurrence no longer matches its old slot",
			start: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
			want:  0,
		},
		{
			name:  "after the until bound",
			start: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			want:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetEventsByDate(ctx, "alice", "work", &tt.start, &tt.end, false)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}
