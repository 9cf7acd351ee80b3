package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tp(t time.Time) *time.Time {
	return &t
}

func TestReconcile(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		event      Event
		wantStatus EventStatus
		wantMoved  bool
	}{
		{
			name:       "draft never moves",
			event:      Event{Status: EventStatusDraft, StartDate: tp(now.Add(-time.Hour)), EndDate: tp(now.Add(-time.Minute))},
			wantStatus: EventStatusDraft,
		},
		{
			name:       "completed never moves",
			event:      Event{Status: EventStatusCompleted},
			wantStatus: EventStatusCompleted,
		},
		{
			name:       "published before start stays",
			event:      Event{Status: EventStatusPublished, StartDate: tp(now.Add(time.Hour)), EndDate: tp(now.Add(2 * time.Hour))},
			wantStatus: EventStatusPublished,
		},
		{
			name:       "published past start goes ongoing",
			event:      Event{Status: EventStatusPublished, StartDate: tp(now.Add(-time.Hour)), EndDate: tp(now.Add(time.Hour))},
			wantStatus: EventStatusOngoing,
			wantMoved:  true,
		},
		{
			name:       "closed past start goes ongoing",
			event:      Event{Status: EventStatusClosed, StartDate: tp(now.Add(-time.Hour)), EndDate: tp(now.Add(time.Hour))},
			wantStatus: EventStatusOngoing,
			wantMoved:  true,
		},
		{
			name:       "published past end skips straight to completed",
			event:      Event{Status: EventStatusPublished, StartDate: tp(now.Add(-2 * time.Hour)), EndDate: tp(now.Add(-time.Hour))},
			wantStatus: EventStatusCompleted,
			wantMoved:  true,
		},
		{
			name:       "ongoing past end completes",
			event:      Event{Status: EventStatusOngoing, StartDate: tp(now.Add(-2 * time.Hour)), EndDate: tp(now.Add(-time.Minute))},
			wantStatus: EventStatusCompleted,
			wantMoved:  true,
		},
		{
			name:       "published without dates stays",
			event:      Event{Status: EventStatusPublished},
			wantStatus: EventStatusPublished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moved := tt.event.Reconcile(now)
			require.Equal(t, tt.wantMoved, moved)
			require.Equal(t, tt.wantStatus, tt.event.Status)
		})
	}
}

func TestReconcileIdempotent(t *testing.T) {
	now := time.Now()
	event := Event{
		Status:    EventStatusPublished,
		StartDate: tp(now.Add(-time.Hour)),
		EndDate:   tp(now.Add(time.Hour)),
	}

	require.True(t, event.Reconcile(now))
	require.False(t, event.Reconcile(now))
	require.Equal(t, EventStatusOngoing, event.Status)
}

func TestDeadlinePassed(t *testing.T) {
	now := time.Now()

	event := Event{}
	require.False(t, event.DeadlinePassed(now))

	event.RegistrationDeadline = tp(now.Add(time.Minute))
	require.False(t, event.DeadlinePassed(now))

	event.RegistrationDeadline = tp(now.Add(-time.Minute))
	require.True(t, event.DeadlinePassed(now))
}

func TestAcceptsRegistrations(t *testing.T) {
	accepting := map[EventStatus]bool{
		EventStatusDraft:     false,
		EventStatusPublished: true,
		EventStatusClosed:    false,
		EventStatusOngoing:   true,
		EventStatusCompleted: false,
	}
	for status, want := range accepting {
		event := Event{Status: status}
		require.Equal(t, want, event.AcceptsRegistrations(), "status %s", status)
	}
}
