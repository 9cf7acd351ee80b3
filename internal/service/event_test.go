package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/felicity-fest/api/internal/domain"
)

func draftEvent() domain.Event {
	return domain.Event{
		ID:                   1,
		Name:                 "Hackathon",
		Type:                 domain.EventTypeNormal,
		OrganizerID:          2,
		Eligibility:          domain.EligibilityAll,
		StartDate:            timePtr(time.Now().Add(48 * time.Hour)),
		EndDate:              timePtr(time.Now().Add(72 * time.Hour)),
		RegistrationDeadline: timePtr(time.Now().Add(24 * time.Hour)),
		Status:               domain.EventStatusDraft,
	}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func eligPtr(e domain.Eligibility) *domain.Eligibility { return &e }

func TestCreateEventForcesDraft(t *testing.T) {
	repo := newMockEventRepo()
	svc := NewEventService(repo)

	ev := draftEvent()
	ev.ID = 99
	ev.Status = domain.EventStatusPublished
	ev.RegistrationCount = 40
	ev.FormLocked = true

	created, err := svc.CreateEvent(context.Background(), ev, 5)
	require.NoError(t, err)
	require.Equal(t, domain.EventStatusDraft, created.Status)
	require.Equal(t, uint(5), created.OrganizerID)
	require.Equal(t, 0, created.RegistrationCount)
	require.False(t, created.FormLocked)
	require.NotEqual(t, uint(99), created.ID)
}

func TestCreateEventMerchandiseDropsFee(t *testing.T) {
	svc := NewEventService(newMockEventRepo())

	ev := draftEvent()
	ev.Type = domain.EventTypeMerchandise
	ev.RegistrationFee = 250
	created, err := svc.CreateEvent(context.Background(), ev, 5)
	require.NoError(t, err)
	require.Zero(t, created.RegistrationFee)
}

func TestCreateEventDefaultsEligibility(t *testing.T) {
	svc := NewEventService(newMockEventRepo())

	ev := draftEvent()
	ev.Eligibility = ""
	created, err := svc.CreateEvent(context.Background(), ev, 5)
	require.NoError(t, err)
	require.Equal(t, domain.EligibilityAll, created.Eligibility)
}

func TestCreateEventInvalidDates(t *testing.T) {
	svc := NewEventService(newMockEventRepo())

	ev := draftEvent()
	ev.StartDate, ev.EndDate = ev.EndDate, ev.StartDate
	_, err := svc.CreateEvent(context.Background(), ev, 5)
	require.ErrorIs(t, err, ErrInvalidEventDates)

	ev = draftEvent()
	ev.RegistrationDeadline = timePtr(ev.EndDate.Add(time.Hour))
	_, err = svc.CreateEvent(context.Background(), ev, 5)
	require.ErrorIs(t, err, ErrInvalidEventDates)

	// A deadline between start and end still breaks deadline <= start.
	ev = draftEvent()
	ev.RegistrationDeadline = timePtr(ev.StartDate.Add(time.Hour))
	_, err = svc.CreateEvent(context.Background(), ev, 5)
	require.ErrorIs(t, err, ErrInvalidEventDates)
}

func TestGetEventReconcilesStaleStatus(t *testing.T) {
	ev := draftEvent()
	ev.Status = domain.EventStatusPublished
	ev.StartDate = timePtr(time.Now().Add(-48 * time.Hour))
	ev.EndDate = timePtr(time.Now().Add(-24 * time.Hour))
	repo := newMockEventRepo(ev)
	svc := NewEventService(repo)

	got, err := svc.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domain.EventStatusCompleted, got.Status)

	// The transition was persisted conditionally.
	require.Equal(t, []statusChange{{eventID: 1, from: domain.EventStatusPublished, to: domain.EventStatusCompleted}}, repo.statusChanges)
	require.Equal(t, domain.EventStatusCompleted, repo.events[1].Status)

	// A second read finds nothing left to reconcile.
	repo.statusChanges = nil
	got, err = svc.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domain.EventStatusCompleted, got.Status)
	require.Empty(t, repo.statusChanges)
}

func TestGetEventToleratesSweepRace(t *testing.T) {
	ev := draftEvent()
	ev.Status = domain.EventStatusPublished
	ev.StartDate = timePtr(time.Now().Add(-time.Hour))
	ev.EndDate = timePtr(time.Now().Add(time.Hour))
	repo := newMockEventRepo(ev)
	repo.statusConflict = true
	svc := NewEventService(repo)

	// The sweep already moved the row; the read still serves the reconciled
	// status instead of failing.
	got, err := svc.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domain.EventStatusOngoing, got.Status)
}

func TestGetEventClosedStillCompletes(t *testing.T) {
	ev := draftEvent()
	ev.Status = domain.EventStatusClosed
	ev.StartDate = timePtr(time.Now().Add(-48 * time.Hour))
	ev.EndDate = timePtr(time.Now().Add(-24 * time.Hour))
	repo := newMockEventRepo(ev)
	svc := NewEventService(repo)

	got, err := svc.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domain.EventStatusCompleted, got.Status)
}

func TestUpdateEventDraftAcceptsEverything(t *testing.T) {
	repo := newMockEventRepo(draftEvent())
	svc := NewEventService(repo)

	newStart := time.Now().Add(96 * time.Hour)
	newEnd := time.Now().Add(120 * time.Hour)
	_, err := svc.UpdateEvent(context.Background(), 1, 2, EventUpdate{
		Name:            strPtr("Hackathon v2"),
		Eligibility:     eligPtr(domain.EligibilityIIIT),
		StartDate:       &newStart,
		EndDate:         &newEnd,
		RegistrationFee: floatPtr(100),
		Tags:            &[]string{"tech", "overnight"},
		CustomForm:      &[]domain.CustomFormField{{FieldName: "team_name", FieldType: "text", Required: true}},
	})
	require.NoError(t, err)

	require.Equal(t, "Hackathon v2", repo.updatedFields["name"])
	require.Equal(t, "iiit", repo.updatedFields["eligibility"])
	require.Equal(t, []string{"tech", "overnight"}, repo.updatedFields["tags"])
	require.Len(t, repo.replacedForm, 1)
}

func TestUpdateEventPublishedGate(t *testing.T) {
	ev := draftEvent()
	ev.Status = domain.EventStatusPublished

	frozen := []EventUpdate{
		{Name: strPtr("renamed")},
		{Eligibility: eligPtr(domain.EligibilityIIIT)},
		{StartDate: timePtr(time.Now().Add(96 * time.Hour))},
		{EndDate: timePtr(time.Now().Add(120 * time.Hour))},
		{RegistrationFee: floatPtr(50)},
		{MerchandiseItems: &[]domain.MerchandiseItem{{Name: "Cap", Stock: 5, Price: 100, PurchaseLimit: 1}}},
		{Tags: &[]string{"tech"}},
		{CustomForm: &[]domain.CustomFormField{{FieldName: "team_name", FieldType: "text"}}},
	}
	for _, update := range frozen {
		svc := NewEventService(newMockEventRepo(ev))
		_, err := svc.UpdateEvent(context.Background(), 1, 2, update)
		require.ErrorIs(t, err, ErrFieldNotEditable)
	}

	// Only description, deadline and limit stay editable after publishing.
	repo := newMockEventRepo(ev)
	svc := NewEventService(repo)
	newDeadline := time.Now().Add(12 * time.Hour)
	_, err := svc.UpdateEvent(context.Background(), 1, 2, EventUpdate{
		Description:          strPtr("now with prizes"),
		RegistrationDeadline: &newDeadline,
		RegistrationLimit:    intPtr(200),
	})
	require.NoError(t, err)
	require.Equal(t, "now with prizes", repo.updatedFields["description"])
	require.Equal(t, 200, repo.updatedFields["registration_limit"])
}

func TestUpdateEventLockedFormFrozen(t *testing.T) {
	ev := draftEvent()
	ev.Status = domain.EventStatusPublished
	ev.FormLocked = true
	svc := NewEventService(newMockEventRepo(ev))

	_, err := svc.UpdateEvent(context.Background(), 1, 2, EventUpdate{
		CustomForm: &[]domain.CustomFormField{{FieldName: "team_name", FieldType: "text"}},
	})
	require.ErrorIs(t, err, ErrFieldNotEditable)
}

func TestUpdateEventFrozenAfterPublished(t *testing.T) {
	for _, status := range []domain.EventStatus{domain.EventStatusClosed, domain.EventStatusOngoing, domain.EventStatusCompleted} {
		ev := draftEvent()
		ev.Status = status
		ev.StartDate = timePtr(time.Now().Add(48 * time.Hour))
		ev.EndDate = timePtr(time.Now().Add(72 * time.Hour))
		svc := NewEventService(newMockEventRepo(ev))

		_, err := svc.UpdateEvent(context.Background(), 1, 2, EventUpdate{Description: strPtr("late edit")})
		require.ErrorIs(t, err, ErrEventNotEditable, "status %s", status)
	}
}

func TestUpdateEventOwnership(t *testing.T) {
	svc := NewEventService(newMockEventRepo(draftEvent()))

	_, err := svc.UpdateEvent(context.Background(), 1, 99, EventUpdate{Description: strPtr("x")})
	require.ErrorIs(t, err, ErrNotEventOrganizer)
}

func TestUpdateEventMergedDateValidation(t *testing.T) {
	svc := NewEventService(newMockEventRepo(draftEvent()))

	// New start date alone collides with the stored end date.
	_, err := svc.UpdateEvent(context.Background(), 1, 2, EventUpdate{
		StartDate: timePtr(time.Now().Add(96 * time.Hour)),
	})
	require.ErrorIs(t, err, ErrInvalidEventDates)
}

func TestPublishEvent(t *testing.T) {
	repo := newMockEventRepo(draftEvent())
	svc := NewEventService(repo)

	published, err := svc.PublishEvent(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, domain.EventStatusPublished, published.Status)
	require.Equal(t, domain.EventStatusPublished, repo.events[1].Status)

	_, err = svc.PublishEvent(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrEventNotDraft)
}

func TestPublishEventRequiresDates(t *testing.T) {
	ev := draftEvent()
	ev.RegistrationDeadline = nil
	svc := NewEventService(newMockEventRepo(ev))

	_, err := svc.PublishEvent(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrEventNotPublishable)
}

func TestPublishMerchandiseNeedsItems(t *testing.T) {
	ev := draftEvent()
	ev.Type = domain.EventTypeMerchandise
	svc := NewEventService(newMockEventRepo(ev))

	_, err := svc.PublishEvent(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrEventNotPublishable)

	ev.MerchandiseItems = []domain.MerchandiseItem{{ID: 1, Name: "T-Shirt", Stock: 10, Price: 350, PurchaseLimit: 2}}
	svc = NewEventService(newMockEventRepo(ev))
	_, err = svc.PublishEvent(context.Background(), 1, 2)
	require.NoError(t, err)
}

func TestPublishEventOwnership(t *testing.T) {
	svc := NewEventService(newMockEventRepo(draftEvent()))

	_, err := svc.PublishEvent(context.Background(), 1, 99)
	require.ErrorIs(t, err, ErrNotEventOrganizer)
}

func TestCloseEvent(t *testing.T) {
	ev := draftEvent()
	ev.Status = domain.EventStatusPublished
	repo := newMockEventRepo(ev)
	svc := NewEventService(repo)

	closed, err := svc.CloseEvent(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, domain.EventStatusClosed, closed.Status)

	_, err = svc.CloseEvent(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrEventNotPublished)
}

func TestCloseEventOnlyFromPublished(t *testing.T) {
	for _, status := range []domain.EventStatus{domain.EventStatusDraft, domain.EventStatusCompleted} {
		ev := draftEvent()
		ev.Status = status
		svc := NewEventService(newMockEventRepo(ev))

		_, err := svc.CloseEvent(context.Background(), 1, 2)
		require.ErrorIs(t, err, ErrEventNotPublished, "status %s", status)
	}
}

func TestCloseEventAlreadyStarted(t *testing.T) {
	// Reconcile runs before the check; a published event whose start date
	// passed reads as ongoing and can no longer be closed.
	ev := draftEvent()
	ev.Status = domain.EventStatusPublished
	ev.StartDate = timePtr(time.Now().Add(-time.Hour))
	ev.EndDate = timePtr(time.Now().Add(time.Hour))
	svc := NewEventService(newMockEventRepo(ev))

	_, err := svc.CloseEvent(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrEventNotPublished)
}

func TestDeleteEvent(t *testing.T) {
	repo := newMockEventRepo(draftEvent())
	svc := NewEventService(repo)

	require.NoError(t, svc.DeleteEvent(context.Background(), 1, 2))
	require.Equal(t, []uint{1}, repo.deletedDrafts)

	err := svc.DeleteEvent(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestDeleteEventOnlyDrafts(t *testing.T) {
	ev := draftEvent()
	ev.Status = domain.EventStatusPublished
	svc := NewEventService(newMockEventRepo(ev))

	err := svc.DeleteEvent(context.Background(), 1, 2)
	require.ErrorIs(t, err, ErrEventNotDraft)
}

func TestListVisibleEventsReconciles(t *testing.T) {
	ev := draftEvent()
	ev.Status = domain.EventStatusPublished
	ev.StartDate = timePtr(time.Now().Add(-time.Hour))
	ev.EndDate = timePtr(time.Now().Add(time.Hour))
	draft := draftEvent()
	draft.ID = 2
	svc := NewEventService(newMockEventRepo(ev, draft))

	events, err := svc.ListVisibleEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.EventStatusOngoing, events[0].Status)
}

func TestSweepStatuses(t *testing.T) {
	repo := newMockEventRepo()
	repo.sweepStarted = []uint{3}
	repo.sweepCompleted = []uint{1, 2}
	svc := NewEventService(repo)

	started, completed, err := svc.SweepStatuses(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uint{3}, started)
	require.Equal(t, []uint{1, 2}, completed)

	// Once swept there is nothing left; a second pass is a no-op.
	started, completed, err = svc.SweepStatuses(context.Background())
	require.NoError(t, err)
	require.Empty(t, started)
	require.Empty(t, completed)
	require.Equal(t, 2, repo.sweepCalls)
}
