package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felicity-fest/api/internal/domain"
	"github.com/felicity-fest/api/internal/repository"
)

var (
	ErrEventNotFound       = repository.ErrEventNotFound
	ErrEventNotDraft       = repository.ErrEventNotDraft
	ErrNotEventOrganizer   = errors.New("user is not the event's organizer")
	ErrEventNotEditable    = errors.New("event can no longer be edited")
	ErrFieldNotEditable    = errors.New("field cannot be edited in the event's current status")
	ErrEventNotPublishable = errors.New("event is missing required fields for publishing")
	ErrEventNotPublished   = errors.New("event is not published")
	ErrInvalidEventDates   = errors.New("event dates are inconsistent")
)

// EventUpdate carries the fields an organizer wants to change. Nil means
// "leave untouched"; which non-nil fields are accepted depends on the
// event's status.
type EventUpdate struct {
	Name                 *string
	Description          *string
	Eligibility          *domain.Eligibility
	StartDate            *time.Time
	EndDate              *time.Time
	RegistrationDeadline *time.Time
	RegistrationLimit    *int
	RegistrationFee      *float64
	Tags                 *[]string
	CustomForm           *[]domain.CustomFormField
	MerchandiseItems     *[]domain.MerchandiseItem
}

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	FindVisible(ctx context.Context) ([]domain.Event, error)
	FindByOrganizerID(ctx context.Context, organizerID uint) ([]domain.Event, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	ReplaceCustomForm(ctx context.Context, eventID uint, fields []domain.CustomFormField) error
	ReplaceMerchandiseItems(ctx context.Context, eventID uint, items []domain.MerchandiseItem) error
	UpdateStatus(ctx context.Context, id uint, from, to domain.EventStatus) error
	DeleteDraft(ctx context.Context, id uint) error
	Sweep(ctx context.Context, now time.Time) (startedIDs, completedIDs []uint, err error)
}

type EventService struct {
	repo EventRepository
}

func NewEventService(repo EventRepository) *EventService {
	return &EventService{
		repo: repo,
	}
}

// CreateEvent creates a draft owned by the organizer. Type and eligibility
// are fixed at creation; everything else can still change while drafted.
func (s *EventService) CreateEvent(ctx context.Context, event domain.Event, organizerID uint) (domain.Event, error) {
	event.ID = 0
	event.OrganizerID = organizerID
	event.Status = domain.EventStatusDraft
	event.RegistrationCount = 0
	event.FormLocked = false
	if event.Eligibility == "" {
		event.Eligibility = domain.EligibilityAll
	}
	// Merchandise events price by item; a flat fee would double-charge.
	if event.Type == domain.EventTypeMerchandise {
		event.RegistrationFee = 0
	}

	if err := validateDates(event.StartDate, event.EndDate, event.RegistrationDeadline); err != nil {
		return domain.Event{}, err
	}

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

// GetEvent loads the event and reconciles its status against the clock, so a
// read never serves a stale "published" for an event whose dates have passed.
// The conditional status write tolerates the sweep racing us.
func (s *EventService) GetEvent(ctx context.Context, id uint) (domain.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	previous := event.Status
	if event.Reconcile(time.Now()) {
		err = s.repo.UpdateStatus(ctx, event.ID, previous, event.Status)
		if err != nil && !errors.Is(err, repository.ErrStatusConflict) {
			return domain.Event{}, fmt.Errorf("s.repo.UpdateStatus -> %w", err)
		}
	}

	return event, nil
}

func (s *EventService) ListVisibleEvents(ctx context.Context) ([]domain.Event, error) {
	events, err := s.repo.FindVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindVisible -> %w", err)
	}

	now := time.Now()
	for i := range events {
		events[i].Reconcile(now)
	}

	return events, nil
}

func (s *EventService) ListOrganizerEvents(ctx context.Context, organizerID uint) ([]domain.Event, error) {
	events, err := s.repo.FindByOrganizerID(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByOrganizerID -> %w", err)
	}

	now := time.Now()
	for i := range events {
		events[i].Reconcile(now)
	}

	return events, nil
}

// UpdateEvent applies the update after checking ownership and the status
// gate: drafts accept everything, published events a narrow set, and
// anything past published is frozen.
func (s *EventService) UpdateEvent(ctx context.Context, eventID, organizerID uint, update EventUpdate) (domain.Event, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	if event.OrganizerID != organizerID {
		return domain.Event{}, ErrNotEventOrganizer
	}

	switch event.Status {
	case domain.EventStatusDraft:
	case domain.EventStatusPublished:
		// Only description, deadline and limit stay editable once
		// participants can see the event.
		if update.Name != nil || update.Eligibility != nil ||
			update.StartDate != nil || update.EndDate != nil ||
			update.RegistrationFee != nil || update.MerchandiseItems != nil ||
			update.Tags != nil || update.CustomForm != nil {
			return domain.Event{}, ErrFieldNotEditable
		}
	default:
		return domain.Event{}, ErrEventNotEditable
	}

	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Eligibility != nil {
		fields["eligibility"] = string(*update.Eligibility)
	}

	startDate, endDate, deadline := event.StartDate, event.EndDate, event.RegistrationDeadline
	if update.StartDate != nil {
		startDate = update.StartDate
		fields["start_date"] = *update.StartDate
	}
	if update.EndDate != nil {
		endDate = update.EndDate
		fields["end_date"] = *update.EndDate
	}
	if update.RegistrationDeadline != nil {
		deadline = update.RegistrationDeadline
		fields["registration_deadline"] = *update.RegistrationDeadline
	}
	if err := validateDates(startDate, endDate, deadline); err != nil {
		return domain.Event{}, err
	}

	if update.RegistrationLimit != nil {
		fields["registration_limit"] = *update.RegistrationLimit
	}
	if update.RegistrationFee != nil {
		fields["registration_fee"] = *update.RegistrationFee
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, eventID, fields); err != nil {
			return domain.Event{}, fmt.Errorf("s.repo.UpdateFields -> %w", err)
		}
	}
	if update.Tags != nil {
		if err := s.repo.UpdateFields(ctx, eventID, map[string]interface{}{"tags": *update.Tags}); err != nil {
			return domain.Event{}, fmt.Errorf("s.repo.UpdateFields -> %w", err)
		}
	}
	if update.CustomForm != nil {
		if err := s.repo.ReplaceCustomForm(ctx, eventID, *update.CustomForm); err != nil {
			return domain.Event{}, fmt.Errorf("s.repo.ReplaceCustomForm -> %w", err)
		}
	}
	if update.MerchandiseItems != nil {
		if err := s.repo.ReplaceMerchandiseItems(ctx, eventID, *update.MerchandiseItems); err != nil {
			return domain.Event{}, fmt.Errorf("s.repo.ReplaceMerchandiseItems -> %w", err)
		}
	}

	updated, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return updated, nil
}

// PublishEvent transitions draft -> published once the event is complete
// enough to take registrations: all three dates set and consistent, and a
// merchandise event has at least one item for sale.
func (s *EventService) PublishEvent(ctx context.Context, eventID, organizerID uint) (domain.Event, error) {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if event.OrganizerID != organizerID {
		return domain.Event{}, ErrNotEventOrganizer
	}
	if event.Status != domain.EventStatusDraft {
		return domain.Event{}, ErrEventNotDraft
	}

	if event.StartDate == nil || event.EndDate == nil || event.RegistrationDeadline == nil {
		return domain.Event{}, ErrEventNotPublishable
	}
	if err := validateDates(event.StartDate, event.EndDate, event.RegistrationDeadline); err != nil {
		return domain.Event{}, err
	}
	if event.Type == domain.EventTypeMerchandise && len(event.MerchandiseItems) == 0 {
		return domain.Event{}, ErrEventNotPublishable
	}

	err = s.repo.UpdateStatus(ctx, eventID, domain.EventStatusDraft, domain.EventStatusPublished)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.UpdateStatus -> %w", err)
	}
	event.Status = domain.EventStatusPublished

	return event, nil
}

// CloseEvent stops registrations early. Only published events close; an
// ongoing or completed event is already past the point where closing means
// anything.
func (s *EventService) CloseEvent(ctx context.Context, eventID, organizerID uint) (domain.Event, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	if event.OrganizerID != organizerID {
		return domain.Event{}, ErrNotEventOrganizer
	}
	if event.Status != domain.EventStatusPublished {
		return domain.Event{}, ErrEventNotPublished
	}

	err = s.repo.UpdateStatus(ctx, eventID, domain.EventStatusPublished, domain.EventStatusClosed)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.repo.UpdateStatus -> %w", err)
	}
	event.Status = domain.EventStatusClosed

	return event, nil
}

// DeleteEvent removes a draft. Published and later events keep their
// registration history and cannot be deleted.
func (s *EventService) DeleteEvent(ctx context.Context, eventID, organizerID uint) error {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if event.OrganizerID != organizerID {
		return ErrNotEventOrganizer
	}

	if err := s.repo.DeleteDraft(ctx, eventID); err != nil {
		return fmt.Errorf("s.repo.DeleteDraft -> %w", err)
	}

	return nil
}

// SweepStatuses applies the date-driven transitions across all events.
func (s *EventService) SweepStatuses(ctx context.Context) (started, completed []uint, err error) {
	started, completed, err = s.repo.Sweep(ctx, time.Now())
	if err != nil {
		return nil, nil, fmt.Errorf("s.repo.Sweep -> %w", err)
	}

	return started, completed, nil
}

// validateDates enforces deadline <= start < end over whichever dates are set.
func validateDates(start, end, deadline *time.Time) error {
	if start != nil && end != nil && !start.Before(*end) {
		return ErrInvalidEventDates
	}
	if deadline != nil && start != nil && deadline.After(*start) {
		return ErrInvalidEventDates
	}
	if deadline != nil && end != nil && deadline.After(*end) {
		return ErrInvalidEventDates
	}
	return nil
}
