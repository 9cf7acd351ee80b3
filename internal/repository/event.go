package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/felicity-fest/api/internal/domain"
	"github.com/felicity-fest/api/internal/repository/dao"
)

var (
	ErrEventNotFound  = dao.ErrEventNotFound
	ErrEventNotDraft  = dao.ErrEventNotDraft
	ErrStatusConflict = dao.ErrStatusConflict
)

type EventDAO interface {
	Insert(ctx context.Context, event dao.Event) (dao.Event, error)
	FindByID(ctx context.Context, id uint) (dao.Event, error)
	FindVisible(ctx context.Context) ([]dao.Event, error)
	FindByOrganizerID(ctx context.Context, organizerID uint) ([]dao.Event, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	ReplaceCustomForm(ctx context.Context, eventID uint, fields []dao.CustomFormField) error
	ReplaceMerchandiseItems(ctx context.Context, eventID uint, items []dao.MerchandiseItem) error
	UpdateStatus(ctx context.Context, id uint, from, to string) error
	DeleteDraft(ctx context.Context, id uint) error
	Sweep(ctx context.Context, now time.Time) (startedIDs, completedIDs []uint, err error)
}

type EventRepository struct {
	dao EventDAO
}

func NewEventRepository(dao EventDAO) *EventRepository {
	return &EventRepository{
		dao: dao,
	}
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (domain.Event, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *EventRepository) FindVisible(ctx context.Context) ([]domain.Event, error) {
	found, err := r.dao.FindVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindVisible -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *EventRepository) FindByOrganizerID(ctx context.Context, organizerID uint) ([]domain.Event, error) {
	found, err := r.dao.FindByOrganizerID(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByOrganizerID -> %w", err)
	}

	return r.daosToDomain(found), nil
}

// UpdateFields writes the given scalar columns only; the caller decides which
// fields the event's status allows.
func (r *EventRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	if err := r.dao.UpdateFields(ctx, id, fields); err != nil {
		return fmt.Errorf("r.dao.UpdateFields -> %w", err)
	}

	return nil
}

func (r *EventRepository) ReplaceCustomForm(ctx context.Context, eventID uint, fields []domain.CustomFormField) error {
	daoFields := make([]dao.CustomFormField, len(fields))
	for i, f := range fields {
		daoFields[i] = dao.CustomFormField{
			FieldName: f.FieldName,
			FieldType: f.FieldType,
			Required:  f.Required,
			Options:   f.Options,
			Order:     f.Order,
		}
	}

	if err := r.dao.ReplaceCustomForm(ctx, eventID, daoFields); err != nil {
		return fmt.Errorf("r.dao.ReplaceCustomForm -> %w", err)
	}

	return nil
}

func (r *EventRepository) ReplaceMerchandiseItems(ctx context.Context, eventID uint, items []domain.MerchandiseItem) error {
	daoItems := make([]dao.MerchandiseItem, len(items))
	for i, item := range items {
		daoItems[i] = dao.MerchandiseItem{
			Name:          item.Name,
			Description:   item.Description,
			Stock:         item.Stock,
			Price:         item.Price,
			PurchaseLimit: item.PurchaseLimit,
		}
	}

	if err := r.dao.ReplaceMerchandiseItems(ctx, eventID, daoItems); err != nil {
		return fmt.Errorf("r.dao.ReplaceMerchandiseItems -> %w", err)
	}

	return nil
}

func (r *EventRepository) UpdateStatus(ctx context.Context, id uint, from, to domain.EventStatus) error {
	if err := r.dao.UpdateStatus(ctx, id, string(from), string(to)); err != nil {
		return fmt.Errorf("r.dao.UpdateStatus -> %w", err)
	}

	return nil
}

func (r *EventRepository) DeleteDraft(ctx context.Context, id uint) error {
	if err := r.dao.DeleteDraft(ctx, id); err != nil {
		return fmt.Errorf("r.dao.DeleteDraft -> %w", err)
	}

	return nil
}

func (r *EventRepository) Sweep(ctx context.Context, now time.Time) (startedIDs, completedIDs []uint, err error) {
	startedIDs, completedIDs, err = r.dao.Sweep(ctx, now)
	if err != nil {
		return nil, nil, fmt.Errorf("r.dao.Sweep -> %w", err)
	}

	return startedIDs, completedIDs, nil
}

func (r *EventRepository) domainToDao(e domain.Event) dao.Event {
	daoEvent := dao.Event{
		ID:                   e.ID,
		Name:                 e.Name,
		Description:          e.Description,
		Type:                 string(e.Type),
		OrganizerID:          e.OrganizerID,
		Eligibility:          string(e.Eligibility),
		StartDate:            e.StartDate,
		EndDate:              e.EndDate,
		RegistrationDeadline: e.RegistrationDeadline,
		RegistrationLimit:    e.RegistrationLimit,
		RegistrationFee:      e.RegistrationFee,
		RegistrationCount:    e.RegistrationCount,
		Tags:                 e.Tags,
		Status:               string(e.Status),
		FormLocked:           e.FormLocked,
	}

	for _, f := range e.CustomForm {
		daoEvent.CustomForm = append(daoEvent.CustomForm, dao.CustomFormField{
			FieldName: f.FieldName,
			FieldType: f.FieldType,
			Required:  f.Required,
			Options:   f.Options,
			Order:     f.Order,
		})
	}
	for _, item := range e.MerchandiseItems {
		daoEvent.MerchandiseItems = append(daoEvent.MerchandiseItems, dao.MerchandiseItem{
			Name:          item.Name,
			Description:   item.Description,
			Stock:         item.Stock,
			Price:         item.Price,
			PurchaseLimit: item.PurchaseLimit,
		})
	}

	return daoEvent
}

func (r *EventRepository) daoToDomain(e dao.Event) domain.Event {
	event := domain.Event{
		ID:                   e.ID,
		Name:                 e.Name,
		Description:          e.Description,
		Type:                 domain.EventType(e.Type),
		OrganizerID:          e.OrganizerID,
		Eligibility:          domain.Eligibility(e.Eligibility),
		StartDate:            e.StartDate,
		EndDate:              e.EndDate,
		RegistrationDeadline: e.RegistrationDeadline,
		RegistrationLimit:    e.RegistrationLimit,
		RegistrationFee:      e.RegistrationFee,
		RegistrationCount:    e.RegistrationCount,
		Tags:                 e.Tags,
		Status:               domain.EventStatus(e.Status),
		FormLocked:           e.FormLocked,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}

	for _, f := range e.CustomForm {
		event.CustomForm = append(event.CustomForm, domain.CustomFormField{
			ID:        f.ID,
			FieldName: f.FieldName,
			FieldType: f.FieldType,
			Required:  f.Required,
			Options:   f.Options,
			Order:     f.Order,
		})
	}
	for _, item := range e.MerchandiseItems {
		event.MerchandiseItems = append(event.MerchandiseItems, domain.MerchandiseItem{
			ID:            item.ID,
			Name:          item.Name,
			Description:   item.Description,
			Stock:         item.Stock,
			Price:         item.Price,
			PurchaseLimit: item.PurchaseLimit,
		})
	}

	return event
}

func (r *EventRepository) daosToDomain(events []dao.Event) []domain.Event {
	result := make([]domain.Event, len(events))
	for i, e := range events {
		result[i] = r.daoToDomain(e)
	}

	return result
}
