package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrEventNotDraft  = errors.New("event is not a draft")
	ErrStatusConflict = errors.New("event status changed concurrently")
)

type Event struct {
	ID uint `gorm:"primaryKey"`

	Name        string `gorm:"not null"`
	Description string
	Type        string `gorm:"not null"` // "normal" or "merchandise", immutable
	OrganizerID uint   `gorm:"not null;index"`
	Eligibility string `gorm:"not null;default:'all'"`

	StartDate            *time.Time
	EndDate              *time.Time
	RegistrationDeadline *time.Time

	RegistrationLimit int     `gorm:"not null;default:0"`
	RegistrationFee   float64 `gorm:"not null;default:0"`
	RegistrationCount int     `gorm:"not null;default:0"`

	Tags   []string `gorm:"serializer:json"`
	Status string   `gorm:"not null;default:'draft';index"`

	FormLocked       bool              `gorm:"not null;default:false"`
	CustomForm       []CustomFormField `gorm:"foreignKey:EventID"`
	MerchandiseItems []MerchandiseItem `gorm:"foreignKey:EventID"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type CustomFormField struct {
	ID      uint `gorm:"primaryKey"`
	EventID uint `gorm:"not null;index"`

	FieldName string `gorm:"not null"`
	FieldType string `gorm:"not null"`
	Required  bool   `gorm:"not null;default:false"`
	Options   []string `gorm:"serializer:json"`
	Order     int      `gorm:"column:field_order;not null;default:0"`
}

type MerchandiseItem struct {
	ID      uint `gorm:"primaryKey"`
	EventID uint `gorm:"not null;index"`

	Name          string  `gorm:"not null"`
	Description   string
	Stock         int     `gorm:"not null;default:0"`
	Price         float64 `gorm:"not null;default:0"`
	PurchaseLimit int     `gorm:"not null;default:1"`
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

func (d *EventDAO) Insert(ctx context.Context, event Event) (Event, error) {
	result := d.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindByID(ctx context.Context, id uint) (Event, error) {
	var event Event

	result := d.db.WithContext(ctx).
		Preload("CustomForm", func(db *gorm.DB) *gorm.DB { return db.Order("field_order ASC") }).
		Preload("MerchandiseItems").
		First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

// FindVisible lists events open to participants (published or ongoing).
func (d *EventDAO) FindVisible(ctx context.Context) ([]Event, error) {
	var events []Event

	result := d.db.WithContext(ctx).
		Preload("MerchandiseItems").
		Where("status IN ?", []string{"published", "ongoing"}).
		Order("created_at DESC").
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}

	return events, nil
}

func (d *EventDAO) FindByOrganizerID(ctx context.Context, organizerID uint) ([]Event, error) {
	var events []Event

	result := d.db.WithContext(ctx).
		Preload("CustomForm").
		Preload("MerchandiseItems").
		Where("organizer_id = ?", organizerID).
		Order("created_at DESC").
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}

	return events, nil
}

// UpdateFields updates scalar columns only; associations are replaced
// explicitly via ReplaceCustomForm / ReplaceMerchandiseItems.
func (d *EventDAO) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := d.db.WithContext(ctx).
		Model(&Event{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}

	return nil
}

func (d *EventDAO) ReplaceCustomForm(ctx context.Context, eventID uint, fields []CustomFormField) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&CustomFormField{}).Error; err != nil {
			return err
		}
		for i := range fields {
			fields[i].ID = 0
			fields[i].EventID = eventID
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Create(&fields).Error
	})
}

func (d *EventDAO) ReplaceMerchandiseItems(ctx context.Context, eventID uint, items []MerchandiseItem) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&MerchandiseItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].ID = 0
			items[i].EventID = eventID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// UpdateStatus transitions from -> to and reports ErrStatusConflict when the
// row is no longer in the expected source status. This is what keeps the
// sweep, the read path and manual transitions from racing each other.
func (d *EventDAO) UpdateStatus(ctx context.Context, id uint, from, to string) error {
	result := d.db.WithContext(ctx).
		Model(&Event{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// DeleteDraft removes a draft event together with any orphan registrations.
func (d *EventDAO) DeleteDraft(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if event.Status != "draft" {
			return ErrEventNotDraft
		}

		var regIDs []uint
		if err := tx.Model(&Registration{}).Where("event_id = ?", id).Pluck("id", &regIDs).Error; err != nil {
			return err
		}
		if len(regIDs) > 0 {
			if err := tx.Where("registration_id IN ?", regIDs).Delete(&RegistrationSelection{}).Error; err != nil {
				return err
			}
			if err := tx.Where("event_id = ?", id).Delete(&Registration{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("event_id = ?", id).Delete(&CustomFormField{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&MerchandiseItem{}).Error; err != nil {
			return err
		}

		return tx.Delete(&Event{}, id).Error
	})
}

// Sweep applies the date-driven transitions in bulk. Conditional updates
// make it idempotent: a second run right after the first changes nothing.
func (d *EventDAO) Sweep(ctx context.Context, now time.Time) (startedIDs, completedIDs []uint, err error) {
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Event{}).
			Where("status IN ? AND start_date <= ? AND end_date > ?", []string{"published", "closed"}, now, now).
			Pluck("id", &startedIDs).Error; err != nil {
			return err
		}
		if len(startedIDs) > 0 {
			if err := tx.Model(&Event{}).
				Where("id IN ?", startedIDs).
				Update("status", "ongoing").Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&Event{}).
			Where("status IN ? AND end_date <= ?", []string{"published", "ongoing"}, now).
			Pluck("id", &completedIDs).Error; err != nil {
			return err
		}
		if len(completedIDs) > 0 {
			if err := tx.Model(&Event{}).
				Where("id IN ?", completedIDs).
				Update("status", "completed").Error; err != nil {
				return err
			}
			if err := tx.Model(&Registration{}).
				Where("event_id IN ? AND status = ?", completedIDs, "registered").
				Update("status", "completed").Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return startedIDs, completedIDs, nil
}
