package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRegistrationNotFound     = errors.New("registration not found")
	ErrRegistrationLimitReached = errors.New("registration limit has been reached")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrPurchaseLimitExceeded    = errors.New("purchase limit exceeded")
	ErrNotAwaitingApproval      = errors.New("registration is not awaiting approval")
	ErrProofAlreadyUploaded     = errors.New("payment proof already uploaded")
	ErrNotCancellable           = errors.New("registration cannot be cancelled")
)

type Registration struct {
	ID uint `gorm:"primaryKey"`

	EventID       uint `gorm:"not null;index:idx_registrations_event_participant"`
	ParticipantID uint `gorm:"not null;index:idx_registrations_event_participant"`

	FormResponses map[string]string `gorm:"serializer:json"`

	Status   string  `gorm:"not null;default:'registered';index"`
	TicketID *string `gorm:"uniqueIndex"`
	QRCode   string

	Selections []RegistrationSelection `gorm:"foreignKey:RegistrationID"`

	TotalAmount   float64 `gorm:"not null;default:0"`
	PaymentProof  string  `gorm:"not null;default:''"`
	PaymentStatus string  `gorm:"not null;default:'none'"`

	Attendance         bool `gorm:"not null;default:false"`
	AttendanceMarkedAt *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// RegistrationSelection snapshots one ordered item; name and price are frozen
// at order time.
type RegistrationSelection struct {
	ID             uint `gorm:"primaryKey"`
	RegistrationID uint `gorm:"not null;index"`

	ItemID   uint    `gorm:"not null"`
	Name     string  `gorm:"not null"`
	Quantity int     `gorm:"not null"`
	Price    float64 `gorm:"not null"`
}

type RegistrationDAO struct {
	db *gorm.DB
}

func NewRegistrationDAO(db *gorm.DB) *RegistrationDAO {
	return &RegistrationDAO{
		db: db,
	}
}

// Insert creates the registration while holding the event row lock, so two
// concurrent orders cannot both pass the capacity check. incrementCount is
// true only for free normal events (everything else is counted on approval);
// lockForm freezes a normal event's custom form on its first registration.
func (d *RegistrationDAO) Insert(ctx context.Context, registration Registration, incrementCount, lockForm bool) (Registration, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&event, registration.EventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		if event.RegistrationLimit > 0 && event.RegistrationCount >= event.RegistrationLimit {
			return ErrRegistrationLimitReached
		}

		if err := tx.Create(&registration).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if incrementCount {
			updates["registration_count"] = gorm.Expr("registration_count + 1")
		}
		if lockForm && !event.FormLocked {
			updates["form_locked"] = true
		}
		if len(updates) > 0 {
			if err := tx.Model(&Event{}).Where("id = ?", event.ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return Registration{}, err
	}

	return registration, nil
}

func (d *RegistrationDAO) FindByID(ctx context.Context, id uint) (Registration, error) {
	var registration Registration

	result := d.db.WithContext(ctx).Preload("Selections").First(&registration, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}

		return Registration{}, result.Error
	}

	return registration, nil
}

// FindLive returns the participant's registration that still counts against
// the one-per-person rule of normal events (anything not rejected/cancelled).
func (d *RegistrationDAO) FindLive(ctx context.Context, eventID, participantID uint) (Registration, error) {
	var registration Registration

	result := d.db.WithContext(ctx).
		Where("event_id = ? AND participant_id = ? AND status NOT IN ?",
			eventID, participantID, []string{"rejected", "cancelled"}).
		First(&registration)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}

		return Registration{}, result.Error
	}

	return registration, nil
}

// FindUnpaidPending returns the participant's order that is awaiting approval
// but has no payment proof yet. Merchandise events allow at most one of these.
func (d *RegistrationDAO) FindUnpaidPending(ctx context.Context, eventID, participantID uint) (Registration, error) {
	var registration Registration

	result := d.db.WithContext(ctx).
		Where("event_id = ? AND participant_id = ? AND status = ? AND payment_proof = ''",
			eventID, participantID, "pending_approval").
		First(&registration)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}

		return Registration{}, result.Error
	}

	return registration, nil
}

func (d *RegistrationDAO) FindByParticipantID(ctx context.Context, participantID uint) ([]Registration, error) {
	var registrations []Registration

	result := d.db.WithContext(ctx).
		Preload("Selections").
		Where("participant_id = ?", participantID).
		Order("created_at DESC").
		Find(&registrations)
	if result.Error != nil {
		return nil, result.Error
	}

	return registrations, nil
}

func (d *RegistrationDAO) FindByEventID(ctx context.Context, eventID uint) ([]Registration, error) {
	var registrations []Registration

	result := d.db.WithContext(ctx).
		Preload("Selections").
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&registrations)
	if result.Error != nil {
		return nil, result.Error
	}

	return registrations, nil
}

func (d *RegistrationDAO) FindByTicketID(ctx context.Context, eventID uint, ticketID string) (Registration, error) {
	var registration Registration

	result := d.db.WithContext(ctx).
		Where("event_id = ? AND ticket_id = ?", eventID, ticketID).
		First(&registration)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Registration{}, ErrRegistrationNotFound
		}

		return Registration{}, result.Error
	}

	return registration, nil
}

// OrderedQuantities sums, per item, everything the participant has committed
// to across all live orders (pending and approved alike). This is the
// order-time source set; the approval-time one is approvedQuantities.
func (d *RegistrationDAO) OrderedQuantities(ctx context.Context, eventID, participantID uint) (map[uint]int, error) {
	return sumSelections(d.db.WithContext(ctx), eventID, participantID,
		[]string{"rejected", "cancelled"}, 0)
}

type itemQuantity struct {
	ItemID   uint
	Quantity int
}

// sumSelections aggregates ordered quantities per item over the participant's
// registrations, excluding the given statuses and optionally one registration.
func sumSelections(db *gorm.DB, eventID, participantID uint, excludeStatuses []string, excludeRegistrationID uint) (map[uint]int, error) {
	query := db.
		Table("registration_selections").
		Select("registration_selections.item_id AS item_id, SUM(registration_selections.quantity) AS quantity").
		Joins("JOIN registrations ON registrations.id = registration_selections.registration_id").
		Where("registrations.event_id = ? AND registrations.participant_id = ?", eventID, participantID).
		Group("registration_selections.item_id")
	if len(excludeStatuses) > 0 {
		query = query.Where("registrations.status NOT IN ?", excludeStatuses)
	}
	if excludeRegistrationID != 0 {
		query = query.Where("registrations.id <> ?", excludeRegistrationID)
	}

	var rows []itemQuantity
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	quantities := make(map[uint]int, len(rows))
	for _, row := range rows {
		quantities[row.ItemID] = row.Quantity
	}

	return quantities, nil
}

// approvedQuantities sums only the participant's other already-approved
// orders. Used at approval time: the order under review is excluded because
// it is the one being judged.
func approvedQuantities(tx *gorm.DB, eventID, participantID, excludeRegistrationID uint) (map[uint]int, error) {
	query := tx.
		Table("registration_selections").
		Select("registration_selections.item_id AS item_id, SUM(registration_selections.quantity) AS quantity").
		Joins("JOIN registrations ON registrations.id = registration_selections.registration_id").
		Where("registrations.event_id = ? AND registrations.participant_id = ? AND registrations.status = ?",
			eventID, participantID, "registered").
		Where("registrations.id <> ?", excludeRegistrationID).
		Group("registration_selections.item_id")

	var rows []itemQuantity
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	quantities := make(map[uint]int, len(rows))
	for _, row := range rows {
		quantities[row.ItemID] = row.Quantity
	}

	return quantities, nil
}

// Approve runs the second validation phase and the mutations as one unit
// under the event row lock: stock and quota are re-checked against current
// state, then stock is decremented, the distinct-participant count is
// maintained and the ticket is attached. Any check failing aborts with no
// partial effects, leaving the registration pending so the organizer can
// retry once conditions change.
func (d *RegistrationDAO) Approve(ctx context.Context, registrationID uint, ticketID, qrCode string) (Registration, error) {
	var registration Registration

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Selections").First(&registration, registrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		var event Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&event, registration.EventID).Error; err != nil {
			return err
		}

		// Guard against a second organizer click racing the first.
		if registration.Status != "pending_approval" {
			return ErrNotAwaitingApproval
		}

		if event.Type == "merchandise" {
			var items []MerchandiseItem
			if err := tx.Where("event_id = ?", event.ID).Find(&items).Error; err != nil {
				return err
			}
			itemsByID := make(map[uint]MerchandiseItem, len(items))
			for _, item := range items {
				itemsByID[item.ID] = item
			}

			approved, err := approvedQuantities(tx, event.ID, registration.ParticipantID, registration.ID)
			if err != nil {
				return err
			}

			for _, sel := range registration.Selections {
				item, ok := itemsByID[sel.ItemID]
				if !ok || item.Stock < sel.Quantity {
					return fmt.Errorf("%w for %s", ErrInsufficientStock, sel.Name)
				}
				if approved[sel.ItemID]+sel.Quantity > item.PurchaseLimit {
					return fmt.Errorf("%w for %s", ErrPurchaseLimitExceeded, sel.Name)
				}
			}
		}

		firstApproval := true
		if event.Type == "merchandise" {
			var existingApproved int64
			if err := tx.Model(&Registration{}).
				Where("event_id = ? AND participant_id = ? AND status IN ? AND id <> ?",
					event.ID, registration.ParticipantID, []string{"registered", "completed"}, registration.ID).
				Count(&existingApproved).Error; err != nil {
				return err
			}
			firstApproval = existingApproved == 0
		}

		if event.RegistrationLimit > 0 {
			if event.Type == "merchandise" {
				var distinct int64
				if err := tx.Model(&Registration{}).
					Where("event_id = ? AND status IN ?", event.ID, []string{"registered", "completed"}).
					Distinct("participant_id").
					Count(&distinct).Error; err != nil {
					return err
				}
				if firstApproval && distinct >= int64(event.RegistrationLimit) {
					return ErrRegistrationLimitReached
				}
			} else {
				var confirmed int64
				if err := tx.Model(&Registration{}).
					Where("event_id = ? AND status IN ?", event.ID, []string{"registered", "completed"}).
					Count(&confirmed).Error; err != nil {
					return err
				}
				if confirmed >= int64(event.RegistrationLimit) {
					return ErrRegistrationLimitReached
				}
			}
		}

		if event.Type == "merchandise" {
			for _, sel := range registration.Selections {
				result := tx.Model(&MerchandiseItem{}).
					Where("id = ? AND stock >= ?", sel.ItemID, sel.Quantity).
					Update("stock", gorm.Expr("stock - ?", sel.Quantity))
				if result.Error != nil {
					return result.Error
				}
				if result.RowsAffected == 0 {
					return fmt.Errorf("%w for %s", ErrInsufficientStock, sel.Name)
				}
			}
		}

		if firstApproval {
			if err := tx.Model(&Event{}).
				Where("id = ?", event.ID).
				Update("registration_count", gorm.Expr("registration_count + 1")).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":         "registered",
			"payment_status": "approved",
			"ticket_id":      ticketID,
			"qr_code":        qrCode,
		}
		if err := tx.Model(&Registration{}).Where("id = ?", registration.ID).Updates(updates).Error; err != nil {
			return err
		}

		registration.Status = "registered"
		registration.PaymentStatus = "approved"
		registration.TicketID = &ticketID
		registration.QRCode = qrCode

		return nil
	})
	if err != nil {
		return Registration{}, err
	}

	return registration, nil
}

// Cancel is Approve's inverse: under the event row lock it returns stock to
// the shelf, releases the capacity slot if this was the participant's only
// confirmed order, and frees the purchase quota by leaving the row in a
// status the quota queries exclude.
func (d *RegistrationDAO) Cancel(ctx context.Context, registrationID uint) (Registration, error) {
	var registration Registration

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Selections").First(&registration, registrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		var event Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&event, registration.EventID).Error; err != nil {
			return err
		}

		if registration.Status != "registered" && registration.Status != "pending_approval" {
			return ErrNotCancellable
		}
		wasConfirmed := registration.Status == "registered"

		if wasConfirmed && event.Type == "merchandise" {
			for _, sel := range registration.Selections {
				if err := tx.Model(&MerchandiseItem{}).
					Where("id = ?", sel.ItemID).
					Update("stock", gorm.Expr("stock + ?", sel.Quantity)).Error; err != nil {
					return err
				}
			}
		}

		if wasConfirmed {
			releaseSlot := true
			if event.Type == "merchandise" {
				var otherConfirmed int64
				if err := tx.Model(&Registration{}).
					Where("event_id = ? AND participant_id = ? AND status IN ? AND id <> ?",
						event.ID, registration.ParticipantID, []string{"registered", "completed"}, registration.ID).
					Count(&otherConfirmed).Error; err != nil {
					return err
				}
				releaseSlot = otherConfirmed == 0
			}
			if releaseSlot {
				if err := tx.Model(&Event{}).
					Where("id = ? AND registration_count > 0", event.ID).
					Update("registration_count", gorm.Expr("registration_count - 1")).Error; err != nil {
					return err
				}
			}
		}

		if err := tx.Model(&Registration{}).
			Where("id = ?", registration.ID).
			Update("status", "cancelled").Error; err != nil {
			return err
		}
		registration.Status = "cancelled"

		return nil
	})
	if err != nil {
		return Registration{}, err
	}

	return registration, nil
}

// Reject flips both status axes; the conditional update makes a second click
// a no-op error rather than a double rejection.
func (d *RegistrationDAO) Reject(ctx context.Context, registrationID uint) (Registration, error) {
	result := d.db.WithContext(ctx).
		Model(&Registration{}).
		Where("id = ? AND status = ?", registrationID, "pending_approval").
		Updates(map[string]interface{}{
			"status":         "rejected",
			"payment_status": "rejected",
		})
	if result.Error != nil {
		return Registration{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Registration{}, ErrNotAwaitingApproval
	}

	return d.FindByID(ctx, registrationID)
}

// AttachProof records the first (and only) payment proof upload.
func (d *RegistrationDAO) AttachProof(ctx context.Context, registrationID uint, proofRef string) (Registration, error) {
	result := d.db.WithContext(ctx).
		Model(&Registration{}).
		Where("id = ? AND payment_proof = ''", registrationID).
		Updates(map[string]interface{}{
			"payment_proof":  proofRef,
			"payment_status": "pending",
		})
	if result.Error != nil {
		return Registration{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Registration{}, ErrProofAlreadyUploaded
	}

	return d.FindByID(ctx, registrationID)
}

// MarkAttendance sets attendance exactly once for a confirmed registration.
func (d *RegistrationDAO) MarkAttendance(ctx context.Context, registrationID uint, at time.Time) error {
	result := d.db.WithContext(ctx).
		Model(&Registration{}).
		Where("id = ? AND status = ? AND attendance = false", registrationID, "registered").
		Updates(map[string]interface{}{
			"attendance":           true,
			"attendance_marked_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRegistrationNotFound
	}

	return nil
}
