package domain

import "time"

type EventType string

const (
	EventTypeNormal      EventType = "normal"
	EventTypeMerchandise EventType = "merchandise"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusClosed    EventStatus = "closed"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
)

type Eligibility string

const (
	EligibilityAll     Eligibility = "all"
	EligibilityIIIT    Eligibility = "iiit"
	EligibilityNonIIIT Eligibility = "non-iiit"
)

type CustomFormField struct {
	ID        uint     `json:"id"`
	FieldName string   `json:"field_name"`
	FieldType string   `json:"field_type"` // "text", "textarea", "number", "email", "dropdown", "checkbox" or "file"
	Required  bool     `json:"required"`
	Options   []string `json:"options,omitempty"`
	Order     int      `json:"order"`
}

type MerchandiseItem struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Stock         int     `json:"stock"`
	Price         float64 `json:"price"`
	PurchaseLimit int     `json:"purchase_limit"`
}

type Event struct {
	ID                   uint              `json:"id"`
	Name                 string            `json:"name"`
	Description          string            `json:"description"`
	Type                 EventType         `json:"type"`
	OrganizerID          uint              `json:"organizer_id"`
	Eligibility          Eligibility       `json:"eligibility"`
	StartDate            *time.Time        `json:"start_date,omitempty"`
	EndDate              *time.Time        `json:"end_date,omitempty"`
	RegistrationDeadline *time.Time        `json:"registration_deadline,omitempty"`
	RegistrationLimit    int               `json:"registration_limit"` // 0 = unlimited
	RegistrationFee      float64           `json:"registration_fee"`
	RegistrationCount    int               `json:"registration_count"`
	Tags                 []string          `json:"tags,omitempty"`
	Status               EventStatus       `json:"status"`
	CustomForm           []CustomFormField `json:"custom_form,omitempty"`
	FormLocked           bool              `json:"form_locked"`
	MerchandiseItems     []MerchandiseItem `json:"merchandise_items,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// AcceptsRegistrations reports whether new orders may be placed at all.
// Deadline, capacity and eligibility are checked separately by the engine.
func (e *Event) AcceptsRegistrations() bool {
	return e.Status == EventStatusPublished || e.Status == EventStatusOngoing
}

func (e *Event) DeadlinePassed(now time.Time) bool {
	return e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline)
}

// Item returns the merchandise item with the given id, or nil.
func (e *Event) Item(itemID uint) *MerchandiseItem {
	for i := range e.MerchandiseItems {
		if e.MerchandiseItems[i].ID == itemID {
			return &e.MerchandiseItems[i]
		}
	}
	return nil
}

// Reconcile advances the status by date. It is the single place the
// time-driven transitions live; both the sweep and the read path call it.
// Returns true when the status changed.
func (e *Event) Reconcile(now time.Time) bool {
	switch e.Status {
	case EventStatusPublished, EventStatusClosed, EventStatusOngoing:
	default:
		return false
	}

	if e.EndDate != nil && !e.EndDate.After(now) {
		e.Status = EventStatusCompleted
		return true
	}

	if e.Status != EventStatusOngoing &&
		e.StartDate != nil && !e.StartDate.After(now) &&
		(e.EndDate == nil || e.EndDate.After(now)) {
		e.Status = EventStatusOngoing
		return true
	}

	return false
}
