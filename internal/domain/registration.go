package domain

import "time"

type RegistrationStatus string

const (
	RegistrationStatusRegistered      RegistrationStatus = "registered"
	RegistrationStatusCompleted       RegistrationStatus = "completed"
	RegistrationStatusCancelled       RegistrationStatus = "cancelled"
	RegistrationStatusRejected        RegistrationStatus = "rejected"
	RegistrationStatusPendingApproval RegistrationStatus = "pending_approval"
)

type PaymentStatus string

const (
	PaymentStatusNone     PaymentStatus = "none"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// MerchandiseSelection freezes name and price at order time; later edits to
// the event's items never change what was ordered.
type MerchandiseSelection struct {
	ItemID   uint    `json:"item_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Registration struct {
	ID                 uint                   `json:"id"`
	EventID            uint                   `json:"event_id"`
	ParticipantID      uint                   `json:"participant_id"`
	FormResponses      map[string]string      `json:"form_responses,omitempty"`
	Status             RegistrationStatus     `json:"status"`
	TicketID           string                 `json:"ticket_id,omitempty"`
	QRCode             string                 `json:"qr_code,omitempty"`
	Selections         []MerchandiseSelection `json:"merchandise_selections,omitempty"`
	TotalAmount        float64                `json:"total_amount"`
	PaymentProof       string                 `json:"payment_proof,omitempty"`
	PaymentStatus      PaymentStatus          `json:"payment_status"`
	Attendance         bool                   `json:"attendance"`
	AttendanceMarkedAt *time.Time             `json:"attendance_marked_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// Live reports whether the registration still counts against duplicates and
// purchase quotas. Rejected and cancelled rows free their quota.
func (r *Registration) Live() bool {
	return r.Status != RegistrationStatusRejected && r.Status != RegistrationStatusCancelled
}

func (r *Registration) HasProof() bool {
	return r.PaymentProof != ""
}

// AwaitingApproval reports whether the order may still be approved or
// rejected by the organizer.
func (r *Registration) AwaitingApproval() bool {
	return r.Status == RegistrationStatusPendingApproval
}

func (r *Registration) SelectionFor(itemID uint) *MerchandiseSelection {
	for i := range r.Selections {
		if r.Selections[i].ItemID == itemID {
			return &r.Selections[i]
		}
	}
	return nil
}
