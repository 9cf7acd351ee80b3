package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/felicity-fest/api/internal/domain"
)

type OrderItemPayload struct {
	ItemID   uint `json:"item_id"`
	Quantity int  `json:"quantity"`
}

func (p OrderItemPayload) Validate() error {
	return validation.ValidateStruct(
		&p,
		validation.Field(&p.ItemID, validation.Required),
		validation.Field(&p.Quantity, validation.Required, validation.Min(1)),
	)
}

type CreateOrderRequest struct {
	FormResponses map[string]string  `json:"form_responses"`
	Items         []OrderItemPayload `json:"items"`
}

func (req *CreateOrderRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Items),
	)
}

// Selections converts the payload to selections awaiting the name/price
// snapshot, which happens against the event's current items.
func (req *CreateOrderRequest) Selections() []domain.MerchandiseSelection {
	selections := make([]domain.MerchandiseSelection, len(req.Items))
	for i, item := range req.Items {
		selections[i] = domain.MerchandiseSelection{
			ItemID:   item.ItemID,
			Quantity: item.Quantity,
		}
	}
	return selections
}

type UploadProofRequest struct {
	ProofRef string `json:"proof_ref"`
}

func (req *UploadProofRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.ProofRef, validation.Required, validation.Length(1, 500)),
	)
}

type MarkAttendanceRequest struct {
	TicketID string `json:"ticket_id"`
}

func (req *MarkAttendanceRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.TicketID, validation.Required),
	)
}
