package request

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/felicity-fest/api/internal/domain"
)

type CustomFormFieldPayload struct {
	FieldName string   `json:"field_name"`
	FieldType string   `json:"field_type"`
	Required  bool     `json:"required"`
	Options   []string `json:"options,omitempty"`
	Order     int      `json:"order"`
}

func (p CustomFormFieldPayload) Validate() error {
	return validation.ValidateStruct(
		&p,
		validation.Field(&p.FieldName, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.FieldType, validation.Required,
			validation.In("text", "textarea", "number", "email", "dropdown", "checkbox", "file")),
	)
}

type MerchandiseItemPayload struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Stock         int     `json:"stock"`
	Price         float64 `json:"price"`
	PurchaseLimit int     `json:"purchase_limit"`
}

func (p MerchandiseItemPayload) Validate() error {
	return validation.ValidateStruct(
		&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Stock, validation.Min(0)),
		validation.Field(&p.Price, validation.Min(float64(0))),
		validation.Field(&p.PurchaseLimit, validation.Required, validation.Min(1)),
	)
}

type CreateEventRequest struct {
	Name                 string                   `json:"name"`
	Description          string                   `json:"description"`
	Type                 string                   `json:"type"`
	Eligibility          string                   `json:"eligibility"`
	StartDate            *time.Time               `json:"start_date"`
	EndDate              *time.Time               `json:"end_date"`
	RegistrationDeadline *time.Time               `json:"registration_deadline"`
	RegistrationLimit    int                      `json:"registration_limit"`
	RegistrationFee      float64                  `json:"registration_fee"`
	Tags                 []string                 `json:"tags"`
	CustomForm           []CustomFormFieldPayload `json:"custom_form"`
	MerchandiseItems     []MerchandiseItemPayload `json:"merchandise_items"`
}

func (req *CreateEventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.Type, validation.Required, validation.In("normal", "merchandise")),
		validation.Field(&req.Eligibility, validation.In("all", "iiit", "non-iiit")),
		validation.Field(&req.RegistrationLimit, validation.Min(0)),
		validation.Field(&req.RegistrationFee, validation.Min(float64(0))),
		validation.Field(&req.CustomForm),
		validation.Field(&req.MerchandiseItems),
	)
}

// UpdateEventRequest uses pointers so absent fields stay untouched. Which
// fields the server accepts depends on the event's status.
type UpdateEventRequest struct {
	Name                 *string                   `json:"name"`
	Description          *string                   `json:"description"`
	Eligibility          *string                   `json:"eligibility"`
	StartDate            *time.Time                `json:"start_date"`
	EndDate              *time.Time                `json:"end_date"`
	RegistrationDeadline *time.Time                `json:"registration_deadline"`
	RegistrationLimit    *int                      `json:"registration_limit"`
	RegistrationFee      *float64                  `json:"registration_fee"`
	Tags                 *[]string                 `json:"tags"`
	CustomForm           *[]CustomFormFieldPayload `json:"custom_form"`
	MerchandiseItems     *[]MerchandiseItemPayload `json:"merchandise_items"`
}

func (req *UpdateEventRequest) Validate() error {
	if req.Name != nil {
		if err := validation.Validate(*req.Name, validation.Required, validation.Length(2, 100)); err != nil {
			return err
		}
	}
	if req.Eligibility != nil {
		if err := validation.Validate(*req.Eligibility, validation.In("all", "iiit", "non-iiit")); err != nil {
			return err
		}
	}
	if req.RegistrationLimit != nil {
		if err := validation.Validate(*req.RegistrationLimit, validation.Min(0)); err != nil {
			return err
		}
	}
	if req.RegistrationFee != nil {
		if err := validation.Validate(*req.RegistrationFee, validation.Min(float64(0))); err != nil {
			return err
		}
	}
	if req.CustomForm != nil {
		for _, f := range *req.CustomForm {
			if err := f.Validate(); err != nil {
				return err
			}
		}
	}
	if req.MerchandiseItems != nil {
		for _, item := range *req.MerchandiseItems {
			if err := item.Validate(); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p CustomFormFieldPayload) ToDomain() domain.CustomFormField {
	return domain.CustomFormField{
		FieldName: p.FieldName,
		FieldType: p.FieldType,
		Required:  p.Required,
		Options:   p.Options,
		Order:     p.Order,
	}
}

func (p MerchandiseItemPayload) ToDomain() domain.MerchandiseItem {
	return domain.MerchandiseItem{
		Name:          p.Name,
		Description:   p.Description,
		Stock:         p.Stock,
		Price:         p.Price,
		PurchaseLimit: p.PurchaseLimit,
	}
}

func FormFieldsToDomain(payloads []CustomFormFieldPayload) []domain.CustomFormField {
	fields := make([]domain.CustomFormField, len(payloads))
	for i, p := range payloads {
		fields[i] = p.ToDomain()
	}
	return fields
}

func MerchandiseItemsToDomain(payloads []MerchandiseItemPayload) []domain.MerchandiseItem {
	items := make([]domain.MerchandiseItem, len(payloads))
	for i, p := range payloads {
		items[i] = p.ToDomain()
	}
	return items
}
