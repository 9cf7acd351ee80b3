package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/felicity-fest/api/internal/domain"
	"github.com/felicity-fest/api/internal/repository/dao"
)

var (
	ErrRegistrationNotFound     = dao.ErrRegistrationNotFound
	ErrRegistrationLimitReached = dao.ErrRegistrationLimitReached
	ErrInsufficientStock        = dao.ErrInsufficientStock
	ErrPurchaseLimitExceeded    = dao.ErrPurchaseLimitExceeded
	ErrNotAwaitingApproval      = dao.ErrNotAwaitingApproval
	ErrProofAlreadyUploaded     = dao.ErrProofAlreadyUploaded
	ErrNotCancellable           = dao.ErrNotCancellable
)

type RegistrationDAO interface {
	Insert(ctx context.Context, registration dao.Registration, incrementCount, lockForm bool) (dao.Registration, error)
	FindByID(ctx context.Context, id uint) (dao.Registration, error)
	FindLive(ctx context.Context, eventID, participantID uint) (dao.Registration, error)
	FindUnpaidPending(ctx context.Context, eventID, participantID uint) (dao.Registration, error)
	FindByParticipantID(ctx context.Context, participantID uint) ([]dao.Registration, error)
	FindByEventID(ctx context.Context, eventID uint) ([]dao.Registration, error)
	FindByTicketID(ctx context.Context, eventID uint, ticketID string) (dao.Registration, error)
	OrderedQuantities(ctx context.Context, eventID, participantID uint) (map[uint]int, error)
	Approve(ctx context.Context, registrationID uint, ticketID, qrCode string) (dao.Registration, error)
	Reject(ctx context.Context, registrationID uint) (dao.Registration, error)
	Cancel(ctx context.Context, registrationID uint) (dao.Registration, error)
	AttachProof(ctx context.Context, registrationID uint, proofRef string) (dao.Registration, error)
	MarkAttendance(ctx context.Context, registrationID uint, at time.Time) error
}

type RegistrationRepository struct {
	dao RegistrationDAO
}

func NewRegistrationRepository(dao RegistrationDAO) *RegistrationRepository {
	return &RegistrationRepository{
		dao: dao,
	}
}

// Create persists the registration atomically with the event capacity check.
// incrementCount and lockForm mirror the decisions the service made about the
// event's type and fee.
func (r *RegistrationRepository) Create(ctx context.Context, registration domain.Registration, incrementCount, lockForm bool) (domain.Registration, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(registration), incrementCount, lockForm)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id uint) (domain.Registration, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *RegistrationRepository) FindLive(ctx context.Context, eventID, participantID uint) (domain.Registration, error) {
	found, err := r.dao.FindLive(ctx, eventID, participantID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindLive -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *RegistrationRepository) FindUnpaidPending(ctx context.Context, eventID, participantID uint) (domain.Registration, error) {
	found, err := r.dao.FindUnpaidPending(ctx, eventID, participantID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindUnpaidPending -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *RegistrationRepository) FindByParticipantID(ctx context.Context, participantID uint) ([]domain.Registration, error) {
	found, err := r.dao.FindByParticipantID(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByParticipantID -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *RegistrationRepository) FindByEventID(ctx context.Context, eventID uint) ([]domain.Registration, error) {
	found, err := r.dao.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEventID -> %w", err)
	}

	return r.daosToDomain(found), nil
}

func (r *RegistrationRepository) FindByTicketID(ctx context.Context, eventID uint, ticketID string) (domain.Registration, error) {
	found, err := r.dao.FindByTicketID(ctx, eventID, ticketID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.FindByTicketID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

// OrderedQuantities returns per-item totals across the participant's live
// orders, the source set for the order-time quota check.
func (r *RegistrationRepository) OrderedQuantities(ctx context.Context, eventID, participantID uint) (map[uint]int, error) {
	quantities, err := r.dao.OrderedQuantities(ctx, eventID, participantID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.OrderedQuantities -> %w", err)
	}

	return quantities, nil
}

func (r *RegistrationRepository) Approve(ctx context.Context, registrationID uint, ticketID, qrCode string) (domain.Registration, error) {
	approved, err := r.dao.Approve(ctx, registrationID, ticketID, qrCode)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.Approve -> %w", err)
	}

	return r.daoToDomain(approved), nil
}

func (r *RegistrationRepository) Reject(ctx context.Context, registrationID uint) (domain.Registration, error) {
	rejected, err := r.dao.Reject(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.Reject -> %w", err)
	}

	return r.daoToDomain(rejected), nil
}

func (r *RegistrationRepository) Cancel(ctx context.Context, registrationID uint) (domain.Registration, error) {
	cancelled, err := r.dao.Cancel(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.Cancel -> %w", err)
	}

	return r.daoToDomain(cancelled), nil
}

func (r *RegistrationRepository) AttachProof(ctx context.Context, registrationID uint, proofRef string) (domain.Registration, error) {
	updated, err := r.dao.AttachProof(ctx, registrationID, proofRef)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("r.dao.AttachProof -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *RegistrationRepository) MarkAttendance(ctx context.Context, registrationID uint, at time.Time) error {
	if err := r.dao.MarkAttendance(ctx, registrationID, at); err != nil {
		return fmt.Errorf("r.dao.MarkAttendance -> %w", err)
	}

	return nil
}

func (r *RegistrationRepository) domainToDao(reg domain.Registration) dao.Registration {
	daoReg := dao.Registration{
		ID:                 reg.ID,
		EventID:            reg.EventID,
		ParticipantID:      reg.ParticipantID,
		FormResponses:      reg.FormResponses,
		Status:             string(reg.Status),
		QRCode:             reg.QRCode,
		TotalAmount:        reg.TotalAmount,
		PaymentProof:       reg.PaymentProof,
		PaymentStatus:      string(reg.PaymentStatus),
		Attendance:         reg.Attendance,
		AttendanceMarkedAt: reg.AttendanceMarkedAt,
	}
	if reg.TicketID != "" {
		ticketID := reg.TicketID
		daoReg.TicketID = &ticketID
	}

	for _, sel := range reg.Selections {
		daoReg.Selections = append(daoReg.Selections, dao.RegistrationSelection{
			ItemID:   sel.ItemID,
			Name:     sel.Name,
			Quantity: sel.Quantity,
			Price:    sel.Price,
		})
	}

	return daoReg
}

func (r *RegistrationRepository) daoToDomain(reg dao.Registration) domain.Registration {
	registration := domain.Registration{
		ID:                 reg.ID,
		EventID:            reg.EventID,
		ParticipantID:      reg.ParticipantID,
		FormResponses:      reg.FormResponses,
		Status:             domain.RegistrationStatus(reg.Status),
		QRCode:             reg.QRCode,
		TotalAmount:        reg.TotalAmount,
		PaymentProof:       reg.PaymentProof,
		PaymentStatus:      domain.PaymentStatus(reg.PaymentStatus),
		Attendance:         reg.Attendance,
		AttendanceMarkedAt: reg.AttendanceMarkedAt,
		CreatedAt:          reg.CreatedAt,
		UpdatedAt:          reg.UpdatedAt,
	}
	if reg.TicketID != nil {
		registration.TicketID = *reg.TicketID
	}

	for _, sel := range reg.Selections {
		registration.Selections = append(registration.Selections, domain.MerchandiseSelection{
			ItemID:   sel.ItemID,
			Name:     sel.Name,
			Quantity: sel.Quantity,
			Price:    sel.Price,
		})
	}

	return registration
}

func (r *RegistrationRepository) daosToDomain(regs []dao.Registration) []domain.Registration {
	result := make([]domain.Registration, len(regs))
	for i, reg := range regs {
		result[i] = r.daoToDomain(reg)
	}

	return result
}
