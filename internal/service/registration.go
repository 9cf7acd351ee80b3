package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/felicity-fest/api/internal/domain"
	"github.com/felicity-fest/api/internal/pkg/ticket"
	"github.com/felicity-fest/api/internal/repository"
)

var (
	ErrRegistrationNotFound     = repository.ErrRegistrationNotFound
	ErrRegistrationLimitReached = repository.ErrRegistrationLimitReached
	ErrInsufficientStock        = repository.ErrInsufficientStock
	ErrPurchaseLimitExceeded    = repository.ErrPurchaseLimitExceeded
	ErrNotAwaitingApproval      = repository.ErrNotAwaitingApproval
	ErrProofAlreadyUploaded     = repository.ErrProofAlreadyUploaded
	ErrNotCancellable           = repository.ErrNotCancellable

	ErrEventNotOpen         = errors.New("event is not accepting registrations")
	ErrDeadlinePassed       = errors.New("registration deadline has passed")
	ErrNotEligible          = errors.New("participant is not eligible for this event")
	ErrOrganizerCannotOrder = errors.New("organizer accounts cannot register for events")
	ErrAlreadyRegistered    = errors.New("participant already has a live registration")
	ErrUnpaidOrderExists    = errors.New("participant already has an unpaid order awaiting approval")
	ErrMissingFormField     = errors.New("required form field is missing")
	ErrEmptyOrder           = errors.New("merchandise order has no items")
	ErrItemNotFound         = errors.New("merchandise item not found")
	ErrInvalidQuantity      = errors.New("item quantity must be at least 1")
	ErrNotMerchandiseEvent  = errors.New("event does not sell merchandise")
	ErrNotRegistrationOwner = errors.New("registration belongs to another participant")
	ErrProofRequired        = errors.New("payment proof has not been uploaded")
	ErrEventNotOngoing      = errors.New("event is not ongoing")
	ErrAttendanceMarked     = errors.New("attendance already marked")
	ErrTicketNotConfirmed   = errors.New("ticket is not attached to a confirmed registration")
)

type RegistrationRepository interface {
	Create(ctx context.Context, registration domain.Registration, incrementCount, lockForm bool) (domain.Registration, error)
	FindByID(ctx context.Context, id uint) (domain.Registration, error)
	FindLive(ctx context.Context, eventID, participantID uint) (domain.Registration, error)
	FindUnpaidPending(ctx context.Context, eventID, participantID uint) (domain.Registration, error)
	FindByParticipantID(ctx context.Context, participantID uint) ([]domain.Registration, error)
	FindByEventID(ctx context.Context, eventID uint) ([]domain.Registration, error)
	FindByTicketID(ctx context.Context, eventID uint, ticketID string) (domain.Registration, error)
	OrderedQuantities(ctx context.Context, eventID, participantID uint) (map[uint]int, error)
	Approve(ctx context.Context, registrationID uint, ticketID, qrCode string) (domain.Registration, error)
	Reject(ctx context.Context, registrationID uint) (domain.Registration, error)
	Cancel(ctx context.Context, registrationID uint) (domain.Registration, error)
	AttachProof(ctx context.Context, registrationID uint, proofRef string) (domain.Registration, error)
	MarkAttendance(ctx context.Context, registrationID uint, at time.Time) error
}

// Notifier delivers registration outcomes to participants. Delivery failures
// never fail the operation that triggered them.
type Notifier interface {
	TicketIssued(ctx context.Context, user domain.User, event domain.Event, registration domain.Registration) error
	OrderRejected(ctx context.Context, user domain.User, event domain.Event, registration domain.Registration) error
}

type RegistrationService struct {
	repo      RegistrationRepository
	eventRepo EventRepository
	userRepo  UserRepository
	notifier  Notifier
	logger    *zap.Logger
}

func NewRegistrationService(repo RegistrationRepository, eventRepo EventRepository, userRepo UserRepository, notifier Notifier, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{
		repo:      repo,
		eventRepo: eventRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// CreateOrder runs the order-time validation chain and persists the
// registration. Free normal events confirm immediately with a ticket;
// everything else lands in pending_approval for the organizer.
//
// Selections carry only ItemID and Quantity from the caller; name and price
// are frozen here from the event's current items.
func (s *RegistrationService) CreateOrder(ctx context.Context, participant domain.User, eventID uint, formResponses map[string]string, selections []domain.MerchandiseSelection) (domain.Registration, error) {
	if participant.IsOrganizer() {
		return domain.Registration{}, ErrOrganizerCannotOrder
	}

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}
	event.Reconcile(time.Now())

	if !event.AcceptsRegistrations() {
		return domain.Registration{}, ErrEventNotOpen
	}
	if event.DeadlinePassed(time.Now()) {
		return domain.Registration{}, ErrDeadlinePassed
	}
	// Re-checked under the event row lock at insert time; the fast path keeps
	// capacity ahead of the eligibility and duplicate checks.
	if event.RegistrationLimit > 0 && event.RegistrationCount >= event.RegistrationLimit {
		return domain.Registration{}, ErrRegistrationLimitReached
	}
	if !eligible(event.Eligibility, participant.ParticipantType) {
		return domain.Registration{}, ErrNotEligible
	}

	if event.Type == domain.EventTypeNormal {
		_, err := s.repo.FindLive(ctx, eventID, participant.ID)
		if err == nil {
			return domain.Registration{}, ErrAlreadyRegistered
		}
		if !errors.Is(err, repository.ErrRegistrationNotFound) {
			return domain.Registration{}, fmt.Errorf("s.repo.FindLive -> %w", err)
		}
	} else {
		_, err := s.repo.FindUnpaidPending(ctx, eventID, participant.ID)
		if err == nil {
			return domain.Registration{}, ErrUnpaidOrderExists
		}
		if !errors.Is(err, repository.ErrRegistrationNotFound) {
			return domain.Registration{}, fmt.Errorf("s.repo.FindUnpaidPending -> %w", err)
		}
	}

	for _, field := range event.CustomForm {
		if field.Required && formResponses[field.FieldName] == "" {
			return domain.Registration{}, fmt.Errorf("%w: %s", ErrMissingFormField, field.FieldName)
		}
	}

	registration := domain.Registration{
		EventID:       eventID,
		ParticipantID: participant.ID,
		FormResponses: formResponses,
		TotalAmount:   event.RegistrationFee,
		PaymentStatus: domain.PaymentStatusNone,
	}

	if event.Type == domain.EventTypeMerchandise {
		frozen, total, err := s.freezeSelections(ctx, event, participant.ID, selections)
		if err != nil {
			return domain.Registration{}, err
		}
		registration.Selections = frozen
		registration.TotalAmount += total
		registration.Status = domain.RegistrationStatusPendingApproval
	} else if event.RegistrationFee > 0 {
		registration.Status = domain.RegistrationStatusPendingApproval
	} else {
		registration.Status = domain.RegistrationStatusRegistered
		ticketID := ticket.NewID()
		qrCode, err := ticket.QRDataURL(ticketID)
		if err != nil {
			return domain.Registration{}, fmt.Errorf("ticket.QRDataURL -> %w", err)
		}
		registration.TicketID = ticketID
		registration.QRCode = qrCode
	}

	incrementCount := registration.Status == domain.RegistrationStatusRegistered
	lockForm := len(event.CustomForm) > 0 && !event.FormLocked

	created, err := s.repo.Create(ctx, registration, incrementCount, lockForm)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	if created.TicketID != "" {
		s.notifyTicketIssued(ctx, participant, event, created)
	}

	return created, nil
}

// freezeSelections validates a merchandise order against the event's items
// and snapshots name and price per line.
func (s *RegistrationService) freezeSelections(ctx context.Context, event domain.Event, participantID uint, selections []domain.MerchandiseSelection) ([]domain.MerchandiseSelection, float64, error) {
	if len(selections) == 0 {
		return nil, 0, ErrEmptyOrder
	}

	ordered, err := s.repo.OrderedQuantities(ctx, event.ID, participantID)
	if err != nil {
		return nil, 0, fmt.Errorf("s.repo.OrderedQuantities -> %w", err)
	}

	frozen := make([]domain.MerchandiseSelection, 0, len(selections))
	var total float64
	for _, sel := range selections {
		item := event.Item(sel.ItemID)
		if item == nil {
			return nil, 0, fmt.Errorf("%w: item %d", ErrItemNotFound, sel.ItemID)
		}
		if sel.Quantity < 1 {
			return nil, 0, fmt.Errorf("%w: %s", ErrInvalidQuantity, item.Name)
		}
		if sel.Quantity > item.Stock {
			return nil, 0, fmt.Errorf("%w for %s", ErrInsufficientStock, item.Name)
		}
		if ordered[item.ID]+sel.Quantity > item.PurchaseLimit {
			return nil, 0, fmt.Errorf("%w for %s", ErrPurchaseLimitExceeded, item.Name)
		}

		frozen = append(frozen, domain.MerchandiseSelection{
			ItemID:   item.ID,
			Name:     item.Name,
			Quantity: sel.Quantity,
			Price:    item.Price,
		})
		total += float64(sel.Quantity) * item.Price
	}

	return frozen, total, nil
}

// GetRegistration returns the registration if the caller owns it or
// organizes its event.
func (s *RegistrationService) GetRegistration(ctx context.Context, registrationID uint, user domain.User) (domain.Registration, error) {
	registration, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	if registration.ParticipantID == user.ID {
		return registration, nil
	}

	event, err := s.eventRepo.FindByID(ctx, registration.EventID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}
	if event.OrganizerID != user.ID {
		return domain.Registration{}, ErrNotRegistrationOwner
	}

	return registration, nil
}

func (s *RegistrationService) ListMyRegistrations(ctx context.Context, participantID uint) ([]domain.Registration, error) {
	registrations, err := s.repo.FindByParticipantID(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByParticipantID -> %w", err)
	}

	return registrations, nil
}

func (s *RegistrationService) ListEventRegistrations(ctx context.Context, eventID, organizerID uint) ([]domain.Registration, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}
	if event.OrganizerID != organizerID {
		return nil, ErrNotEventOrganizer
	}

	registrations, err := s.repo.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindByEventID -> %w", err)
	}

	return registrations, nil
}

// UploadPaymentProof records the participant's payment proof and moves the
// payment to pending review. Only the first upload is accepted.
func (s *RegistrationService) UploadPaymentProof(ctx context.Context, registrationID, participantID uint, proofRef string) (domain.Registration, error) {
	registration, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if registration.ParticipantID != participantID {
		return domain.Registration{}, ErrNotRegistrationOwner
	}
	if !registration.AwaitingApproval() {
		return domain.Registration{}, ErrNotAwaitingApproval
	}

	updated, err := s.repo.AttachProof(ctx, registrationID, proofRef)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.AttachProof -> %w", err)
	}

	return updated, nil
}

// ApproveOrder runs the approval-time validation and confirms the order with
// a fresh ticket. A failed approval changes nothing; the order stays pending
// so the organizer can retry after restocking or freeing capacity.
func (s *RegistrationService) ApproveOrder(ctx context.Context, registrationID, organizerID uint) (domain.Registration, error) {
	_, event, err := s.loadForReview(ctx, registrationID, organizerID)
	if err != nil {
		return domain.Registration{}, err
	}

	ticketID := ticket.NewID()
	qrCode, err := ticket.QRDataURL(ticketID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("ticket.QRDataURL -> %w", err)
	}

	approved, err := s.repo.Approve(ctx, registrationID, ticketID, qrCode)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.Approve -> %w", err)
	}

	if user, uErr := s.userRepo.FindByID(ctx, approved.ParticipantID); uErr == nil {
		s.notifyTicketIssued(ctx, user, event, approved)
	}

	return approved, nil
}

// RejectOrder declines a pending order, freeing its quota. Like approval,
// rejection is a verdict on an uploaded payment proof and requires one.
func (s *RegistrationService) RejectOrder(ctx context.Context, registrationID, organizerID uint) (domain.Registration, error) {
	_, event, err := s.loadForReview(ctx, registrationID, organizerID)
	if err != nil {
		return domain.Registration{}, err
	}

	rejected, err := s.repo.Reject(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.Reject -> %w", err)
	}

	if user, uErr := s.userRepo.FindByID(ctx, rejected.ParticipantID); uErr == nil {
		if nErr := s.notifier.OrderRejected(ctx, user, event, rejected); nErr != nil {
			s.logger.Warn("order rejection notification failed",
				zap.Uint("registration_id", rejected.ID),
				zap.Error(nErr))
		}
	}

	return rejected, nil
}

func (s *RegistrationService) loadForReview(ctx context.Context, registrationID, organizerID uint) (domain.Registration, domain.Event, error) {
	registration, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, domain.Event{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	event, err := s.eventRepo.FindByID(ctx, registration.EventID)
	if err != nil {
		return domain.Registration{}, domain.Event{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}
	if event.OrganizerID != organizerID {
		return domain.Registration{}, domain.Event{}, ErrNotEventOrganizer
	}
	if !registration.AwaitingApproval() {
		return domain.Registration{}, domain.Event{}, ErrNotAwaitingApproval
	}
	if !registration.HasProof() {
		return domain.Registration{}, domain.Event{}, ErrProofRequired
	}

	return registration, event, nil
}

// CancelOrder lets the participant withdraw before the event starts. Stock,
// capacity and quota held by the registration are released.
func (s *RegistrationService) CancelOrder(ctx context.Context, registrationID, participantID uint) (domain.Registration, error) {
	registration, err := s.repo.FindByID(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}
	if registration.ParticipantID != participantID {
		return domain.Registration{}, ErrNotRegistrationOwner
	}

	event, err := s.eventRepo.FindByID(ctx, registration.EventID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}
	event.Reconcile(time.Now())
	if event.Status == domain.EventStatusOngoing || event.Status == domain.EventStatusCompleted {
		return domain.Registration{}, ErrNotCancellable
	}

	cancelled, err := s.repo.Cancel(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.Cancel -> %w", err)
	}

	return cancelled, nil
}

// RemainingQuota reports, per merchandise item, how much the participant may
// still order given every live order they already placed.
func (s *RegistrationService) RemainingQuota(ctx context.Context, eventID, participantID uint) ([]domain.ItemQuota, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}
	if event.Type != domain.EventTypeMerchandise {
		return nil, ErrNotMerchandiseEvent
	}

	ordered, err := s.repo.OrderedQuantities(ctx, eventID, participantID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.OrderedQuantities -> %w", err)
	}

	quotas := make([]domain.ItemQuota, len(event.MerchandiseItems))
	for i, item := range event.MerchandiseItems {
		remaining := item.PurchaseLimit - ordered[item.ID]
		if remaining < 0 {
			remaining = 0
		}
		quotas[i] = domain.ItemQuota{
			ItemID:        item.ID,
			PurchaseLimit: item.PurchaseLimit,
			Ordered:       ordered[item.ID],
			Remaining:     remaining,
		}
	}

	return quotas, nil
}

// MarkAttendance checks a ticket in at the door of an ongoing event.
func (s *RegistrationService) MarkAttendance(ctx context.Context, eventID, organizerID uint, ticketID string) (domain.Registration, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.eventRepo.FindByID -> %w", err)
	}
	if event.OrganizerID != organizerID {
		return domain.Registration{}, ErrNotEventOrganizer
	}
	event.Reconcile(time.Now())
	if event.Status != domain.EventStatusOngoing {
		return domain.Registration{}, ErrEventNotOngoing
	}

	registration, err := s.repo.FindByTicketID(ctx, eventID, ticketID)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.FindByTicketID -> %w", err)
	}
	if registration.Status != domain.RegistrationStatusRegistered {
		return domain.Registration{}, ErrTicketNotConfirmed
	}
	if registration.Attendance {
		return domain.Registration{}, ErrAttendanceMarked
	}

	now := time.Now()
	if err := s.repo.MarkAttendance(ctx, registration.ID, now); err != nil {
		return domain.Registration{}, fmt.Errorf("s.repo.MarkAttendance -> %w", err)
	}
	registration.Attendance = true
	registration.AttendanceMarkedAt = &now

	return registration, nil
}

// ExportRegistrationsCSV renders the event's registration sheet for the
// organizer.
func (s *RegistrationService) ExportRegistrationsCSV(ctx context.Context, eventID, organizerID uint) ([]byte, error) {
	registrations, err := s.ListEventRegistrations(ctx, eventID, organizerID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"registration_id", "ticket_id", "participant_id", "name", "email", "status", "payment_status", "total_amount", "attendance", "created_at"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("w.Write -> %w", err)
	}

	for _, reg := range registrations {
		name, email := "", ""
		if user, uErr := s.userRepo.FindByID(ctx, reg.ParticipantID); uErr == nil {
			name = user.FullName()
			email = user.Email
		}

		record := []string{
			strconv.FormatUint(uint64(reg.ID), 10),
			reg.TicketID,
			strconv.FormatUint(uint64(reg.ParticipantID), 10),
			name,
			email,
			string(reg.Status),
			string(reg.PaymentStatus),
			strconv.FormatFloat(reg.TotalAmount, 'f', 2, 64),
			strconv.FormatBool(reg.Attendance),
			reg.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("w.Write -> %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("w.Flush -> %w", err)
	}

	return buf.Bytes(), nil
}

func (s *RegistrationService) notifyTicketIssued(ctx context.Context, user domain.User, event domain.Event, registration domain.Registration) {
	if err := s.notifier.TicketIssued(ctx, user, event, registration); err != nil {
		s.logger.Warn("ticket notification failed",
			zap.Uint("registration_id", registration.ID),
			zap.String("ticket_id", registration.TicketID),
			zap.Error(err))
	}
}

func eligible(eligibility domain.Eligibility, participantType string) bool {
	switch eligibility {
	case domain.EligibilityIIIT:
		return participantType == "iiit"
	case domain.EligibilityNonIIIT:
		return participantType == "non-iiit"
	default:
		return true
	}
}
