package service

import (
	"context"
	"time"

	"github.com/felicity-fest/api/internal/domain"
	"github.com/felicity-fest/api/internal/repository"
)

type statusChange struct {
	eventID uint
	from    domain.EventStatus
	to      domain.EventStatus
}

type mockEventRepo struct {
	events map[uint]domain.Event
	nextID uint

	updatedFields  map[string]interface{}
	replacedForm   []domain.CustomFormField
	replacedItems  []domain.MerchandiseItem
	statusChanges  []statusChange
	deletedDrafts  []uint
	statusConflict bool

	sweepStarted   []uint
	sweepCompleted []uint
	sweepCalls     int
}

func newMockEventRepo(events ...domain.Event) *mockEventRepo {
	m := &mockEventRepo{events: make(map[uint]domain.Event)}
	for _, ev := range events {
		m.events[ev.ID] = ev
		if ev.ID > m.nextID {
			m.nextID = ev.ID
		}
	}
	return m
}

func (m *mockEventRepo) Create(ctx context.Context, event domain.Event) (domain.Event, error) {
	m.nextID++
	event.ID = m.nextID
	m.events[event.ID] = event
	return event, nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, id uint) (domain.Event, error) {
	ev, ok := m.events[id]
	if !ok {
		return domain.Event{}, repository.ErrEventNotFound
	}
	return ev, nil
}

func (m *mockEventRepo) FindVisible(ctx context.Context) ([]domain.Event, error) {
	var events []domain.Event
	for _, ev := range m.events {
		if ev.Status == domain.EventStatusPublished || ev.Status == domain.EventStatusOngoing {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (m *mockEventRepo) FindByOrganizerID(ctx context.Context, organizerID uint) ([]domain.Event, error) {
	var events []domain.Event
	for _, ev := range m.events {
		if ev.OrganizerID == organizerID {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (m *mockEventRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	if _, ok := m.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	if m.updatedFields == nil {
		m.updatedFields = map[string]interface{}{}
	}
	for k, v := range fields {
		m.updatedFields[k] = v
	}
	return nil
}

func (m *mockEventRepo) ReplaceCustomForm(ctx context.Context, eventID uint, fields []domain.CustomFormField) error {
	m.replacedForm = fields
	ev := m.events[eventID]
	ev.CustomForm = fields
	m.events[eventID] = ev
	return nil
}

func (m *mockEventRepo) ReplaceMerchandiseItems(ctx context.Context, eventID uint, items []domain.MerchandiseItem) error {
	m.replacedItems = items
	ev := m.events[eventID]
	ev.MerchandiseItems = items
	m.events[eventID] = ev
	return nil
}

func (m *mockEventRepo) UpdateStatus(ctx context.Context, id uint, from, to domain.EventStatus) error {
	m.statusChanges = append(m.statusChanges, statusChange{eventID: id, from: from, to: to})
	if m.statusConflict {
		return repository.ErrStatusConflict
	}
	ev, ok := m.events[id]
	if !ok || ev.Status != from {
		return repository.ErrStatusConflict
	}
	ev.Status = to
	m.events[id] = ev
	return nil
}

func (m *mockEventRepo) DeleteDraft(ctx context.Context, id uint) error {
	ev, ok := m.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if ev.Status != domain.EventStatusDraft {
		return repository.ErrEventNotDraft
	}
	delete(m.events, id)
	m.deletedDrafts = append(m.deletedDrafts, id)
	return nil
}

func (m *mockEventRepo) Sweep(ctx context.Context, now time.Time) ([]uint, []uint, error) {
	m.sweepCalls++
	started, completed := m.sweepStarted, m.sweepCompleted
	m.sweepStarted, m.sweepCompleted = nil, nil
	return started, completed, nil
}

type mockRegistrationRepo struct {
	regs   map[uint]domain.Registration
	nextID uint

	ordered    map[uint]int
	approveErr error

	lastIncrementCount bool
	lastLockForm       bool
}

func newMockRegistrationRepo(regs ...domain.Registration) *mockRegistrationRepo {
	m := &mockRegistrationRepo{regs: make(map[uint]domain.Registration)}
	for _, reg := range regs {
		m.regs[reg.ID] = reg
		if reg.ID > m.nextID {
			m.nextID = reg.ID
		}
	}
	return m
}

func (m *mockRegistrationRepo) Create(ctx context.Context, registration domain.Registration, incrementCount, lockForm bool) (domain.Registration, error) {
	m.nextID++
	registration.ID = m.nextID
	m.regs[registration.ID] = registration
	m.lastIncrementCount = incrementCount
	m.lastLockForm = lockForm
	return registration, nil
}

func (m *mockRegistrationRepo) FindByID(ctx context.Context, id uint) (domain.Registration, error) {
	reg, ok := m.regs[id]
	if !ok {
		return domain.Registration{}, repository.ErrRegistrationNotFound
	}
	return reg, nil
}

func (m *mockRegistrationRepo) FindLive(ctx context.Context, eventID, participantID uint) (domain.Registration, error) {
	for _, reg := range m.regs {
		if reg.EventID == eventID && reg.ParticipantID == participantID && reg.Live() {
			return reg, nil
		}
	}
	return domain.Registration{}, repository.ErrRegistrationNotFound
}

func (m *mockRegistrationRepo) FindUnpaidPending(ctx context.Context, eventID, participantID uint) (domain.Registration, error) {
	for _, reg := range m.regs {
		if reg.EventID == eventID && reg.ParticipantID == participantID &&
			reg.Status == domain.RegistrationStatusPendingApproval && !reg.HasProof() {
			return reg, nil
		}
	}
	return domain.Registration{}, repository.ErrRegistrationNotFound
}

func (m *mockRegistrationRepo) FindByParticipantID(ctx context.Context, participantID uint) ([]domain.Registration, error) {
	var regs []domain.Registration
	for _, reg := range m.regs {
		if reg.ParticipantID == participantID {
			regs = append(regs, reg)
		}
	}
	return regs, nil
}

func (m *mockRegistrationRepo) FindByEventID(ctx context.Context, eventID uint) ([]domain.Registration, error) {
	var regs []domain.Registration
	for _, reg := range m.regs {
		if reg.EventID == eventID {
			regs = append(regs, reg)
		}
	}
	return regs, nil
}

func (m *mockRegistrationRepo) FindByTicketID(ctx context.Context, eventID uint, ticketID string) (domain.Registration, error) {
	for _, reg := range m.regs {
		if reg.EventID == eventID && reg.TicketID == ticketID {
			return reg, nil
		}
	}
	return domain.Registration{}, repository.ErrRegistrationNotFound
}

func (m *mockRegistrationRepo) OrderedQuantities(ctx context.Context, eventID, participantID uint) (map[uint]int, error) {
	return m.ordered, nil
}

func (m *mockRegistrationRepo) Approve(ctx context.Context, registrationID uint, ticketID, qrCode string) (domain.Registration, error) {
	if m.approveErr != nil {
		return domain.Registration{}, m.approveErr
	}
	reg, ok := m.regs[registrationID]
	if !ok {
		return domain.Registration{}, repository.ErrRegistrationNotFound
	}
	reg.Status = domain.RegistrationStatusRegistered
	reg.PaymentStatus = domain.PaymentStatusApproved
	reg.TicketID = ticketID
	reg.QRCode = qrCode
	m.regs[registrationID] = reg
	return reg, nil
}

func (m *mockRegistrationRepo) Reject(ctx context.Context, registrationID uint) (domain.Registration, error) {
	reg, ok := m.regs[registrationID]
	if !ok {
		return domain.Registration{}, repository.ErrRegistrationNotFound
	}
	if reg.Status != domain.RegistrationStatusPendingApproval {
		return domain.Registration{}, repository.ErrNotAwaitingApproval
	}
	reg.Status = domain.RegistrationStatusRejected
	reg.PaymentStatus = domain.PaymentStatusRejected
	m.regs[registrationID] = reg
	return reg, nil
}

func (m *mockRegistrationRepo) Cancel(ctx context.Context, registrationID uint) (domain.Registration, error) {
	reg, ok := m.regs[registrationID]
	if !ok {
		return domain.Registration{}, repository.ErrRegistrationNotFound
	}
	if reg.Status != domain.RegistrationStatusRegistered && reg.Status != domain.RegistrationStatusPendingApproval {
		return domain.Registration{}, repository.ErrNotCancellable
	}
	reg.Status = domain.RegistrationStatusCancelled
	m.regs[registrationID] = reg
	return reg, nil
}

func (m *mockRegistrationRepo) AttachProof(ctx context.Context, registrationID uint, proofRef string) (domain.Registration, error) {
	reg, ok := m.regs[registrationID]
	if !ok {
		return domain.Registration{}, repository.ErrRegistrationNotFound
	}
	if reg.HasProof() {
		return domain.Registration{}, repository.ErrProofAlreadyUploaded
	}
	reg.PaymentProof = proofRef
	reg.PaymentStatus = domain.PaymentStatusPending
	m.regs[registrationID] = reg
	return reg, nil
}

func (m *mockRegistrationRepo) MarkAttendance(ctx context.Context, registrationID uint, at time.Time) error {
	reg, ok := m.regs[registrationID]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	reg.Attendance = true
	reg.AttendanceMarkedAt = &at
	m.regs[registrationID] = reg
	return nil
}

type mockUserRepo struct {
	users map[uint]domain.User
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

type mockNotifier struct {
	issued   []uint
	rejected []uint
	err      error
}

func (m *mockNotifier) TicketIssued(ctx context.Context, user domain.User, event domain.Event, registration domain.Registration) error {
	m.issued = append(m.issued, registration.ID)
	return m.err
}

func (m *mockNotifier) OrderRejected(ctx context.Context, user domain.User, event domain.Event, registration domain.Registration) error {
	m.rejected = append(m.rejected, registration.ID)
	return m.err
}
