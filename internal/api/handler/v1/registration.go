package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/felicity-fest/api/internal/api/handler/v1/request"
	"github.com/felicity-fest/api/internal/api/handler/v1/response"
	"github.com/felicity-fest/api/internal/domain"
	"github.com/felicity-fest/api/internal/service"
)

type RegistrationService interface {
	CreateOrder(ctx context.Context, participant domain.User, eventID uint, formResponses map[string]string, selections []domain.MerchandiseSelection) (domain.Registration, error)
	GetRegistration(ctx context.Context, registrationID uint, user domain.User) (domain.Registration, error)
	ListMyRegistrations(ctx context.Context, participantID uint) ([]domain.Registration, error)
	ListEventRegistrations(ctx context.Context, eventID, organizerID uint) ([]domain.Registration, error)
	UploadPaymentProof(ctx context.Context, registrationID, participantID uint, proofRef string) (domain.Registration, error)
	ApproveOrder(ctx context.Context, registrationID, organizerID uint) (domain.Registration, error)
	RejectOrder(ctx context.Context, registrationID, organizerID uint) (domain.Registration, error)
	CancelOrder(ctx context.Context, registrationID, participantID uint) (domain.Registration, error)
	RemainingQuota(ctx context.Context, eventID, participantID uint) ([]domain.ItemQuota, error)
	MarkAttendance(ctx context.Context, eventID, organizerID uint, ticketID string) (domain.Registration, error)
	ExportRegistrationsCSV(ctx context.Context, eventID, organizerID uint) ([]byte, error)
}

type RegistrationHandler struct {
	svc  RegistrationService
	uSvc UserService
}

func NewRegistrationHandler(svc RegistrationService, uSvc UserService) *RegistrationHandler {
	return &RegistrationHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleCreateOrder godoc
// @Summary      Register for an event or place a merchandise order
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                         true  "event ID"
// @Param        input    body      request.CreateOrderRequest  true  "order details"
// @Success      201      {object}  domain.Registration
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/register [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleCreateOrder(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, respErr := parseIDParam(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	created, err := h.svc.CreateOrder(ctx.Request.Context(), user, eventID, input.FormResponses, input.Selections())
	if err != nil {
		renderRegistrationErr(ctx, "v1.HandleCreateOrder", err)
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// HandleListMyRegistrations godoc
// @Summary      List the authenticated participant's registrations
// @Tags         registrations
// @Produce      json
// @Success      200  {array}   domain.Registration
// @Failure      401  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /registrations [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleListMyRegistrations(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	registrations, err := h.svc.ListMyRegistrations(ctx.Request.Context(), user.ID)
	if err != nil {
		err = fmt.Errorf("v1.HandleListMyRegistrations -> h.svc.ListMyRegistrations -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, registrations)
}

// HandleGetRegistration godoc
// @Summary      Get a registration by ID
// @Description  Accessible to the registration's owner and the event's organizer.
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      int  true  "registration ID"
// @Success      200  {object}  domain.Registration
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /registrations/{registrationID} [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleGetRegistration(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	registrationID, respErr := parseIDParam(ctx, "registrationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	registration, err := h.svc.GetRegistration(ctx.Request.Context(), registrationID, user)
	if err != nil {
		renderRegistrationErr(ctx, "v1.HandleGetRegistration", err)
		return
	}

	ctx.JSON(http.StatusOK, registration)
}

// HandleUploadProof godoc
// @Summary      Upload payment proof for a pending order
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        registrationID  path      int                         true  "registration ID"
// @Param        input           body      request.UploadProofRequest  true  "proof reference"
// @Success      200  {object}  domain.Registration
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /registrations/{registrationID}/payment-proof [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleUploadProof(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	registrationID, respErr := parseIDParam(ctx, "registrationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.UploadProofRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	updated, err := h.svc.UploadPaymentProof(ctx.Request.Context(), registrationID, user.ID, input.ProofRef)
	if err != nil {
		renderRegistrationErr(ctx, "v1.HandleUploadProof", err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// HandleApproveOrder godoc
// @Summary      Approve a pending order and issue its ticket
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      int  true  "registration ID"
// @Success      200  {object}  domain.Registration
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /registrations/{registrationID}/approve [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleApproveOrder(ctx *gin.Context) {
	h.handleReview(ctx, "v1.HandleApproveOrder", h.svc.ApproveOrder)
}

// HandleRejectOrder godoc
// @Summary      Reject a pending order
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      int  true  "registration ID"
// @Success      200  {object}  domain.Registration
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /registrations/{registrationID}/reject [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleRejectOrder(ctx *gin.Context) {
	h.handleReview(ctx, "v1.HandleRejectOrder", h.svc.RejectOrder)
}

func (h *RegistrationHandler) handleReview(ctx *gin.Context, op string, review func(ctx context.Context, registrationID, organizerID uint) (domain.Registration, error)) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	registrationID, respErr := parseIDParam(ctx, "registrationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	registration, err := review(ctx.Request.Context(), registrationID, user.ID)
	if err != nil {
		renderRegistrationErr(ctx, op, err)
		return
	}

	ctx.JSON(http.StatusOK, registration)
}

// HandleCancelOrder godoc
// @Summary      Cancel an own registration before the event starts
// @Tags         registrations
// @Produce      json
// @Param        registrationID  path      int  true  "registration ID"
// @Success      200  {object}  domain.Registration
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /registrations/{registrationID}/cancel [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleCancelOrder(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	registrationID, respErr := parseIDParam(ctx, "registrationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	cancelled, err := h.svc.CancelOrder(ctx.Request.Context(), registrationID, user.ID)
	if err != nil {
		renderRegistrationErr(ctx, "v1.HandleCancelOrder", err)
		return
	}

	ctx.JSON(http.StatusOK, cancelled)
}

// HandleListEventRegistrations godoc
// @Summary      List registrations of an event
// @Tags         registrations
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      200  {array}   domain.Registration
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /events/{eventID}/registrations [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleListEventRegistrations(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, respErr := parseIDParam(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	registrations, err := h.svc.ListEventRegistrations(ctx.Request.Context(), eventID, user.ID)
	if err != nil {
		renderRegistrationErr(ctx, "v1.HandleListEventRegistrations", err)
		return
	}

	ctx.JSON(http.StatusOK, registrations)
}

// HandleGetQuota godoc
// @Summary      Get remaining purchase quota per merchandise item
// @Tags         registrations
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      200  {array}   domain.ItemQuota
// @Failure      400  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /events/{eventID}/quota [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleGetQuota(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, respErr := parseIDParam(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	quotas, err := h.svc.RemainingQuota(ctx.Request.Context(), eventID, user.ID)
	if err != nil {
		renderRegistrationErr(ctx, "v1.HandleGetQuota", err)
		return
	}

	ctx.JSON(http.StatusOK, quotas)
}

// HandleMarkAttendance godoc
// @Summary      Mark a ticket as attended
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                            true  "event ID"
// @Param        input    body      request.MarkAttendanceRequest  true  "ticket"
// @Success      200  {object}  domain.Registration
// @Failure      400  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      409  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /events/{eventID}/attendance [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleMarkAttendance(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, respErr := parseIDParam(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.MarkAttendanceRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	registration, err := h.svc.MarkAttendance(ctx.Request.Context(), eventID, user.ID, input.TicketID)
	if err != nil {
		renderRegistrationErr(ctx, "v1.HandleMarkAttendance", err)
		return
	}

	ctx.JSON(http.StatusOK, registration)
}

// HandleExportRegistrations godoc
// @Summary      Export an event's registrations as CSV
// @Tags         registrations
// @Produce      text/csv
// @Param        eventID  path  int  true  "event ID"
// @Success      200  {string}  string  "CSV content"
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /events/{eventID}/registrations/export [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleExportRegistrations(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, respErr := parseIDParam(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	csvBytes, err := h.svc.ExportRegistrationsCSV(ctx.Request.Context(), eventID, user.ID)
	if err != nil {
		renderRegistrationErr(ctx, "v1.HandleExportRegistrations", err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=event-%d-registrations.csv", eventID))
	ctx.Data(http.StatusOK, "text/csv", csvBytes)
}

func renderRegistrationErr(ctx *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.RenderErr(ctx, response.ErrNotFound("event", "ID", ctx.Param("eventID")))
	case errors.Is(err, service.ErrRegistrationNotFound):
		response.RenderErr(ctx, response.ErrNotFound("registration", "ID", ctx.Param("registrationID")))
	case errors.Is(err, service.ErrNotEventOrganizer),
		errors.Is(err, service.ErrNotRegistrationOwner),
		errors.Is(err, service.ErrOrganizerCannotOrder),
		errors.Is(err, service.ErrNotEligible):
		response.RenderErr(ctx, response.ErrPermissionDenied(err))
	case errors.Is(err, service.ErrMissingFormField),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrNotMerchandiseEvent):
		response.RenderErr(ctx, response.ErrBadRequest(err))
	case errors.Is(err, service.ErrEventNotOpen),
		errors.Is(err, service.ErrDeadlinePassed),
		errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrUnpaidOrderExists),
		errors.Is(err, service.ErrRegistrationLimitReached),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrPurchaseLimitExceeded),
		errors.Is(err, service.ErrNotAwaitingApproval),
		errors.Is(err, service.ErrProofAlreadyUploaded),
		errors.Is(err, service.ErrProofRequired),
		errors.Is(err, service.ErrNotCancellable),
		errors.Is(err, service.ErrEventNotOngoing),
		errors.Is(err, service.ErrAttendanceMarked),
		errors.Is(err, service.ErrTicketNotConfirmed):
		response.RenderErr(ctx, response.ErrConflict(err))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("%v -> %w", op, err)))
	}
}
