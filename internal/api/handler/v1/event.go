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

type EventService interface {
	CreateEvent(ctx context.Context, event domain.Event, organizerID uint) (domain.Event, error)
	GetEvent(ctx context.Context, id uint) (domain.Event, error)
	ListVisibleEvents(ctx context.Context) ([]domain.Event, error)
	ListOrganizerEvents(ctx context.Context, organizerID uint) ([]domain.Event, error)
	UpdateEvent(ctx context.Context, eventID, organizerID uint, update service.EventUpdate) (domain.Event, error)
	PublishEvent(ctx context.Context, eventID, organizerID uint) (domain.Event, error)
	CloseEvent(ctx context.Context, eventID, organizerID uint) (domain.Event, error)
	DeleteEvent(ctx context.Context, eventID, organizerID uint) error
}

type EventHandler struct {
	svc  EventService
	uSvc UserService
}

func NewEventHandler(svc EventService, uSvc UserService) *EventHandler {
	return &EventHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleListEvents godoc
// @Summary      List events open to participants
// @Tags         events
// @Produce      json
// @Success      200  {array}   domain.Event
// @Failure      500  {object}  response.Err
// @Router       /events [get]
func (h *EventHandler) HandleListEvents(ctx *gin.Context) {
	events, err := h.svc.ListVisibleEvents(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("v1.HandleListEvents -> h.svc.ListVisibleEvents -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, events)
}

// HandleGetEvent godoc
// @Summary      Get an event by ID
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      200  {object}  domain.Event
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /events/{eventID} [get]
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	eventID, respErr := parseIDParam(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	event, err := h.svc.GetEvent(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
			return
		}

		err = fmt.Errorf("v1.HandleGetEvent -> h.svc.GetEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleListMyEvents godoc
// @Summary      List events owned by the authenticated organizer
// @Tags         events
// @Produce      json
// @Success      200  {array}   domain.Event
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /organizer/events [get]
// @Security BearerAuth
func (h *EventHandler) HandleListMyEvents(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	if !user.IsOrganizer() {
		response.RenderErr(ctx, response.ErrPermissionDenied(fmt.Errorf("user %v is not an organizer", user.ID)))
		return
	}

	events, err := h.svc.ListOrganizerEvents(ctx.Request.Context(), user.ID)
	if err != nil {
		err = fmt.Errorf("v1.HandleListMyEvents -> h.svc.ListOrganizerEvents -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, events)
}

// HandleCreateEvent godoc
// @Summary      Create a draft event
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        input  body      request.CreateEventRequest  true  "event details"
// @Success      201    {object}  domain.Event
// @Failure      400    {object}  response.Err
// @Failure      401    {object}  response.Err
// @Failure      403    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /events [post]
// @Security BearerAuth
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}
	if !user.IsOrganizer() {
		response.RenderErr(ctx, response.ErrPermissionDenied(fmt.Errorf("user %v is not an organizer", user.ID)))
		return
	}

	var input request.CreateEventRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event := domain.Event{
		Name:                 input.Name,
		Description:          input.Description,
		Type:                 domain.EventType(input.Type),
		Eligibility:          domain.Eligibility(input.Eligibility),
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		RegistrationDeadline: input.RegistrationDeadline,
		RegistrationLimit:    input.RegistrationLimit,
		RegistrationFee:      input.RegistrationFee,
		Tags:                 input.Tags,
		CustomForm:           request.FormFieldsToDomain(input.CustomForm),
		MerchandiseItems:     request.MerchandiseItemsToDomain(input.MerchandiseItems),
	}

	created, err := h.svc.CreateEvent(ctx.Request.Context(), event, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEventDates) {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}

		err = fmt.Errorf("v1.HandleCreateEvent -> h.svc.CreateEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// HandleUpdateEvent godoc
// @Summary      Update an event
// @Description  Drafts accept every field; published events only a narrow set.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                         true  "event ID"
// @Param        input    body      request.UpdateEventRequest  true  "fields to change"
// @Success      200      {object}  domain.Event
// @Failure      400      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID} [patch]
// @Security BearerAuth
func (h *EventHandler) HandleUpdateEvent(ctx *gin.Context) {
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

	var input request.UpdateEventRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}
	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	update := service.EventUpdate{
		Name:                 input.Name,
		Description:          input.Description,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		RegistrationDeadline: input.RegistrationDeadline,
		RegistrationLimit:    input.RegistrationLimit,
		RegistrationFee:      input.RegistrationFee,
		Tags:                 input.Tags,
	}
	if input.Eligibility != nil {
		eligibility := domain.Eligibility(*input.Eligibility)
		update.Eligibility = &eligibility
	}
	if input.CustomForm != nil {
		fields := request.FormFieldsToDomain(*input.CustomForm)
		update.CustomForm = &fields
	}
	if input.MerchandiseItems != nil {
		items := request.MerchandiseItemsToDomain(*input.MerchandiseItems)
		update.MerchandiseItems = &items
	}

	updated, err := h.svc.UpdateEvent(ctx.Request.Context(), eventID, user.ID, update)
	if err != nil {
		renderEventErr(ctx, "v1.HandleUpdateEvent", eventID, err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// HandlePublishEvent godoc
// @Summary      Publish a draft event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      200      {object}  domain.Event
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/publish [post]
// @Security BearerAuth
func (h *EventHandler) HandlePublishEvent(ctx *gin.Context) {
	h.handleTransition(ctx, "v1.HandlePublishEvent", h.svc.PublishEvent)
}

// HandleCloseEvent godoc
// @Summary      Close registrations for a published event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      200      {object}  domain.Event
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/close [post]
// @Security BearerAuth
func (h *EventHandler) HandleCloseEvent(ctx *gin.Context) {
	h.handleTransition(ctx, "v1.HandleCloseEvent", h.svc.CloseEvent)
}

func (h *EventHandler) handleTransition(ctx *gin.Context, op string, transition func(ctx context.Context, eventID, organizerID uint) (domain.Event, error)) {
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

	event, err := transition(ctx.Request.Context(), eventID, user.ID)
	if err != nil {
		renderEventErr(ctx, op, eventID, err)
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleDeleteEvent godoc
// @Summary      Delete a draft event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "event ID"
// @Success      204      {string}  string  ""
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID} [delete]
// @Security BearerAuth
func (h *EventHandler) HandleDeleteEvent(ctx *gin.Context) {
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

	if err := h.svc.DeleteEvent(ctx.Request.Context(), eventID, user.ID); err != nil {
		renderEventErr(ctx, "v1.HandleDeleteEvent", eventID, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func renderEventErr(ctx *gin.Context, op string, eventID uint, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
	case errors.Is(err, service.ErrNotEventOrganizer):
		response.RenderErr(ctx, response.ErrPermissionDenied(err))
	case errors.Is(err, service.ErrInvalidEventDates):
		response.RenderErr(ctx, response.ErrBadRequest(err))
	case errors.Is(err, service.ErrEventNotDraft),
		errors.Is(err, service.ErrEventNotPublished),
		errors.Is(err, service.ErrEventNotPublishable),
		errors.Is(err, service.ErrEventNotEditable),
		errors.Is(err, service.ErrFieldNotEditable):
		response.RenderErr(ctx, response.ErrConflict(err))
	default:
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("%v -> %w", op, err)))
	}
}
