package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/utils"
	"go.uber.org/zap"
)

// EventService is the part of services.EventService the HTTP layer needs
type EventService interface {
	List(ctx context.Context, actor *models.User, q services.EventQuery) ([]*models.Event, error)
	ListForUser(ctx context.Context, actor *models.User, userID uuid.UUID) ([]*models.Event, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Event, error)
	Create(ctx context.Context, actor *models.User, in services.EventInput) (*models.Event, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, in services.EventUpdate) (*models.Event, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
	RSVP(ctx context.Context, actor *models.User, id uuid.UUID, status models.RSVPStatus) (*services.RSVPResult, error)
	QRCodePNG(ctx context.Context, actor *models.User, id uuid.UUID) ([]byte, error)
	QRCode(ctx context.Context, actor *models.User, id uuid.UUID) (*services.EventQRCode, error)
}

// CreateEventRequest represents the request body for scheduling an event
type CreateEventRequest struct {
	OrgID       *uuid.UUID `json:"org_id,omitempty"`
	Title       string     `json:"title" validate:"required,max=255"`
	Description *string    `json:"description,omitempty"`
	EventDate   string     `json:"event_date" validate:"required,datetime=2006-01-02"`
	StartTime   *string    `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime     *string    `json:"end_time,omitempty" validate:"omitempty,datetime=15:04"`
	Location    *string    `json:"location,omitempty" validate:"omitempty,max=255"`
	Capacity    *int       `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	Fee         *float64   `json:"fee,omitempty" validate:"omitempty,gte=0"`
}

// UpdateEventRequest represents the request body for changing an event
type UpdateEventRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description,omitempty"`
	EventDate   *string  `json:"event_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime   *string  `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime     *string  `json:"end_time,omitempty" validate:"omitempty,datetime=15:04"`
	Location    *string  `json:"location,omitempty" validate:"omitempty,max=255"`
	Capacity    *int     `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	Fee         *float64 `json:"fee,omitempty" validate:"omitempty,gte=0"`
}

// RSVPRequest carries a member's answer to an invitation
type RSVPRequest struct {
	Status string `json:"status" validate:"required,oneof=going maybe not_going"`
}

// EventHandler handles event and RSVP HTTP requests
type EventHandler struct {
	events EventService
	logger *zap.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(events EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// HandleList handles GET /events
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.QueryUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	attendee, err := utils.QueryUUID(r, "attendee_user_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	upcoming, err := utils.QueryBool(r, "upcoming_only")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	events, err := h.events.List(r.Context(), currentUser(r), services.EventQuery{
		OrgID:          orgID,
		UpcomingOnly:   upcoming,
		AttendeeUserID: attendee,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, events, h.logger)
}

// HandleListForUser handles GET /events/user/{user_id}
func (h *EventHandler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	events, err := h.events.ListForUser(r.Context(), currentUser(r), userID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, events, h.logger)
}

// HandleCreate handles POST /events
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	date, err := utils.ParseDate("event_date", req.EventDate)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	event, err := h.events.Create(r.Context(), currentUser(r), services.EventInput{
		OrgID:       req.OrgID,
		Title:       req.Title,
		Description: req.Description,
		EventDate:   date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Fee:         req.Fee,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeCreated(w, event, h.logger)
}

// HandleGet handles GET /events/{id}
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	event, err := h.events.Get(r.Context(), currentUser(r), id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, event, h.logger)
}

// HandleUpdate handles PUT /events/{id}
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req UpdateEventRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	date, err := utils.ParseOptionalDate("event_date", req.EventDate)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	event, err := h.events.Update(r.Context(), currentUser(r), id, services.EventUpdate{
		Title:       req.Title,
		Description: req.Description,
		EventDate:   date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Fee:         req.Fee,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, event, h.logger)
}

// HandleDelete handles DELETE /events/{id}
func (h *EventHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	if err := h.events.Delete(r.Context(), currentUser(r), id); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleRSVP handles POST /events/{id}/rsvp
func (h *EventHandler) HandleRSVP(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req RSVPRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	result, err := h.events.RSVP(r.Context(), currentUser(r), id, models.RSVPStatus(req.Status))
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, result, h.logger)
}

// HandleQRCode handles GET /events/{id}/qrcode
func (h *EventHandler) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	code, err := h.events.QRCode(r.Context(), currentUser(r), id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, code, h.logger)
}

// HandleQRCodeDownload handles GET /events/{id}/qrcode/download
func (h *EventHandler) HandleQRCodeDownload(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	png, err := h.events.QRCodePNG(r.Context(), currentUser(r), id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	if err := utils.WriteAttachment(w, "image/png", "event_"+id.String()+"_qrcode.png", png); err != nil {
		h.logger.Warn("failed to write QR code", zap.Error(err))
	}
}
