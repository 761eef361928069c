package services

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// QRCodeSize is the edge length in pixels of generated check-in codes
const QRCodeSize = 256

// EventInput creates an event
type EventInput struct {
	OrgID       *uuid.UUID
	Title       string
	Description *string
	EventDate   time.Time
	StartTime   *string
	EndTime     *string
	Location    *string
	Capacity    *int
	Fee         *float64
}

// EventUpdate changes the fields that are set
type EventUpdate struct {
	Title       *string
	Description *string
	EventDate   *time.Time
	StartTime   *string
	EndTime     *string
	Location    *string
	Capacity    *int
	Fee         *float64
}

// EventQuery filters an event listing
type EventQuery struct {
	OrgID          *uuid.UUID
	UpcomingOnly   bool
	AttendeeUserID *uuid.UUID
}

// RSVPResult is the outcome of an RSVP
type RSVPResult struct {
	EventID   uuid.UUID         `json:"event_id"`
	UserID    uuid.UUID         `json:"user_id"`
	Status    models.RSVPStatus `json:"status"`
	Attendees int               `json:"attendees"`
}

// EventQRCode is a check-in code rendered as a base64 PNG
type EventQRCode struct {
	EventID      uuid.UUID `json:"event_id"`
	QRCodeBase64 string    `json:"qr_code_base64"`
}

// EventService manages events and attendance
type EventService struct {
	events repositories.EventRepository
	users  repositories.UserRepository
	txMgr  repositories.TransactionManager
	audit  AuditLogger
	logger *zap.Logger
	now    func() time.Time
}

// NewEventService creates a new EventService
func NewEventService(repos *repositories.Repositories, txMgr repositories.TransactionManager, audit AuditLogger, logger *zap.Logger) *EventService {
	return &EventService{
		events: repos.Events,
		users:  repos.Users,
		txMgr:  txMgr,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// List returns events visible to actor
func (s *EventService) List(ctx context.Context, actor *models.User, q EventQuery) ([]*models.Event, error) {
	orgID, err := ScopeFor(actor).OrgFilter(q.OrgID)
	if err != nil {
		return nil, err
	}
	filter := repositories.EventFilter{OrgID: orgID, AttendeeUserID: q.AttendeeUserID}
	if q.UpcomingOnly {
		today := truncateDay(s.now())
		filter.From = &today
	}
	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return events, nil
}

// ListForUser returns the events a user attends. Members can only ask about themselves.
func (s *EventService) ListForUser(ctx context.Context, actor *models.User, userID uuid.UUID) ([]*models.Event, error) {
	if err := checkOwnRecords(actor, &userID); err != nil {
		return nil, err
	}
	if _, err := loadMember(ctx, s.users, actor, userID); err != nil {
		return nil, err
	}
	return s.List(ctx, actor, EventQuery{AttendeeUserID: &userID})
}

// Get returns an event with its attendees
func (s *EventService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrEventNotFound, nil)
	}
	if err := ScopeFor(actor).Check(event.OrgID); err != nil {
		return nil, err
	}
	return event, nil
}

// Create schedules an event organized by actor
func (s *EventService) Create(ctx context.Context, actor *models.User, in EventInput) (*models.Event, error) {
	orgID, err := ScopeFor(actor).ResolveOrg(in.OrgID)
	if err != nil {
		return nil, err
	}
	if err := checkCapacity(in.Capacity); err != nil {
		return nil, err
	}

	event := models.NewEvent(orgID, in.Title, in.EventDate)
	event.Description = in.Description
	event.StartTime = in.StartTime
	event.EndTime = in.EndTime
	event.Location = in.Location
	event.Capacity = in.Capacity
	event.Fee = in.Fee
	organizer := actor.ID
	event.OrganizerID = &organizer

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fromRepo(err, nil, nil)
	}

	s.logger.Info("event created",
		zap.String("event_id", event.ID.String()),
		zap.String("org_id", orgID.String()))
	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionEventCreated, "event").
		WithOrg(orgID).WithResource(event.ID))
	return event, nil
}

// Update changes an event
func (s *EventService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in EventUpdate) (*models.Event, error) {
	event, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkCapacity(in.Capacity); err != nil {
		return nil, err
	}

	if in.Title != nil {
		event.Title = *in.Title
	}
	if in.Description != nil {
		event.Description = in.Description
	}
	if in.EventDate != nil {
		event.EventDate = *in.EventDate
	}
	if in.StartTime != nil {
		event.StartTime = emptyToNil(in.StartTime)
	}
	if in.EndTime != nil {
		event.EndTime = emptyToNil(in.EndTime)
	}
	if in.Location != nil {
		event.Location = in.Location
	}
	if in.Capacity != nil {
		event.Capacity = in.Capacity
	}
	if in.Fee != nil {
		event.Fee = in.Fee
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fromRepo(err, ErrEventNotFound, nil)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionEventUpdated, "event").
		WithOrg(event.OrgID).WithResource(event.ID))
	return event, nil
}

// Delete cancels an event
func (s *EventService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	event, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return fromRepo(err, ErrEventNotFound, nil)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionEventDeleted, "event").
		WithOrg(event.OrgID).WithResource(id))
	return nil
}

// RSVP records actor's answer. Going adds the actor unless the event is full;
// any other answer removes them. The event row stays locked while capacity is checked.
func (s *EventService) RSVP(ctx context.Context, actor *models.User, id uuid.UUID, status models.RSVPStatus) (*RSVPResult, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus.WithDetail("status", status)
	}

	result, err := WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*RSVPResult, error) {
		event, err := s.events.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, fromRepo(err, ErrEventNotFound, nil)
		}
		if err := ScopeFor(actor).Check(event.OrgID); err != nil {
			return nil, err
		}

		attendees := len(event.AttendeeIDs)
		switch {
		case status == models.RSVPGoing && event.HasAttendee(actor.ID):
			// already attending
		case status == models.RSVPGoing:
			if event.IsFull() {
				return nil, ErrEventFull
			}
			if err := s.events.AddAttendee(ctx, event.ID, actor.ID); err != nil {
				return nil, fromRepo(err, ErrEventNotFound, nil)
			}
			attendees++
		case event.HasAttendee(actor.ID):
			if err := s.events.RemoveAttendee(ctx, event.ID, actor.ID); err != nil {
				return nil, fromRepo(err, ErrEventNotFound, nil)
			}
			attendees--
		}
		return &RSVPResult{EventID: event.ID, UserID: actor.ID, Status: status, Attendees: attendees}, nil
	})
	if err != nil {
		return nil, err
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionRSVP, "event").
		WithResource(id).WithDetails(map[string]string{"status": string(status)}))
	return result, nil
}

// QRCodePNG renders the event's check-in code as a PNG image
func (s *EventService) QRCodePNG(ctx context.Context, actor *models.User, id uuid.UUID) ([]byte, error) {
	event, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(event.QRPayload(), qrcode.Medium, QRCodeSize)
	if err != nil {
		return nil, WrapInternal("failed to render QR code", err)
	}
	return png, nil
}

// QRCode renders the event's check-in code for embedding in JSON
func (s *EventService) QRCode(ctx context.Context, actor *models.User, id uuid.UUID) (*EventQRCode, error) {
	png, err := s.QRCodePNG(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &EventQRCode{EventID: id, QRCodeBase64: base64.StdEncoding.EncodeToString(png)}, nil
}

func checkCapacity(capacity *int) error {
	if capacity != nil && *capacity < 0 {
		return ErrInvalidInput.WithDetail("capacity", "must not be negative")
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
