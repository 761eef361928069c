package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

const eventColumns = `e.id, e.org_id, e.title, e.description, e.event_date, e.start_time, e.end_time,
	       e.location, e.capacity, e.fee, e.organizer_id, e.qr_code_url, e.created_at`

const eventSelect = `
	SELECT ` + eventColumns + `,
	       ARRAY(SELECT ea.user_id::text FROM event_attendees ea WHERE ea.event_id = e.id) AS attendee_ids
	FROM events e`

// EventRepository implements the repositories.EventRepository interface
type EventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB, logger *zap.Logger) repositories.EventRepository {
	return &EventRepository{db: db, logger: logger}
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, `
		INSERT INTO events (id, org_id, title, description, event_date, start_time, end_time,
		                    location, capacity, fee, organizer_id, qr_code_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		event.ID,
		event.OrgID,
		event.Title,
		event.Description,
		event.EventDate,
		event.StartTime,
		event.EndTime,
		event.Location,
		event.Capacity,
		event.Fee,
		event.OrganizerID,
		event.QRCodeURL,
		event.CreatedAt,
	)
	if err != nil {
		return mapError("failed to create event", err)
	}

	r.logger.Debug("event created", zap.String("id", event.ID.String()), zap.String("org_id", event.OrgID.String()))
	return nil
}

// GetByID retrieves an event with its attendee ids
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	executor := GetExecutor(ctx, r.db)
	event, err := scanEvent(executor.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, mapError("failed to get event", err)
	}
	return event, nil
}

// GetByIDForUpdate retrieves an event and locks its row until the surrounding transaction ends
func (r *EventRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	executor := GetExecutor(ctx, r.db)
	event, err := scanEvent(executor.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1 FOR UPDATE OF e`, id))
	if err != nil {
		return nil, mapError("failed to lock event", err)
	}
	return event, nil
}

// List retrieves events ordered by date
func (r *EventRepository) List(ctx context.Context, filter repositories.EventFilter) ([]*models.Event, error) {
	q := newSelect(eventSelect)
	if filter.OrgID != nil {
		q.where("e.org_id = ?", *filter.OrgID)
	}
	if filter.From != nil {
		q.where("e.event_date >= ?", *filter.From)
	}
	if filter.AttendeeUserID != nil {
		q.where("EXISTS (SELECT 1 FROM event_attendees ea WHERE ea.event_id = e.id AND ea.user_id = ?)", *filter.AttendeeUserID)
	}
	q.orderBy("e.event_date, e.start_time NULLS LAST")

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

// Update updates an event's details
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `
		UPDATE events
		SET title = $2, description = $3, event_date = $4, start_time = $5, end_time = $6,
		    location = $7, capacity = $8, fee = $9, organizer_id = $10, qr_code_url = $11
		WHERE id = $1`,
		event.ID,
		event.Title,
		event.Description,
		event.EventDate,
		event.StartTime,
		event.EndTime,
		event.Location,
		event.Capacity,
		event.Fee,
		event.OrganizerID,
		event.QRCodeURL,
	)
	if err != nil {
		return mapError("failed to update event", err)
	}
	return requireAffected("event not found", result)
}

// Delete deletes an event and its attendance rows
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return mapError("failed to delete event", err)
	}
	if err := requireAffected("event not found", result); err != nil {
		return err
	}

	r.logger.Debug("event deleted", zap.String("id", id.String()))
	return nil
}

// AddAttendee records attendance. Repeated RSVPs are idempotent.
func (r *EventRepository) AddAttendee(ctx context.Context, eventID, userID uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO event_attendees (event_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, eventID, userID)
	if err != nil {
		return mapError("failed to add attendee", err)
	}
	return nil
}

// RemoveAttendee drops attendance. Removing a non-attendee is not an error.
func (r *EventRepository) RemoveAttendee(ctx context.Context, eventID, userID uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return mapError("failed to remove attendee", err)
	}
	return nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	var attendeeIDs pq.StringArray
	err := row.Scan(
		&event.ID,
		&event.OrgID,
		&event.Title,
		&event.Description,
		&event.EventDate,
		&event.StartTime,
		&event.EndTime,
		&event.Location,
		&event.Capacity,
		&event.Fee,
		&event.OrganizerID,
		&event.QRCodeURL,
		&event.CreatedAt,
		&attendeeIDs,
	)
	if err != nil {
		return nil, err
	}
	if event.AttendeeIDs, err = parseUUIDs(attendeeIDs); err != nil {
		return nil, err
	}
	return event, nil
}
