package models

import (
	"time"

	"github.com/google/uuid"
)

// RSVPStatus is a member's answer to an event invitation
type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "going"
	RSVPMaybe    RSVPStatus = "maybe"
	RSVPNotGoing RSVPStatus = "not_going"
)

// Valid reports whether s is a known answer
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPGoing, RSVPMaybe, RSVPNotGoing:
		return true
	}
	return false
}

// Event is an organization gathering. StartTime and EndTime are HH:MM wall clock values.
type Event struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	OrgID       uuid.UUID   `json:"org_id" db:"org_id"`
	Title       string      `json:"title" db:"title"`
	Description *string     `json:"description,omitempty" db:"description"`
	EventDate   time.Time   `json:"event_date" db:"event_date"`
	StartTime   *string     `json:"start_time,omitempty" db:"start_time"`
	EndTime     *string     `json:"end_time,omitempty" db:"end_time"`
	Location    *string     `json:"location,omitempty" db:"location"`
	Capacity    *int        `json:"capacity,omitempty" db:"capacity"`
	Fee         *float64    `json:"fee,omitempty" db:"fee"`
	OrganizerID *uuid.UUID  `json:"organizer_id,omitempty" db:"organizer_id"`
	QRCodeURL   *string     `json:"qr_code_url,omitempty" db:"qr_code_url"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	AttendeeIDs []uuid.UUID `json:"attendees" db:"-"`
}

// TableName returns the table name for the Event model
func (Event) TableName() string {
	return "events"
}

// NewEvent creates a new Event instance
func NewEvent(orgID uuid.UUID, title string, date time.Time) *Event {
	return &Event{
		ID:        uuid.New(),
		OrgID:     orgID,
		Title:     title,
		EventDate: date,
		CreatedAt: time.Now(),
	}
}

// IsFull reports whether the attendee list has reached capacity. Events without capacity never fill.
func (e *Event) IsFull() bool {
	return e.Capacity != nil && len(e.AttendeeIDs) >= *e.Capacity
}

// HasAttendee reports whether userID is on the attendee list
func (e *Event) HasAttendee(userID uuid.UUID) bool {
	for _, id := range e.AttendeeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// QRPayload is the content encoded into the event check-in code
func (e *Event) QRPayload() string {
	return "event_id:" + e.ID.String()
}
