package models

import (
	"time"

	"github.com/google/uuid"
)

// Group is a family or household inside an organization
type Group struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	OrgID       uuid.UUID   `json:"org_id" db:"org_id"`
	Name        string      `json:"name" db:"name"`
	Description *string     `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	MemberIDs   []uuid.UUID `json:"members" db:"-"`
}

// TableName returns the table name for the Group model
func (Group) TableName() string {
	return "groups"
}

// NewGroup creates a new Group instance
func NewGroup(orgID uuid.UUID, name string) *Group {
	return &Group{
		ID:        uuid.New(),
		OrgID:     orgID,
		Name:      name,
		CreatedAt: time.Now(),
	}
}
