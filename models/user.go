package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultLanguage is assigned to users and organizations on creation
const DefaultLanguage = "en"

// Role is a named permission label. Names come from a fixed set seeded at migration time.
type Role struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
}

// TableName returns the table name for the Role model
func (Role) TableName() string {
	return "roles"
}

// User represents a member account. Roles, GroupIDs and ChildIDs are loaded from join tables.
type User struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	OrgID             *uuid.UUID `json:"org_id,omitempty" db:"org_id"`
	Email             string     `json:"email" db:"email"`
	HashedPassword    string     `json:"-" db:"hashed_password"`
	FirstName         string     `json:"first_name" db:"first_name"`
	LastName          string     `json:"last_name" db:"last_name"`
	Phone             *string    `json:"phone,omitempty" db:"phone"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	PreferredLanguage string     `json:"preferred_language" db:"preferred_language"`
	ParentID          *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`

	Roles    []Role      `json:"roles" db:"-"`
	GroupIDs []uuid.UUID `json:"groups" db:"-"`
	ChildIDs []uuid.UUID `json:"children" db:"-"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new active User instance
func NewUser(email, hashedPassword, firstName, lastName string, orgID *uuid.UUID) *User {
	now := time.Now()
	return &User{
		ID:                uuid.New(),
		OrgID:             orgID,
		Email:             NormalizeEmail(email),
		HashedPassword:    hashedPassword,
		FirstName:         firstName,
		LastName:          lastName,
		IsActive:          true,
		PreferredLanguage: DefaultLanguage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// RoleNames returns the names of the roles currently loaded on the user
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// HasRole reports whether the user currently holds the named role
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// BelongsTo reports whether the user is affiliated with the given org
func (u *User) BelongsTo(orgID uuid.UUID) bool {
	return u.OrgID != nil && *u.OrgID == orgID
}

// NormalizeEmail lowercases and trims an email so uniqueness checks are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
