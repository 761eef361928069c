package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPrimaryColor is shown when an organization has no branding configured
const DefaultPrimaryColor = "#1976d2"

// Organization represents a tenant in the multi-tenant system
type Organization struct {
	ID                uuid.UUID `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Description       *string   `json:"description,omitempty" db:"description"`
	Subdomain         *string   `json:"subdomain,omitempty" db:"subdomain"` // branded portal host
	PrimaryColor      *string   `json:"primary_color,omitempty" db:"primary_color"`
	SecondaryColor    *string   `json:"secondary_color,omitempty" db:"secondary_color"`
	AccentColor       *string   `json:"accent_color,omitempty" db:"accent_color"`
	LogoURL           *string   `json:"logo_url,omitempty" db:"logo_url"`
	PreferredLanguage string    `json:"preferred_language" db:"preferred_language"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Organization model
func (Organization) TableName() string {
	return "orgs"
}

// NewOrganization creates a new Organization instance
func NewOrganization(name string) *Organization {
	now := time.Now()
	return &Organization{
		ID:                uuid.New(),
		Name:              name,
		PreferredLanguage: DefaultLanguage,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// BrandPrimaryColor returns the configured primary color or the default one
func (o *Organization) BrandPrimaryColor() string {
	if o.PrimaryColor == nil || *o.PrimaryColor == "" {
		return DefaultPrimaryColor
	}
	return *o.PrimaryColor
}
