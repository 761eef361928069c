package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OrgSettings holds free-form per-organization settings stored as JSONB
type OrgSettings struct {
	OrgID     uuid.UUID       `json:"org_id" db:"org_id"`
	Settings  json.RawMessage `json:"settings" db:"settings"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the OrgSettings model
func (OrgSettings) TableName() string {
	return "org_settings"
}

// EmptySettings is returned for organizations that never saved settings
func EmptySettings(orgID uuid.UUID) *OrgSettings {
	return &OrgSettings{OrgID: orgID, Settings: json.RawMessage(`{}`)}
}
