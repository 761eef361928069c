package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionLogin              AuditAction = "login"
	AuditActionSignup             AuditAction = "signup"
	AuditActionOrgCreated         AuditAction = "org_created"
	AuditActionOrgUpdated         AuditAction = "org_updated"
	AuditActionOrgDeleted         AuditAction = "org_deleted"
	AuditActionUserCreated        AuditAction = "user_created"
	AuditActionUserUpdated        AuditAction = "user_updated"
	AuditActionUserDeleted        AuditAction = "user_deleted"
	AuditActionUsersImported      AuditAction = "users_imported"
	AuditActionRoleGranted        AuditAction = "role_granted"
	AuditActionRoleRevoked        AuditAction = "role_revoked"
	AuditActionGroupCreated       AuditAction = "group_created"
	AuditActionGroupUpdated       AuditAction = "group_updated"
	AuditActionGroupDeleted       AuditAction = "group_deleted"
	AuditActionSubscriptionSaved  AuditAction = "subscription_saved"
	AuditActionPaymentRecorded    AuditAction = "payment_recorded"
	AuditActionEventCreated       AuditAction = "event_created"
	AuditActionEventUpdated       AuditAction = "event_updated"
	AuditActionEventDeleted       AuditAction = "event_deleted"
	AuditActionRSVP               AuditAction = "rsvp"
	AuditActionTransactionSaved   AuditAction = "transaction_saved"
	AuditActionTransactionDeleted AuditAction = "transaction_deleted"
	AuditActionBrandingUpdated    AuditAction = "branding_updated"
	AuditActionSettingsUpdated    AuditAction = "settings_updated"
	AuditActionLanguageChanged    AuditAction = "language_changed"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrgID        *uuid.UUID      `json:"org_id,omitempty" db:"org_id"`
	ActorID      *uuid.UUID      `json:"actor_id,omitempty" db:"actor_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // org, user, event, etc.
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	RequestID    string          `json:"request_id,omitempty" db:"request_id"`
	IPAddress    string          `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance attributed to actor
func NewAuditLog(actor *User, action AuditAction, resourceType string) *AuditLog {
	a := &AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		CreatedAt:    time.Now(),
	}
	if actor != nil {
		id := actor.ID
		a.ActorID = &id
		a.OrgID = actor.OrgID
	}
	return a
}

// WithOrg overrides the organization the entry is filed under
func (a *AuditLog) WithOrg(orgID uuid.UUID) *AuditLog {
	a.OrgID = &orgID
	return a
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	return a
}
