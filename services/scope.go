package services

import (
	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
)

// Scope restricts tenant-owned reads and writes to the organizations an actor may see.
// It is derived from the live user once per request.
type Scope struct {
	unrestricted bool
	orgID        uuid.UUID // uuid.Nil for unaffiliated actors, which match nothing
}

// ScopeFor derives the tenant scope of actor
func ScopeFor(actor *models.User) Scope {
	if actor == nil {
		return Scope{}
	}
	if rbac.Can(actor.RoleNames(), rbac.TenantsAll) {
		return Scope{unrestricted: true}
	}
	if actor.OrgID == nil {
		return Scope{}
	}
	return Scope{orgID: *actor.OrgID}
}

// Unrestricted reports whether the scope spans every organization
func (s Scope) Unrestricted() bool {
	return s.unrestricted
}

// OrgID returns the pinned organization, or nil when unrestricted or unaffiliated
func (s Scope) OrgID() *uuid.UUID {
	if s.unrestricted || s.orgID == uuid.Nil {
		return nil
	}
	id := s.orgID
	return &id
}

// Check fails with ErrOrgMismatch unless rows owned by orgID are visible
func (s Scope) Check(orgID uuid.UUID) error {
	if s.unrestricted {
		return nil
	}
	if s.orgID == uuid.Nil || s.orgID != orgID {
		return ErrOrgMismatch
	}
	return nil
}

// CheckOptional is Check for rows whose organization may be unknown.
// Rows without an organization are only visible to unrestricted scopes.
func (s Scope) CheckOptional(orgID *uuid.UUID) error {
	if s.unrestricted {
		return nil
	}
	if orgID == nil {
		return ErrOrgMismatch
	}
	return s.Check(*orgID)
}

// OrgFilter resolves the organization filter for a list query.
// Unrestricted scopes pass requested through. Pinned scopes always filter by their org
// and reject requests naming another one.
func (s Scope) OrgFilter(requested *uuid.UUID) (*uuid.UUID, error) {
	if s.unrestricted {
		return requested, nil
	}
	if requested != nil && *requested != s.orgID {
		return nil, ErrOrgMismatch
	}
	id := s.orgID
	return &id, nil
}

// ResolveOrg picks the organization a new row is filed under.
// Pinned scopes default to their own org; unrestricted scopes must name one.
func (s Scope) ResolveOrg(requested *uuid.UUID) (uuid.UUID, error) {
	if requested != nil {
		if err := s.Check(*requested); err != nil {
			return uuid.Nil, err
		}
		return *requested, nil
	}
	if s.unrestricted || s.orgID == uuid.Nil {
		return uuid.Nil, ErrOrgRequired
	}
	return s.orgID, nil
}
