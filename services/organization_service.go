package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

const (
	// DefaultPageLimit is used when a list request does not set a limit
	DefaultPageLimit = 100
	// MaxPageLimit caps list requests
	MaxPageLimit = 500
)

// NewPage clamps skip and limit into a repository page
func NewPage(skip, limit int) repositories.Page {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return repositories.Page{Limit: limit, Offset: skip}
}

// OrganizationInput creates an organization
type OrganizationInput struct {
	Name              string
	Description       *string
	Subdomain         *string
	PrimaryColor      *string
	SecondaryColor    *string
	AccentColor       *string
	LogoURL           *string
	PreferredLanguage string
}

// OrganizationUpdate changes the fields that are set
type OrganizationUpdate struct {
	Name        *string
	Description *string
	Subdomain   *string
}

// OrganizationService manages tenants
type OrganizationService struct {
	orgs   repositories.OrganizationRepository
	audit  AuditLogger
	logger *zap.Logger
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(orgs repositories.OrganizationRepository, audit AuditLogger, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{orgs: orgs, audit: audit, logger: logger}
}

// List returns every organization for unrestricted actors and only their own otherwise
func (s *OrganizationService) List(ctx context.Context, actor *models.User, page repositories.Page) ([]*models.Organization, error) {
	orgID, err := ScopeFor(actor).OrgFilter(nil)
	if err != nil {
		return nil, err
	}
	orgs, err := s.orgs.List(ctx, orgID, page)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return orgs, nil
}

// Create creates an organization
func (s *OrganizationService) Create(ctx context.Context, actor *models.User, in OrganizationInput) (*models.Organization, error) {
	org := models.NewOrganization(in.Name)
	org.Description = in.Description
	org.Subdomain = emptyToNil(in.Subdomain)
	org.PrimaryColor = in.PrimaryColor
	org.SecondaryColor = in.SecondaryColor
	org.AccentColor = in.AccentColor
	org.LogoURL = in.LogoURL
	if in.PreferredLanguage != "" {
		if !IsSupportedLanguage(in.PreferredLanguage) {
			return nil, ErrUnsupportedLanguage.WithDetail("language", in.PreferredLanguage)
		}
		org.PreferredLanguage = in.PreferredLanguage
	}

	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, fromRepo(err, nil, ErrDuplicateOrg)
	}

	s.logger.Info("organization created",
		zap.String("org_id", org.ID.String()),
		zap.String("name", org.Name))
	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionOrgCreated, "org").
		WithOrg(org.ID).WithResource(org.ID).WithDetails(map[string]string{"name": org.Name}))

	return org, nil
}

// Get returns an organization visible to actor
func (s *OrganizationService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Organization, error) {
	if err := ScopeFor(actor).Check(id); err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrOrganizationNotFound, nil)
	}
	return org, nil
}

// Update changes an organization's name, description or subdomain
func (s *OrganizationService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in OrganizationUpdate) (*models.Organization, error) {
	org, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		org.Name = *in.Name
	}
	if in.Description != nil {
		org.Description = in.Description
	}
	if in.Subdomain != nil {
		org.Subdomain = emptyToNil(in.Subdomain)
	}
	org.UpdatedAt = time.Now()

	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, fromRepo(err, ErrOrganizationNotFound, ErrDuplicateOrg)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionOrgUpdated, "org").
		WithOrg(org.ID).WithResource(org.ID))
	return org, nil
}

// Delete removes an organization together with its users, groups, events, ledger and settings
func (s *OrganizationService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if err := ScopeFor(actor).Check(id); err != nil {
		return err
	}
	if err := s.orgs.Delete(ctx, id); err != nil {
		return fromRepo(err, ErrOrganizationNotFound, nil)
	}

	s.logger.Info("organization deleted", zap.String("org_id", id.String()))
	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionOrgDeleted, "org").
		WithOrg(id).WithResource(id))
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
