package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// Branding is the look of an organization's portal
type Branding struct {
	OrgID          uuid.UUID `json:"org_id"`
	OrgName        string    `json:"org_name"`
	LogoURL        *string   `json:"logo_url"`
	PrimaryColor   string    `json:"primary_color"`
	SecondaryColor *string   `json:"secondary_color"`
	AccentColor    *string   `json:"accent_color"`
	Subdomain      *string   `json:"subdomain"`
}

// BrandingUpdate changes the fields that are set
type BrandingUpdate struct {
	LogoURL        *string
	PrimaryColor   *string
	SecondaryColor *string
	AccentColor    *string
	Subdomain      *string
}

// BrandingService reads and writes organization branding
type BrandingService struct {
	orgs   repositories.OrganizationRepository
	audit  AuditLogger
	logger *zap.Logger
}

// NewBrandingService creates a new BrandingService
func NewBrandingService(orgs repositories.OrganizationRepository, audit AuditLogger, logger *zap.Logger) *BrandingService {
	return &BrandingService{orgs: orgs, audit: audit, logger: logger}
}

// Get returns the branding of orgID
func (s *BrandingService) Get(ctx context.Context, actor *models.User, orgID uuid.UUID) (*Branding, error) {
	org, err := s.load(ctx, actor, orgID)
	if err != nil {
		return nil, err
	}
	return brandingOf(org), nil
}

// Update changes the branding of orgID
func (s *BrandingService) Update(ctx context.Context, actor *models.User, orgID uuid.UUID, in BrandingUpdate) (*Branding, error) {
	org, err := s.load(ctx, actor, orgID)
	if err != nil {
		return nil, err
	}

	if in.LogoURL != nil {
		org.LogoURL = emptyToNil(in.LogoURL)
	}
	if in.PrimaryColor != nil {
		org.PrimaryColor = emptyToNil(in.PrimaryColor)
	}
	if in.SecondaryColor != nil {
		org.SecondaryColor = emptyToNil(in.SecondaryColor)
	}
	if in.AccentColor != nil {
		org.AccentColor = emptyToNil(in.AccentColor)
	}
	if in.Subdomain != nil {
		org.Subdomain = emptyToNil(in.Subdomain)
	}
	org.UpdatedAt = time.Now()

	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, fromRepo(err, ErrOrganizationNotFound, ErrDuplicateOrg)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionBrandingUpdated, "org").
		WithOrg(org.ID).WithResource(org.ID))
	return brandingOf(org), nil
}

func (s *BrandingService) load(ctx context.Context, actor *models.User, orgID uuid.UUID) (*models.Organization, error) {
	if err := ScopeFor(actor).Check(orgID); err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, fromRepo(err, ErrOrganizationNotFound, nil)
	}
	return org, nil
}

func brandingOf(org *models.Organization) *Branding {
	return &Branding{
		OrgID:          org.ID,
		OrgName:        org.Name,
		LogoURL:        org.LogoURL,
		PrimaryColor:   org.BrandPrimaryColor(),
		SecondaryColor: org.SecondaryColor,
		AccentColor:    org.AccentColor,
		Subdomain:      org.Subdomain,
	}
}
