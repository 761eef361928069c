package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"github.com/upb/membership-backend/services/settings"
	"go.uber.org/zap"
)

// SettingsService reads and replaces per-organization settings documents
type SettingsService struct {
	orgs     repositories.OrganizationRepository
	settings repositories.SettingsRepository
	cache    *settings.Cache
	audit    AuditLogger
	logger   *zap.Logger
}

// NewSettingsService creates a new SettingsService. cache may be nil.
func NewSettingsService(orgs repositories.OrganizationRepository, repo repositories.SettingsRepository, cache *settings.Cache, audit AuditLogger, logger *zap.Logger) *SettingsService {
	return &SettingsService{orgs: orgs, settings: repo, cache: cache, audit: audit, logger: logger}
}

// Get returns the settings of orgID. Organizations that never saved any get an empty document.
func (s *SettingsService) Get(ctx context.Context, actor *models.User, orgID uuid.UUID) (*models.OrgSettings, error) {
	if err := ScopeFor(actor).Check(orgID); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if cached := s.cache.Get(orgID); cached != nil {
			return cached, nil
		}
	}

	doc, err := s.settings.Get(ctx, orgID)
	if errors.Is(err, repositories.ErrNotFound) {
		if _, err := s.orgs.GetByID(ctx, orgID); err != nil {
			return nil, fromRepo(err, ErrOrganizationNotFound, nil)
		}
		doc, err = models.EmptySettings(orgID), nil
	}
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}

	if s.cache != nil {
		s.cache.Set(doc)
	}
	return doc, nil
}

// Update replaces the settings of orgID with a JSON object
func (s *SettingsService) Update(ctx context.Context, actor *models.User, orgID uuid.UUID, raw json.RawMessage) (*models.OrgSettings, error) {
	if err := ScopeFor(actor).Check(orgID); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, NewValidationError("settings must be a JSON object")
	}
	if _, err := s.orgs.GetByID(ctx, orgID); err != nil {
		return nil, fromRepo(err, ErrOrganizationNotFound, nil)
	}

	doc := &models.OrgSettings{
		OrgID:     orgID,
		Settings:  json.RawMessage(trimmed),
		UpdatedAt: time.Now(),
	}
	if err := s.settings.Upsert(ctx, doc); err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	// a read racing the upsert may have cached the previous document
	if s.cache != nil {
		s.cache.Set(doc)
	}

	s.logger.Debug("settings updated", zap.String("org_id", orgID.String()))
	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionSettingsUpdated, "org_settings").
		WithOrg(orgID).WithResource(orgID))
	return doc, nil
}
