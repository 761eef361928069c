package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/utils"
	"go.uber.org/zap"
)

// BrandingService is the part of services.BrandingService the HTTP layer needs
type BrandingService interface {
	Get(ctx context.Context, actor *models.User, orgID uuid.UUID) (*services.Branding, error)
	Update(ctx context.Context, actor *models.User, orgID uuid.UUID, in services.BrandingUpdate) (*services.Branding, error)
}

// SettingsService is the part of services.SettingsService the HTTP layer needs
type SettingsService interface {
	Get(ctx context.Context, actor *models.User, orgID uuid.UUID) (*models.OrgSettings, error)
	Update(ctx context.Context, actor *models.User, orgID uuid.UUID, raw json.RawMessage) (*models.OrgSettings, error)
}

// I18nService is the part of services.I18nService the HTTP layer needs
type I18nService interface {
	SetUserLanguage(ctx context.Context, actor *models.User, code string) error
	SetOrgLanguage(ctx context.Context, actor *models.User, orgID uuid.UUID, code string) (*models.Organization, error)
}

// AuditLogService lists persisted audit entries
type AuditLogService interface {
	List(ctx context.Context, actor *models.User, page repositories.Page) ([]*models.AuditLog, error)
}

// BrandingRequest updates an organization's look. Omitted fields are left unchanged.
type BrandingRequest struct {
	LogoURL        *string `json:"logo_url,omitempty" validate:"omitempty,url"`
	PrimaryColor   *string `json:"primary_color,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor *string `json:"secondary_color,omitempty" validate:"omitempty,hexcolor"`
	AccentColor    *string `json:"accent_color,omitempty" validate:"omitempty,hexcolor"`
	Subdomain      *string `json:"subdomain,omitempty" validate:"omitempty,hostname_rfc1123,max=63"`
}

// LanguageRequest selects a UI language
type LanguageRequest struct {
	Language string `json:"language" validate:"required"`
}

// TenantHandler serves per-organization branding, settings, language and audit endpoints
type TenantHandler struct {
	branding BrandingService
	settings SettingsService
	i18n     I18nService
	audit    AuditLogService
	logger   *zap.Logger
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(branding BrandingService, settings SettingsService, i18n I18nService, audit AuditLogService, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{
		branding: branding,
		settings: settings,
		i18n:     i18n,
		audit:    audit,
		logger:   logger,
	}
}

// HandleGetBranding handles GET /branding/{org_id}
func (h *TenantHandler) HandleGetBranding(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	b, err := h.branding.Get(r.Context(), currentUser(r), orgID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, b, h.logger)
}

// HandleUpdateBranding handles PUT /branding/{org_id}
func (h *TenantHandler) HandleUpdateBranding(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req BrandingRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	b, err := h.branding.Update(r.Context(), currentUser(r), orgID, services.BrandingUpdate{
		LogoURL:        req.LogoURL,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		AccentColor:    req.AccentColor,
		Subdomain:      req.Subdomain,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, b, h.logger)
}

// HandleGetSettings handles GET /settings/{org_id}
func (h *TenantHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	s, err := h.settings.Get(r.Context(), currentUser(r), orgID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, s, h.logger)
}

// HandleUpdateSettings handles PUT /settings/{org_id}. The body is stored as given.
func (h *TenantHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var raw json.RawMessage
	if err := utils.DecodeJSON(r, &raw); err != nil {
		badRequest(w, err, h.logger)
		return
	}

	s, err := h.settings.Update(r.Context(), currentUser(r), orgID, raw)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, s, h.logger)
}

// HandleListLanguages handles GET /i18n/languages
func (h *TenantHandler) HandleListLanguages(w http.ResponseWriter, r *http.Request) {
	writeOK(w, services.SupportedLanguages(), h.logger)
}

// HandleSetUserLanguage handles PUT /i18n/user
func (h *TenantHandler) HandleSetUserLanguage(w http.ResponseWriter, r *http.Request) {
	var req LanguageRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	user := currentUser(r)
	if err := h.i18n.SetUserLanguage(r.Context(), user, req.Language); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, map[string]string{"language": req.Language}, h.logger)
}

// HandleSetOrgLanguage handles PUT /i18n/org/{org_id}
func (h *TenantHandler) HandleSetOrgLanguage(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req LanguageRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	org, err := h.i18n.SetOrgLanguage(r.Context(), currentUser(r), orgID, req.Language)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, org, h.logger)
}

// HandleListAuditLogs handles GET /audit/logs
func (h *TenantHandler) HandleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.QueryInt(r, "limit", services.DefaultPageLimit)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	offset, err := utils.QueryInt(r, "offset", 0)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	logs, err := h.audit.List(r.Context(), currentUser(r), services.NewPage(offset, limit))
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, logs, h.logger)
}
