package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/utils"
	"go.uber.org/zap"
)

// OrganizationService is the part of services.OrganizationService the HTTP layer needs
type OrganizationService interface {
	List(ctx context.Context, actor *models.User, page repositories.Page) ([]*models.Organization, error)
	Create(ctx context.Context, actor *models.User, in services.OrganizationInput) (*models.Organization, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Organization, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, in services.OrganizationUpdate) (*models.Organization, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// CreateOrganizationRequest represents the request body for creating an organization
type CreateOrganizationRequest struct {
	Name              string  `json:"name" validate:"required,min=1,max=255"`
	Description       *string `json:"description,omitempty"`
	Subdomain         *string `json:"subdomain,omitempty" validate:"omitempty,hostname_rfc1123,max=63"`
	PrimaryColor      *string `json:"primary_color,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor    *string `json:"secondary_color,omitempty" validate:"omitempty,hexcolor"`
	AccentColor       *string `json:"accent_color,omitempty" validate:"omitempty,hexcolor"`
	LogoURL           *string `json:"logo_url,omitempty" validate:"omitempty,url"`
	PreferredLanguage string  `json:"preferred_language,omitempty" validate:"omitempty,len=2"`
}

// UpdateOrganizationRequest represents the request body for updating an organization
type UpdateOrganizationRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	Subdomain   *string `json:"subdomain,omitempty" validate:"omitempty,hostname_rfc1123,max=63"`
}

// OrganizationHandler handles organization HTTP requests
type OrganizationHandler struct {
	orgs   OrganizationService
	logger *zap.Logger
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(orgs OrganizationService, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, logger: logger}
}

// HandleList handles GET /orgs
func (h *OrganizationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, err := utils.QueryInt(r, "skip", 0)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	limit, err := utils.QueryInt(r, "limit", services.DefaultPageLimit)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	orgs, err := h.orgs.List(r.Context(), currentUser(r), services.NewPage(skip, limit))
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, orgs, h.logger)
}

// HandleCreate handles POST /orgs
func (h *OrganizationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	org, err := h.orgs.Create(r.Context(), currentUser(r), services.OrganizationInput{
		Name:              req.Name,
		Description:       req.Description,
		Subdomain:         req.Subdomain,
		PrimaryColor:      req.PrimaryColor,
		SecondaryColor:    req.SecondaryColor,
		AccentColor:       req.AccentColor,
		LogoURL:           req.LogoURL,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeCreated(w, org, h.logger)
}

// HandleGet handles GET /orgs/{id}
func (h *OrganizationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	org, err := h.orgs.Get(r.Context(), currentUser(r), id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, org, h.logger)
}

// HandleUpdate handles PUT /orgs/{id}
func (h *OrganizationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req UpdateOrganizationRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	org, err := h.orgs.Update(r.Context(), currentUser(r), id, services.OrganizationUpdate{
		Name:        req.Name,
		Description: req.Description,
		Subdomain:   req.Subdomain,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, org, h.logger)
}

// HandleDelete handles DELETE /orgs/{id}
func (h *OrganizationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	if err := h.orgs.Delete(r.Context(), currentUser(r), id); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
