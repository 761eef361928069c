package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/utils"
	"go.uber.org/zap"
)

// GroupService is the part of services.GroupService the HTTP layer needs
type GroupService interface {
	List(ctx context.Context, actor *models.User, orgID *uuid.UUID) ([]*models.Group, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Group, error)
	Create(ctx context.Context, actor *models.User, in services.GroupInput) (*models.Group, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, in services.GroupUpdate) (*models.Group, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
	AddMembers(ctx context.Context, actor *models.User, id uuid.UUID, userIDs []uuid.UUID) (*models.Group, error)
	RemoveMember(ctx context.Context, actor *models.User, id, userID uuid.UUID) (*models.Group, error)
}

// CreateGroupRequest represents the request body for creating a group
type CreateGroupRequest struct {
	OrgID       *uuid.UUID  `json:"org_id,omitempty"`
	Name        string      `json:"name" validate:"required,max=255"`
	Description *string     `json:"description,omitempty"`
	Members     []uuid.UUID `json:"members,omitempty"`
}

// UpdateGroupRequest represents the request body for updating a group
type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
}

// GroupMembersRequest lists users to add to a group
type GroupMembersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" validate:"required,min=1"`
}

// GroupHandler handles group HTTP requests
type GroupHandler struct {
	groups GroupService
	logger *zap.Logger
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groups GroupService, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

// HandleList handles GET /groups
func (h *GroupHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.QueryUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	groups, err := h.groups.List(r.Context(), currentUser(r), orgID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, groups, h.logger)
}

// HandleCreate handles POST /groups
func (h *GroupHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	group, err := h.groups.Create(r.Context(), currentUser(r), services.GroupInput{
		OrgID:       req.OrgID,
		Name:        req.Name,
		Description: req.Description,
		MemberIDs:   req.Members,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeCreated(w, group, h.logger)
}

// HandleGet handles GET /groups/{id}
func (h *GroupHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	group, err := h.groups.Get(r.Context(), currentUser(r), id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, group, h.logger)
}

// HandleUpdate handles PUT /groups/{id}
func (h *GroupHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req UpdateGroupRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	group, err := h.groups.Update(r.Context(), currentUser(r), id, services.GroupUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, group, h.logger)
}

// HandleDelete handles DELETE /groups/{id}
func (h *GroupHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	if err := h.groups.Delete(r.Context(), currentUser(r), id); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleAddMembers handles POST /groups/{id}/members
func (h *GroupHandler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req GroupMembersRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	group, err := h.groups.AddMembers(r.Context(), currentUser(r), id, req.UserIDs)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, group, h.logger)
}

// HandleRemoveMember handles DELETE /groups/{id}/members/{user_id}
func (h *GroupHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	userID, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	group, err := h.groups.RemoveMember(r.Context(), currentUser(r), id, userID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, group, h.logger)
}
