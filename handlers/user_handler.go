package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/utils"
	"go.uber.org/zap"
)

// UserService is the part of services.UserService the HTTP layer needs
type UserService interface {
	List(ctx context.Context, actor *models.User, q services.UserQuery) ([]*models.User, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, actor *models.User, in services.UserInput) (*models.User, error)
	Import(ctx context.Context, actor *models.User, items []services.UserInput) *services.ImportResult
	Update(ctx context.Context, actor *models.User, id uuid.UUID, in services.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
	AddRole(ctx context.Context, actor *models.User, userID uuid.UUID, roleName string) (*models.User, error)
	RemoveRole(ctx context.Context, actor *models.User, userID uuid.UUID, roleName string) (*models.User, error)
	ListRoles(ctx context.Context) ([]*models.Role, error)
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Email             string     `json:"email" validate:"required,email"`
	Password          string     `json:"password" validate:"required,min=8"`
	FirstName         string     `json:"first_name" validate:"required,max=100"`
	LastName          string     `json:"last_name" validate:"required,max=100"`
	Phone             *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	OrgID             *uuid.UUID `json:"org_id,omitempty"`
	ParentID          *uuid.UUID `json:"parent_id,omitempty"`
	IsActive          *bool      `json:"is_active,omitempty"`
	PreferredLanguage string     `json:"preferred_language,omitempty" validate:"omitempty,len=2"`
	Roles             []string   `json:"roles,omitempty" validate:"omitempty,dive,role"`
}

func (req CreateUserRequest) toInput() services.UserInput {
	return services.UserInput{
		Email:             req.Email,
		Password:          req.Password,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		OrgID:             req.OrgID,
		ParentID:          req.ParentID,
		IsActive:          req.IsActive,
		PreferredLanguage: req.PreferredLanguage,
		Roles:             req.Roles,
	}
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Email             *string    `json:"email,omitempty" validate:"omitempty,email"`
	Password          *string    `json:"password,omitempty" validate:"omitempty,min=8"`
	FirstName         *string    `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName          *string    `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone             *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	OrgID             *uuid.UUID `json:"org_id,omitempty"`
	ParentID          *uuid.UUID `json:"parent_id,omitempty"`
	IsActive          *bool      `json:"is_active,omitempty"`
	PreferredLanguage *string    `json:"preferred_language,omitempty" validate:"omitempty,len=2"`
}

// RoleRequest names a role to grant
type RoleRequest struct {
	RoleName string `json:"role_name" validate:"required,role"`
}

// UserHandler handles user and role assignment HTTP requests
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleList handles GET /users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.QueryUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
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

	users, err := h.users.List(r.Context(), currentUser(r), services.UserQuery{
		OrgID: orgID,
		Role:  r.URL.Query().Get("role"),
		Q:     r.URL.Query().Get("q"),
		Skip:  skip,
		Limit: limit,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, users, h.logger)
}

// HandleCreate handles POST /users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	user, err := h.users.Create(r.Context(), currentUser(r), req.toInput())
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeCreated(w, user, h.logger)
}

// HandleImport handles POST /users/import. Items that fail validation are
// reported alongside the ones the service rejects; the rest are created.
func (h *UserHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var reqs []CreateUserRequest
	if err := utils.DecodeJSON(r, &reqs); err != nil {
		badRequest(w, err, h.logger)
		return
	}

	var (
		invalid []services.ImportError
		valid   []services.UserInput
		index   []int
	)
	for i, req := range reqs {
		if err := utils.ValidateStruct(&req); err != nil {
			invalid = append(invalid, services.ImportError{
				Index:   i,
				Email:   models.NormalizeEmail(req.Email),
				Message: validationSummary(err),
			})
			continue
		}
		valid = append(valid, req.toInput())
		index = append(index, i)
	}

	result := h.users.Import(r.Context(), currentUser(r), valid)
	for i := range result.Errors {
		result.Errors[i].Index = index[result.Errors[i].Index]
	}
	result.Failed += len(invalid)
	result.Errors = append(result.Errors, invalid...)
	sort.Slice(result.Errors, func(i, j int) bool { return result.Errors[i].Index < result.Errors[j].Index })

	writeOK(w, result, h.logger)
}

// HandleGet handles GET /users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	user, err := h.users.Get(r.Context(), currentUser(r), id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, user, h.logger)
}

// HandleUpdate handles PUT /users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req UpdateUserRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	user, err := h.users.Update(r.Context(), currentUser(r), id, services.UserUpdate{
		Email:             req.Email,
		Password:          req.Password,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		OrgID:             req.OrgID,
		ParentID:          req.ParentID,
		IsActive:          req.IsActive,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, user, h.logger)
}

// HandleDelete handles DELETE /users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	if err := h.users.Delete(r.Context(), currentUser(r), id); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleAddRole handles POST /users/{id}/roles
func (h *UserHandler) HandleAddRole(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req RoleRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	user, err := h.users.AddRole(r.Context(), currentUser(r), id, req.RoleName)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, user, h.logger)
}

// HandleRemoveRole handles DELETE /users/{id}/roles/{role_name}
func (h *UserHandler) HandleRemoveRole(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	user, err := h.users.RemoveRole(r.Context(), currentUser(r), id, chi.URLParam(r, "role_name"))
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, user, h.logger)
}

// HandleListRoles handles GET /roles
func (h *UserHandler) HandleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.users.ListRoles(r.Context())
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, roles, h.logger)
}

// validationSummary flattens field errors into one deterministic line
func validationSummary(err error) string {
	fields := utils.GetValidationFields(err)
	if len(fields) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(fields))
	for _, m := range fields {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
