package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/utils"
	"go.uber.org/zap"
)

// AuthService is the part of services.AuthService the HTTP layer needs
type AuthService interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

// SignupRequest is the public registration payload
type SignupRequest struct {
	Email             string     `json:"email" validate:"required,email"`
	Password          string     `json:"password" validate:"required,min=8"`
	FirstName         string     `json:"first_name" validate:"required,max=100"`
	LastName          string     `json:"last_name" validate:"required,max=100"`
	Phone             *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	OrgID             *uuid.UUID `json:"org_id,omitempty"`
	ParentID          *uuid.UUID `json:"parent_id,omitempty"`
	PreferredLanguage string     `json:"preferred_language,omitempty" validate:"omitempty,len=2"`
}

// loginForm mirrors the OAuth2 password grant fields
type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// TokenResponse is the OAuth2 style login response
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// OrgContext summarizes who the caller is and which tenant they act in
type OrgContext struct {
	UserID uuid.UUID  `json:"user_id"`
	OrgID  *uuid.UUID `json:"org_id"`
	Roles  []string   `json:"roles"`
}

// AuthHandler handles signup, login and identity endpoints
type AuthHandler struct {
	auth   AuthService
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

// HandleSignup handles POST /auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	user, err := h.auth.Signup(r.Context(), services.SignupInput{
		Email:             req.Email,
		Password:          req.Password,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		OrgID:             req.OrgID,
		ParentID:          req.ParentID,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	h.logger.Info("user signed up", zap.String("user_id", user.ID.String()))
	writeCreated(w, user, h.logger)
}

// HandleLogin handles POST /auth/login with a form encoded username and password
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, err, h.logger)
		return
	}
	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	if err := utils.ValidateStruct(&form); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.auth.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: result.Token.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   result.Token.ExpiresAt,
	}); err != nil {
		h.logger.Error("failed to write token response", zap.Error(err))
	}
}

// HandleMe handles GET /auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	writeOK(w, currentUser(r), h.logger)
}

// HandleOrgContext handles GET /auth/org-context
func (h *AuthHandler) HandleOrgContext(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	writeOK(w, OrgContext{
		UserID: user.ID,
		OrgID:  user.OrgID,
		Roles:  user.RoleNames(),
	}, h.logger)
}

// HandleRoleGate answers the role demo endpoints. The route's RequireRoles does the gating.
func (h *AuthHandler) HandleRoleGate(area string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		writeOK(w, map[string]interface{}{
			"message": "Welcome to the " + area + " area, " + user.FullName(),
			"roles":   user.RoleNames(),
		}, h.logger)
	}
}
