package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/utils"
	"go.uber.org/zap"
)

// TokenValidator resolves a bearer token to the live user it was issued for
type TokenValidator interface {
	ValidateBearer(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware provides authentication and authorization middleware
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// RequireAuth rejects requests without a valid bearer token.
// On success the live user and the request metadata used for auditing are stored in the context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Debug("missing bearer token", zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Not authenticated")
			return
		}

		user, err := m.validator.ValidateBearer(ctx, token)
		if err != nil {
			if services.IsUnauthorizedError(err) {
				m.logger.Warn("token validation failed",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteUnauthorized(w, services.ErrorMessage(err))
				return
			}
			m.logger.Error("failed to resolve token user",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "An internal error occurred")
			return
		}

		ctx = WithUser(ctx, user)
		ctx = services.WithRequestMeta(ctx, services.RequestMeta{
			RequestID: requestID,
			IPAddress: ClientIP(r),
		})

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", user.ID.String()),
			zap.Strings("roles", user.RoleNames()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles allows the request when the user holds at least one of the listed roles
func (m *AuthMiddleware) RequireRoles(allowed ...string) func(http.Handler) http.Handler {
	return m.gate(func(user *models.User) error {
		return rbac.CheckRoles(user.RoleNames(), allowed)
	}, zap.Strings("allowed_roles", allowed))
}

// RequirePermission allows the request when one of the user's roles grants p
func (m *AuthMiddleware) RequirePermission(p rbac.Permission) func(http.Handler) http.Handler {
	return m.gate(func(user *models.User) error {
		return rbac.Check(user.RoleNames(), p)
	}, zap.String("permission", string(p)))
}

func (m *AuthMiddleware) gate(check func(*models.User) error, field zap.Field) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			user := GetUserFromContext(ctx)
			if user == nil {
				m.logger.Error("user not found in context", zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "Not authenticated")
				return
			}

			if err := check(user); err != nil {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("user_id", user.ID.String()),
					zap.Strings("user_roles", user.RoleNames()),
					field)
				_ = utils.WriteForbidden(w, "Not enough permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the remote host of r without its port.
// Proxy headers only count when chi's RealIP middleware ran first.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
