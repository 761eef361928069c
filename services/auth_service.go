package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/auth"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// SignupInput carries a self-registration
type SignupInput struct {
	Email             string
	Password          string
	FirstName         string
	LastName          string
	Phone             *string
	OrgID             *uuid.UUID
	ParentID          *uuid.UUID
	PreferredLanguage string
}

// LoginResult is a freshly issued bearer token plus the user it was issued to
type LoginResult struct {
	Token *auth.IssuedToken
	User  *models.User
}

// AuthService owns the credential store, token issuance and bearer validation
type AuthService struct {
	repos  *repositories.Repositories
	txMgr  repositories.TransactionManager
	tokens *auth.TokenService
	hasher *auth.Hasher
	audit  AuditLogger
	logger *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	tokens *auth.TokenService,
	hasher *auth.Hasher,
	audit AuditLogger,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		repos:  repos,
		txMgr:  txMgr,
		tokens: tokens,
		hasher: hasher,
		audit:  audit,
		logger: logger,
	}
}

// Signup registers a user with the Member role
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if len(in.Password) < auth.MinPasswordLength {
		return nil, ErrInvalidInput.WithDetail("password", "must be at least 8 characters")
	}
	lang := in.PreferredLanguage
	if lang == "" {
		lang = models.DefaultLanguage
	}
	if !IsSupportedLanguage(lang) {
		return nil, ErrUnsupportedLanguage.WithDetail("language", lang)
	}

	if in.OrgID != nil {
		if _, err := s.repos.Organizations.GetByID(ctx, *in.OrgID); err != nil {
			return nil, fromRepo(err, ErrOrganizationNotFound, nil)
		}
	}
	if in.ParentID != nil {
		if _, err := s.repos.Users.GetByID(ctx, *in.ParentID); err != nil {
			return nil, fromRepo(err, ErrParentNotFound, nil)
		}
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(in.Email, hash, in.FirstName, in.LastName, in.OrgID)
	user.Phone = in.Phone
	user.ParentID = in.ParentID
	user.PreferredLanguage = lang

	err = WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		if err := s.repos.Users.Create(ctx, user); err != nil {
			return fromRepo(err, nil, ErrDuplicateEmail)
		}
		role, err := s.repos.Roles.GetByName(ctx, rbac.RoleMember)
		if err != nil {
			return fromRepo(err, ErrRoleNotFound, nil)
		}
		if err := s.repos.Users.AddRole(ctx, user.ID, role.ID); err != nil {
			return fromRepo(err, ErrUserNotFound, nil)
		}
		user.Roles = []models.Role{*role}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))
	record(ctx, s.audit, models.NewAuditLog(user, models.AuditActionSignup, "user").WithResource(user.ID))

	return user, nil
}

// Authenticate verifies an email and password pair.
// Unknown, inactive and mismatching credentials all fail the same way.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Burn the same bcrypt time as a real comparison
			_ = s.hasher.VerifyPassword(dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, WrapInternal("failed to load user", err)
	}
	if err := s.hasher.VerifyPassword(user.HashedPassword, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer token carrying a snapshot of the user's roles
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Info("login rejected", zap.String("email", models.NormalizeEmail(email)))
		return nil, err
	}

	token, err := s.IssueToken(user, 0)
	if err != nil {
		return nil, err
	}

	record(ctx, s.audit, models.NewAuditLog(user, models.AuditActionLogin, "user").WithResource(user.ID))
	return &LoginResult{Token: token, User: user}, nil
}

// IssueToken signs a token for user. A zero ttl uses the configured expiry.
func (s *AuthService) IssueToken(user *models.User, ttl time.Duration) (*auth.IssuedToken, error) {
	var (
		token *auth.IssuedToken
		err   error
	)
	if ttl > 0 {
		token, err = s.tokens.IssueWithExpiry(user.ID, user.RoleNames(), user.OrgID, ttl)
	} else {
		token, err = s.tokens.Issue(user.ID, user.RoleNames(), user.OrgID)
	}
	if err != nil {
		return nil, WrapInternal("failed to issue token", err)
	}
	return token, nil
}

// ValidateBearer verifies a bearer token and resolves it to the live user.
// The returned user carries its current roles; the token's role snapshot is not consulted.
func (s *AuthService) ValidateBearer(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, ErrTokenExpired.Wrap(err)
		}
		return nil, ErrInvalidToken.Wrap(err)
	}

	user, err := s.repos.Users.GetByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidToken.Wrap(err)
		}
		return nil, WrapInternal("failed to load user", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// dummyHash is a bcrypt hash of a random string, compared against when the email is unknown
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z0Ub5MzAhx9x3Y6kzx7Wv8.W"
