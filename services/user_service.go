package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/auth"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// UserInput creates a user. Roles defaults to Member.
type UserInput struct {
	Email             string
	Password          string
	FirstName         string
	LastName          string
	Phone             *string
	OrgID             *uuid.UUID
	ParentID          *uuid.UUID
	IsActive          *bool
	PreferredLanguage string
	Roles             []string
}

// UserUpdate changes the fields that are set
type UserUpdate struct {
	Email             *string
	Password          *string
	FirstName         *string
	LastName          *string
	Phone             *string
	OrgID             *uuid.UUID
	ParentID          *uuid.UUID
	IsActive          *bool
	PreferredLanguage *string
}

// UserQuery filters a user listing
type UserQuery struct {
	OrgID *uuid.UUID
	Role  string
	Q     string
	Skip  int
	Limit int
}

// ImportError describes one rejected item of a batch import
type ImportError struct {
	Index   int                    `json:"index"`
	Email   string                 `json:"email"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ImportResult summarizes a batch import
type ImportResult struct {
	Inserted int           `json:"inserted"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// UserService manages member accounts and their roles
type UserService struct {
	users  repositories.UserRepository
	roles  repositories.RoleRepository
	orgs   repositories.OrganizationRepository
	txMgr  repositories.TransactionManager
	hasher *auth.Hasher
	audit  AuditLogger
	logger *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	hasher *auth.Hasher,
	audit AuditLogger,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:  repos.Users,
		roles:  repos.Roles,
		orgs:   repos.Organizations,
		txMgr:  txMgr,
		hasher: hasher,
		audit:  audit,
		logger: logger,
	}
}

// List returns users visible to actor matching q
func (s *UserService) List(ctx context.Context, actor *models.User, q UserQuery) ([]*models.User, error) {
	orgID, err := ScopeFor(actor).OrgFilter(q.OrgID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, repositories.UserFilter{
		OrgID:    orgID,
		RoleName: q.Role,
		Query:    q.Q,
		Page:     NewPage(q.Skip, q.Limit),
	})
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return users, nil
}

// Get returns a user visible to actor. Actors can always read themselves.
func (s *UserService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrUserNotFound, nil)
	}
	if actor.ID == user.ID {
		return user, nil
	}
	if err := ScopeFor(actor).CheckOptional(user.OrgID); err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a user with the requested roles in a single transaction
func (s *UserService) Create(ctx context.Context, actor *models.User, in UserInput) (*models.User, error) {
	user, err := s.create(ctx, actor, in)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("actor_id", actor.ID.String()))
	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionUserCreated, "user").
		WithResource(user.ID).WithDetails(map[string]interface{}{"email": user.Email, "roles": user.RoleNames()}))
	return user, nil
}

// Import creates each user in its own transaction. Items repeating an email already
// inserted by this batch fail without touching the database.
func (s *UserService) Import(ctx context.Context, actor *models.User, items []UserInput) *ImportResult {
	result := &ImportResult{}
	seen := make(map[string]struct{}, len(items))

	for i, in := range items {
		email := models.NormalizeEmail(in.Email)
		if _, dup := seen[email]; dup {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{Index: i, Email: email, Message: ErrDuplicateEmail.Message})
			continue
		}
		if _, err := s.create(ctx, actor, in); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{
				Index:   i,
				Email:   email,
				Message: ErrorMessage(err),
				Details: GetErrorDetails(err),
			})
			continue
		}
		seen[email] = struct{}{}
		result.Inserted++
	}

	s.logger.Info("users imported",
		zap.Int("inserted", result.Inserted),
		zap.Int("failed", result.Failed))
	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionUsersImported, "user").
		WithDetails(map[string]int{"inserted": result.Inserted, "failed": result.Failed}))
	return result
}

func (s *UserService) create(ctx context.Context, actor *models.User, in UserInput) (*models.User, error) {
	scope := ScopeFor(actor)

	orgID := in.OrgID
	if !scope.Unrestricted() {
		resolved, err := scope.ResolveOrg(in.OrgID)
		if err != nil {
			return nil, err
		}
		orgID = &resolved
	}

	roleNames := in.Roles
	if len(roleNames) == 0 {
		roleNames = []string{rbac.RoleMember}
	}
	for _, name := range roleNames {
		if err := checkGrant(actor, name); err != nil {
			return nil, err
		}
	}

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

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(in.Email, hash, in.FirstName, in.LastName, orgID)
	user.Phone = in.Phone
	user.PreferredLanguage = lang
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}

	err = WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		if orgID != nil {
			if _, err := s.orgs.GetByID(ctx, *orgID); err != nil {
				return fromRepo(err, ErrOrganizationNotFound, nil)
			}
		}
		if in.ParentID != nil {
			if err := s.checkParent(ctx, scope, user.ID, *in.ParentID); err != nil {
				return err
			}
			user.ParentID = in.ParentID
		}

		if err := s.users.Create(ctx, user); err != nil {
			return fromRepo(err, nil, ErrDuplicateEmail)
		}
		for _, name := range roleNames {
			role, err := s.roles.GetByName(ctx, name)
			if err != nil {
				return fromRepo(err, ErrUnknownRole, nil)
			}
			if err := s.users.AddRole(ctx, user.ID, role.ID); err != nil {
				return fromRepo(err, ErrUserNotFound, nil)
			}
			user.Roles = append(user.Roles, *role)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update changes a user's profile, credentials or status
func (s *UserService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in UserUpdate) (*models.User, error) {
	scope := ScopeFor(actor)
	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkManage(actor, user); err != nil {
		return nil, err
	}

	if in.Email != nil {
		user.Email = models.NormalizeEmail(*in.Email)
	}
	if in.Password != nil {
		if len(*in.Password) < auth.MinPasswordLength {
			return nil, ErrInvalidInput.WithDetail("password", "must be at least 8 characters")
		}
		hash, err := s.hasher.HashPassword(*in.Password)
		if err != nil {
			return nil, WrapInternal("failed to hash password", err)
		}
		user.HashedPassword = hash
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Phone != nil {
		user.Phone = emptyToNil(in.Phone)
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.PreferredLanguage != nil {
		if !IsSupportedLanguage(*in.PreferredLanguage) {
			return nil, ErrUnsupportedLanguage.WithDetail("language", *in.PreferredLanguage)
		}
		user.PreferredLanguage = *in.PreferredLanguage
	}
	if in.OrgID != nil {
		if err := scope.Check(*in.OrgID); err != nil {
			return nil, err
		}
		if _, err := s.orgs.GetByID(ctx, *in.OrgID); err != nil {
			return nil, fromRepo(err, ErrOrganizationNotFound, nil)
		}
		user.OrgID = in.OrgID
	}
	if in.ParentID != nil {
		if err := s.checkParent(ctx, scope, user.ID, *in.ParentID); err != nil {
			return nil, err
		}
		user.ParentID = in.ParentID
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fromRepo(err, ErrUserNotFound, ErrDuplicateEmail)
	}

	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionUserUpdated, "user").WithResource(user.ID))
	return user, nil
}

// Delete removes a user. Their subscriptions go with them; payments and ledger lines keep a null reference.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := checkManage(actor, user); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fromRepo(err, ErrUserNotFound, nil)
	}

	s.logger.Info("user deleted", zap.String("user_id", id.String()))
	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionUserDeleted, "user").WithResource(id))
	return nil
}

// AddRole grants roleName to a user
func (s *UserService) AddRole(ctx context.Context, actor *models.User, userID uuid.UUID, roleName string) (*models.User, error) {
	if err := checkGrant(actor, roleName); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.GetByName(ctx, roleName)
	if err != nil {
		return nil, fromRepo(err, ErrUnknownRole, nil)
	}
	if err := s.users.AddRole(ctx, user.ID, role.ID); err != nil {
		return nil, fromRepo(err, ErrUserNotFound, nil)
	}
	if !user.HasRole(role.Name) {
		user.Roles = append(user.Roles, *role)
	}

	s.logger.Info("role granted",
		zap.String("user_id", user.ID.String()),
		zap.String("role", role.Name),
		zap.String("actor_id", actor.ID.String()))
	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionRoleGranted, "user").
		WithResource(user.ID).WithDetails(map[string]string{"role": role.Name}))
	return user, nil
}

// RemoveRole revokes roleName from a user
func (s *UserService) RemoveRole(ctx context.Context, actor *models.User, userID uuid.UUID, roleName string) (*models.User, error) {
	if err := checkGrant(actor, roleName); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.GetByName(ctx, roleName)
	if err != nil {
		return nil, fromRepo(err, ErrUnknownRole, nil)
	}
	if err := s.users.RemoveRole(ctx, user.ID, role.ID); err != nil {
		return nil, fromRepo(err, ErrRoleNotAssigned, nil)
	}

	kept := user.Roles[:0]
	for _, r := range user.Roles {
		if r.Name != role.Name {
			kept = append(kept, r)
		}
	}
	user.Roles = kept

	s.logger.Info("role revoked",
		zap.String("user_id", user.ID.String()),
		zap.String("role", role.Name),
		zap.String("actor_id", actor.ID.String()))
	record(ctx, s.audit, models.NewAuditLog(actor, models.AuditActionRoleRevoked, "user").
		WithResource(user.ID).WithDetails(map[string]string{"role": role.Name}))
	return user, nil
}

// ListRoles returns the role catalogue
func (s *UserService) ListRoles(ctx context.Context) ([]*models.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return roles, nil
}

func (s *UserService) checkParent(ctx context.Context, scope Scope, userID, parentID uuid.UUID) error {
	if parentID == userID {
		return ErrInvalidParent
	}
	parent, err := s.users.GetByID(ctx, parentID)
	if err != nil {
		return fromRepo(err, ErrParentNotFound, nil)
	}
	return scope.CheckOptional(parent.OrgID)
}

// checkGrant decides whether actor may hand out roleName.
// Any role above Member needs roles:assign, and Super Admin can only come from a Super Admin.
// checkManage requires actor to be allowed to grant every elevated role target holds,
// so credentials and status of higher admins stay out of reach. Actors may manage themselves.
func checkManage(actor, target *models.User) error {
	if actor.ID == target.ID {
		return nil
	}
	for _, role := range target.Roles {
		if role.Name == rbac.RoleMember {
			continue
		}
		if err := checkGrant(actor, role.Name); err != nil {
			return err
		}
	}
	return nil
}

func checkGrant(actor *models.User, roleName string) error {
	if !rbac.IsKnownRole(roleName) {
		return ErrUnknownRole.WithDetail("role", roleName)
	}
	if roleName == rbac.RoleSuperAdmin && !actor.HasRole(rbac.RoleSuperAdmin) {
		return ErrSuperAdminGrantRequired
	}
	if roleName != rbac.RoleMember && !rbac.Can(actor.RoleNames(), rbac.RolesAssign) {
		return ErrForbidden
	}
	return nil
}
