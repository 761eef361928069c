package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// userSelect loads a user with its live roles, group ids and child ids
const userSelect = `
	SELECT u.id, u.org_id, u.email, u.hashed_password, u.first_name, u.last_name, u.phone,
	       u.is_active, u.preferred_language, u.parent_id, u.created_at, u.updated_at,
	       ARRAY(SELECT r.id::text FROM user_roles ur JOIN roles r ON r.id = ur.role_id
	             WHERE ur.user_id = u.id ORDER BY r.name) AS role_ids,
	       ARRAY(SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id
	             WHERE ur.user_id = u.id ORDER BY r.name) AS role_names,
	       ARRAY(SELECT ug.group_id::text FROM user_groups ug WHERE ug.user_id = u.id) AS group_ids,
	       ARRAY(SELECT c.id::text FROM users c WHERE c.parent_id = u.id) AS child_ids
	FROM users u`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user. Roles are attached separately with AddRole.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, org_id, email, hashed_password, first_name, last_name, phone,
		                   is_active, preferred_language, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		user.ID,
		user.OrgID,
		user.Email,
		user.HashedPassword,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.IsActive,
		user.PreferredLanguage,
		user.ParentID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return mapError("failed to create user", err)
	}

	r.logger.Debug("user created", zap.String("id", user.ID.String()), zap.String("email", user.Email))
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, userSelect+` WHERE u.id = $1`, id))
	if err != nil {
		return nil, mapError("failed to get user", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, userSelect+` WHERE u.email = $1`, models.NormalizeEmail(email)))
	if err != nil {
		return nil, mapError("failed to get user", err)
	}
	return user, nil
}

// List retrieves users matching the filter ordered by name
func (r *UserRepository) List(ctx context.Context, filter repositories.UserFilter) ([]*models.User, error) {
	q := newSelect(userSelect)
	if filter.OrgID != nil {
		q.where("u.org_id = ?", *filter.OrgID)
	}
	if filter.RoleName != "" {
		q.where(`EXISTS (SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = u.id AND r.name = ?)`, filter.RoleName)
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		q.where("(u.first_name ILIKE ? OR u.last_name ILIKE ? OR u.email ILIKE ?)", like, like, like)
	}
	q.orderBy("u.last_name, u.first_name, u.id")
	q.paginate(filter.Page)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// CountByOrg counts users affiliated with an organization
func (r *UserRepository) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	var n int
	executor := GetExecutor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE org_id = $1`, orgID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// Update updates a user's profile, credentials and status
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET org_id = $2,
		    email = $3,
		    hashed_password = $4,
		    first_name = $5,
		    last_name = $6,
		    phone = $7,
		    is_active = $8,
		    preferred_language = $9,
		    parent_id = $10,
		    updated_at = $11
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		user.ID,
		user.OrgID,
		user.Email,
		user.HashedPassword,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.IsActive,
		user.PreferredLanguage,
		user.ParentID,
		user.UpdatedAt,
	)
	if err != nil {
		return mapError("failed to update user", err)
	}
	if err := requireAffected("user not found", result); err != nil {
		return err
	}

	r.logger.Debug("user updated", zap.String("id", user.ID.String()))
	return nil
}

// UpdateLanguage sets a user's preferred language
func (r *UserRepository) UpdateLanguage(ctx context.Context, id uuid.UUID, language string) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx,
		`UPDATE users SET preferred_language = $2, updated_at = now() WHERE id = $1`, id, language)
	if err != nil {
		return mapError("failed to update user language", err)
	}
	return requireAffected("user not found", result)
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError("failed to delete user", err)
	}
	if err := requireAffected("user not found", result); err != nil {
		return err
	}

	r.logger.Debug("user deleted", zap.String("id", id.String()))
	return nil
}

// AddRole grants a role. Granting a role the user already holds is a no-op.
func (r *UserRepository) AddRole(ctx context.Context, userID, roleID uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID)
	if err != nil {
		return mapError("failed to add role", err)
	}
	return nil
}

// RemoveRole revokes a role
func (r *UserRepository) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return mapError("failed to remove role", err)
	}
	return requireAffected("role assignment not found", result)
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var roleIDs, roleNames, groupIDs, childIDs pq.StringArray
	err := row.Scan(
		&user.ID,
		&user.OrgID,
		&user.Email,
		&user.HashedPassword,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.IsActive,
		&user.PreferredLanguage,
		&user.ParentID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&roleIDs,
		&roleNames,
		&groupIDs,
		&childIDs,
	)
	if err != nil {
		return nil, err
	}

	if len(roleIDs) != len(roleNames) {
		return nil, fmt.Errorf("role columns out of step for user %s", user.ID)
	}
	user.Roles = make([]models.Role, len(roleIDs))
	for i := range roleIDs {
		id, err := uuid.Parse(roleIDs[i])
		if err != nil {
			return nil, fmt.Errorf("invalid role id: %w", err)
		}
		user.Roles[i] = models.Role{ID: id, Name: roleNames[i]}
	}
	if user.GroupIDs, err = parseUUIDs(groupIDs); err != nil {
		return nil, err
	}
	if user.ChildIDs, err = parseUUIDs(childIDs); err != nil {
		return nil, err
	}
	return user, nil
}

// parseUUIDs converts a text[] column into ids
func parseUUIDs(values pq.StringArray) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
