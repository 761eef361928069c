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

const groupSelect = `
	SELECT g.id, g.org_id, g.name, g.description, g.created_at,
	       COALESCE(array_agg(ug.user_id::text) FILTER (WHERE ug.user_id IS NOT NULL), '{}')::text[] AS member_ids
	FROM groups g
	LEFT JOIN user_groups ug ON ug.group_id = g.id`

// GroupRepository implements the repositories.GroupRepository interface
type GroupRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *DB, logger *zap.Logger) repositories.GroupRepository {
	return &GroupRepository{db: db, logger: logger}
}

// Create creates a new group
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, `
		INSERT INTO groups (id, org_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		group.ID, group.OrgID, group.Name, group.Description, group.CreatedAt,
	)
	if err != nil {
		return mapError("failed to create group", err)
	}

	r.logger.Debug("group created", zap.String("id", group.ID.String()), zap.String("org_id", group.OrgID.String()))
	return nil
}

// GetByID retrieves a group with its member ids
func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	executor := GetExecutor(ctx, r.db)
	group, err := scanGroup(executor.QueryRowContext(ctx, groupSelect+` WHERE g.id = $1 GROUP BY g.id`, id))
	if err != nil {
		return nil, mapError("failed to get group", err)
	}
	return group, nil
}

// List retrieves groups, restricted to orgID when set
func (r *GroupRepository) List(ctx context.Context, orgID *uuid.UUID) ([]*models.Group, error) {
	q := newSelect(groupSelect)
	if orgID != nil {
		q.where("g.org_id = ?", *orgID)
	}
	q.group("g.id")
	q.orderBy("g.name")

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group rows: %w", err)
	}
	return groups, nil
}

// Update updates a group's name and description
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx,
		`UPDATE groups SET name = $2, description = $3 WHERE id = $1`,
		group.ID, group.Name, group.Description)
	if err != nil {
		return mapError("failed to update group", err)
	}
	return requireAffected("group not found", result)
}

// Delete deletes a group and its memberships
func (r *GroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return mapError("failed to delete group", err)
	}
	if err := requireAffected("group not found", result); err != nil {
		return err
	}

	r.logger.Debug("group deleted", zap.String("id", id.String()))
	return nil
}

// AddMember adds a user to a group. Existing memberships are left as is.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO user_groups (user_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, groupID)
	if err != nil {
		return mapError("failed to add group member", err)
	}
	return nil
}

// RemoveMember removes a user from a group
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM user_groups WHERE user_id = $1 AND group_id = $2`, userID, groupID)
	if err != nil {
		return mapError("failed to remove group member", err)
	}
	return requireAffected("group membership not found", result)
}

func scanGroup(row rowScanner) (*models.Group, error) {
	group := &models.Group{}
	var memberIDs pq.StringArray
	if err := row.Scan(&group.ID, &group.OrgID, &group.Name, &group.Description, &group.CreatedAt, &memberIDs); err != nil {
		return nil, err
	}
	ids, err := parseUUIDs(memberIDs)
	if err != nil {
		return nil, err
	}
	group.MemberIDs = ids
	return group, nil
}
