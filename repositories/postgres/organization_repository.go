package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

const orgColumns = `id, name, description, subdomain, primary_color, secondary_color, accent_color,
		logo_url, preferred_language, created_at, updated_at`

// OrganizationRepository implements the repositories.OrganizationRepository interface
type OrganizationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *DB, logger *zap.Logger) repositories.OrganizationRepository {
	return &OrganizationRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO orgs (` + orgColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.Description,
		org.Subdomain,
		org.PrimaryColor,
		org.SecondaryColor,
		org.AccentColor,
		org.LogoURL,
		org.PreferredLanguage,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		return mapError("failed to create organization", err)
	}

	r.logger.Debug("organization created", zap.String("id", org.ID.String()), zap.String("name", org.Name))
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM orgs WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	org, err := scanOrganization(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("failed to get organization", err)
	}
	return org, nil
}

// List retrieves organizations ordered by name
func (r *OrganizationRepository) List(ctx context.Context, orgID *uuid.UUID, page repositories.Page) ([]*models.Organization, error) {
	q := newSelect(`SELECT ` + orgColumns + ` FROM orgs`)
	if orgID != nil {
		q.where("id = ?", *orgID)
	}
	q.orderBy("name")
	q.paginate(page)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}

	return orgs, nil
}

// Update updates an organization
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE orgs
		SET name = $2,
		    description = $3,
		    subdomain = $4,
		    primary_color = $5,
		    secondary_color = $6,
		    accent_color = $7,
		    logo_url = $8,
		    preferred_language = $9,
		    updated_at = $10
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.Description,
		org.Subdomain,
		org.PrimaryColor,
		org.SecondaryColor,
		org.AccentColor,
		org.LogoURL,
		org.PreferredLanguage,
		org.UpdatedAt,
	)
	if err != nil {
		return mapError("failed to update organization", err)
	}
	if err := requireAffected("organization not found", result); err != nil {
		return err
	}

	r.logger.Debug("organization updated", zap.String("id", org.ID.String()))
	return nil
}

// Delete deletes an organization. Users, groups, events, ledger rows and settings cascade.
func (r *OrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM orgs WHERE id = $1`, id)
	if err != nil {
		return mapError("failed to delete organization", err)
	}
	if err := requireAffected("organization not found", result); err != nil {
		return err
	}

	r.logger.Debug("organization deleted", zap.String("id", id.String()))
	return nil
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	org := &models.Organization{}
	err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Description,
		&org.Subdomain,
		&org.PrimaryColor,
		&org.SecondaryColor,
		&org.AccentColor,
		&org.LogoURL,
		&org.PreferredLanguage,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return org, nil
}
