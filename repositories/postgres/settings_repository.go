package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// SettingsRepository implements the repositories.SettingsRepository interface
type SettingsRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB, logger *zap.Logger) repositories.SettingsRepository {
	return &SettingsRepository{db: db, logger: logger}
}

// Get retrieves an organization's settings document
func (r *SettingsRepository) Get(ctx context.Context, orgID uuid.UUID) (*models.OrgSettings, error) {
	s := &models.OrgSettings{}
	var raw []byte
	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx,
		`SELECT org_id, settings, updated_at FROM org_settings WHERE org_id = $1`, orgID,
	).Scan(&s.OrgID, &raw, &s.UpdatedAt)
	if err != nil {
		return nil, mapError("failed to get settings", err)
	}
	s.Settings = json.RawMessage(raw)
	return s, nil
}

// Upsert replaces an organization's settings document
func (r *SettingsRepository) Upsert(ctx context.Context, s *models.OrgSettings) error {
	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, `
		INSERT INTO org_settings (org_id, settings, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at`,
		s.OrgID, []byte(s.Settings), s.UpdatedAt,
	)
	if err != nil {
		return mapError("failed to save settings", err)
	}

	r.logger.Debug("settings saved", zap.String("org_id", s.OrgID.String()))
	return nil
}
