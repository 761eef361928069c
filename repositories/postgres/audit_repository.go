package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, org_id, actor_id, action, resource_type, resource_id,
			details, request_id, ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var details []byte
	if len(log.Details) > 0 {
		details = log.Details
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.OrgID,
		log.ActorID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		details,
		log.RequestID,
		log.IPAddress,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// List retrieves audit logs newest first
func (r *AuditRepository) List(ctx context.Context, orgID *uuid.UUID, page repositories.Page) ([]*models.AuditLog, error) {
	q := newSelect(`
		SELECT id, org_id, actor_id, action, resource_type, resource_id,
		       details, request_id, ip_address, created_at
		FROM audit_logs`)
	if orgID != nil {
		q.where("org_id = ?", *orgID)
	}
	q.orderBy("created_at DESC")
	q.paginate(page)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		var details []byte
		var requestID, ipAddress sql.NullString
		err := rows.Scan(
			&log.ID,
			&log.OrgID,
			&log.ActorID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&details,
			&requestID,
			&ipAddress,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if len(details) > 0 {
			log.Details = json.RawMessage(details)
		}
		log.RequestID = requestID.String
		log.IPAddress = ipAddress.String
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}
