package services

import (
	"context"

	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
)

// AuditLogService reads the audit trail
type AuditLogService struct {
	logs repositories.AuditRepository
}

// NewAuditLogService creates a new AuditLogService
func NewAuditLogService(logs repositories.AuditRepository) *AuditLogService {
	return &AuditLogService{logs: logs}
}

// List returns the newest audit entries visible to actor
func (s *AuditLogService) List(ctx context.Context, actor *models.User, page repositories.Page) ([]*models.AuditLog, error) {
	orgID, err := ScopeFor(actor).OrgFilter(nil)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.List(ctx, orgID, page)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return logs, nil
}
