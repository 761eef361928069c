package services

import (
	"context"

	"github.com/upb/membership-backend/models"
)

// AuditLogger receives audit entries for mutating operations.
// Implementations must not block the caller.
type AuditLogger interface {
	Record(entry *models.AuditLog)
}

// NopAuditLogger discards every entry
type NopAuditLogger struct{}

// Record implements AuditLogger
func (NopAuditLogger) Record(*models.AuditLog) {}

// RequestMeta identifies the HTTP request an operation runs for
type RequestMeta struct {
	RequestID string
	IPAddress string
}

type requestMetaKey struct{}

// WithRequestMeta attaches request metadata to ctx
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext returns the request metadata carried by ctx
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// record stamps entry with the request metadata and hands it to logger
func record(ctx context.Context, logger AuditLogger, entry *models.AuditLog) {
	if logger == nil {
		return
	}
	meta := RequestMetaFromContext(ctx)
	logger.Record(entry.WithRequest(meta.RequestID, meta.IPAddress))
}
