package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/upb/membership-backend/middleware"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/services/export"
	"github.com/upb/membership-backend/utils"
	"go.uber.org/zap"
)

// currentUser returns the user RequireAuth resolved for this request
func currentUser(r *http.Request) *models.User {
	return middleware.GetUserFromContext(r.Context())
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
// It writes a 400 and returns false when either step fails.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(r, dst); err != nil {
		logger.Debug("invalid request body",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		HandleValidationError(w, err, logger)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

// badRequest reports a malformed path or query parameter
func badRequest(w http.ResponseWriter, err error, logger *zap.Logger) {
	HandleValidationError(w, err, logger)
}

func writeOK(w http.ResponseWriter, data interface{}, logger *zap.Logger) {
	if err := utils.WriteOK(w, data); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

func writeCreated(w http.ResponseWriter, data interface{}, logger *zap.Logger) {
	if err := utils.WriteCreated(w, data); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// writeExport renders a table export into memory first so failures still produce a JSON error
func writeExport(w http.ResponseWriter, r *http.Request, logger *zap.Logger, base, suffix string,
	render func(format export.Format, out io.Writer) error) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, err, logger)
		return
	}

	var buf bytes.Buffer
	if err := render(format, &buf); err != nil {
		HandleServiceError(w, r, err, logger)
		return
	}

	if err := utils.WriteAttachment(w, format.ContentType(), format.Filename(base, suffix), buf.Bytes()); err != nil {
		logger.Error("failed to write export", zap.Error(err))
	}
}
