package http

import (
	"office-dashboard/internal/dashboard/usecase"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the body of every failed dashboard request. Notice is
// the toast the client shows; Details carries per-field messages under
// "fields".
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Notice  interface{}            `json:"notice"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// writeError maps err onto its HTTP status and error body. Internal causes
// are logged, never returned.
func writeError(c *fiber.Ctx, log logger.Logger, err error) error {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPCode >= fiber.StatusInternalServerError {
		log.WithContext(c.UserContext()).WithFields(map[string]interface{}{
			"path":   c.Path(),
			"method": c.Method(),
		}).Errorf("request failed: %v", err)
	}
	resp := ErrorResponse{
		Error:  appErr.Message,
		Code:   apperrors.CallableStatus(appErr.Type),
		Notice: usecase.ErrorNotice(err),
	}
	if len(appErr.Details) > 0 {
		resp.Details = appErr.Details
	}
	return c.Status(appErr.HTTPCode).JSON(resp)
}

// badBody is returned when the request body cannot be decoded.
func badBody(c *fiber.Ctx, log logger.Logger) error {
	return writeError(c, log, apperrors.NewValidationError("invalid request body"))
}
