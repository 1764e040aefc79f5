package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/middleware"
	"pennywise/internal/services"
)

// dateLayouts are accepted for dates in bodies and query strings, most
// specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

const dateOnly = "2006-01-02"

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// requestContext returns the request context carrying the client address for audit entries.
func requestContext(c *gin.Context) context.Context {
	return services.WithClientIP(c.Request.Context(), c.ClientIP())
}

// parseDate parses a caller-supplied date. A date without a time of day means
// midnight UTC, or the last instant of that day when endOfDay is set.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if layout == dateOnly && endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t.UTC(), nil
	}
	return time.Time{}, errors.New("invalid date")
}

// invalidField builds an INVALID_INPUT error for a single field.
func invalidField(field, message, kind string) *apperrors.AppError {
	return apperrors.WithDetails(apperrors.ErrInvalidInput, "Validation failed", []apperrors.FieldIssue{{
		Field:   field,
		Message: message,
		Type:    kind,
	}})
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.FromContext(c.Request.Context()).Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, appErr)
		return
	}

	logger.FromContext(c.Request.Context()).Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, apperrors.ErrInternalServer)
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details []apperrors.FieldIssue `json:"details,omitempty"`
}
