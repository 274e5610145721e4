// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses via the `fail()` helper, plus the translation from the service
// error taxonomy to (status, code) pairs. The codes give clients a stable,
// machine-readable error surface that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes (bad_request, not_found, conflict) mirror common HTTP
//     status semantics.
//   - invalid_cursor is distinct from bad_request so clients can tell a
//     stale or foreign continuation token apart from other input errors
//     and restart the listing from the first page.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nadimakk/go-chat-service/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInvalidCursor    = "invalid_cursor"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeUnavailable      = "service_unavailable"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// failService translates a service-layer error into the wire envelope.
//
// Unrecognized errors become 500 internal_error with a generic message so
// internal details never leak to clients.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCursor):
		fail(c, http.StatusBadRequest, ErrCodeInvalidCursor, "continuation token is not valid for this query")
	case errors.Is(err, services.ErrInvalidArgument):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, services.ErrMessageExists),
		errors.Is(err, services.ErrProfileExists):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrServiceUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "storage temporarily unavailable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
