package handlers

import (
	"errors"
	"net/http"

	"github.com/oksasatya/profile-sync/internal/application"
	"github.com/oksasatya/profile-sync/internal/domain/apperror"
)

// statusFor maps the closed error set onto HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, application.ErrNoSession) {
		return http.StatusUnauthorized
	}
	switch apperror.KindOf(err) {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindPermissionDenied:
		return http.StatusForbidden
	case apperror.KindUserCancelled:
		return http.StatusNoContent
	case apperror.KindStore:
		return http.StatusServiceUnavailable
	case apperror.KindPrecondition:
		return http.StatusConflict
	case apperror.KindInvalidImage:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
