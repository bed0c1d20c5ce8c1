package app

import (
	"errors"
	"net/http"

	"github.com/melusc/initiative-tracker/internal/assets"
	"github.com/melusc/initiative-tracker/internal/domain"
)

// mapError translates domain and asset errors into an HTTP status and
// a stable machine-readable code. Anything unrecognised is a 500.
func mapError(err error) (status int, code, message string) {
	if kind, ok := domain.KindOf(err); ok {
		switch kind {
		case domain.KindValidation:
			return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error()
		case domain.KindConflict:
			return http.StatusConflict, "CONFLICT", err.Error()
		case domain.KindNotFound:
			return http.StatusNotFound, "NOT_FOUND", err.Error()
		case domain.KindExternal:
			return http.StatusBadGateway, "UPSTREAM_ERROR", err.Error()
		}
	}
	switch {
	case errors.Is(err, assets.ErrInvalidType):
		return http.StatusUnprocessableEntity, "INVALID_FILE_TYPE", err.Error()
	case errors.Is(err, assets.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error()
	case errors.Is(err, assets.ErrInvalidURL):
		return http.StatusUnprocessableEntity, "INVALID_URL", err.Error()
	case errors.Is(err, assets.ErrFetch):
		return http.StatusBadGateway, "FETCH_FAILED", err.Error()
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error"
}
