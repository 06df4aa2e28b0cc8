package providers

import (
	"errors"
	"net/http"
)

// Domain errors for provider operations.
var (
	ErrNotFound  = errors.New("provider not found")
	ErrDuplicate = errors.New("provider tax id already exists")
)

// MapHTTPStatus maps provider domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
