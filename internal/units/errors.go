package units

import (
	"errors"
	"net/http"
)

// Domain errors for unit operations.
var (
	ErrNotFound  = errors.New("unit not found")
	ErrDuplicate = errors.New("unit tax id already exists")
)

// MapHTTPStatus maps unit domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
