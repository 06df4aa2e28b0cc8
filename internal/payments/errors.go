package payments

import (
	"errors"
	"net/http"
)

// Domain errors for payment operations.
var (
	ErrNotFound      = errors.New("payment not found")
	ErrDuplicate     = errors.New("consecutive number already in use")
	ErrFrozen        = errors.New("payment belongs to a closed period")
	ErrInvalidSource = errors.New("source_type must be INTERNAL or EXTERNAL")
)

// MapHTTPStatus maps payment domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrFrozen) || errors.Is(err, ErrInvalidSource) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
