package scans

import (
	"errors"
	"net/http"
)

// Domain errors for scan operations.
var ErrNotFound = errors.New("scan job not found")

// MapHTTPStatus maps scan domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
