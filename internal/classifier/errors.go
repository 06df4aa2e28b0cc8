package classifier

import (
	"errors"
	"net/http"
)

// Domain errors for classifier operations.
var (
	// ErrRateLimited indicates the model endpoint rejected the call for rate
	// limiting; callers back off and continue.
	ErrRateLimited = errors.New("classifier rate limited")
	// ErrUnsupportedType indicates the payload MIME type cannot be analyzed.
	ErrUnsupportedType = errors.New("unsupported document type")
)

// MapHTTPStatus maps classifier errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrRateLimited) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, ErrUnsupportedType) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadGateway
}
