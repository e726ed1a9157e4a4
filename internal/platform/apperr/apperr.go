// Package apperr defines the service-level error taxonomy and its mapping to
// HTTP responses. Services return these sentinels; handlers translate them
// with HTTP so that the same policy applies everywhere: tenant mismatches are
// indistinguishable from absence, and only validation failures carry
// structured per-field detail back to the caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	// ErrUnauthenticated means no verified identity was resolved for the
	// request. List reads degrade to empty results instead of returning it.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound covers both genuine absence and tenant mismatch. The two
	// must never be distinguishable to the caller.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the identity is valid but the role does not permit
	// the operation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError carries per-field detail for schema violations. It is the
// only error category that returns structured detail to the caller.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// Validation builds a ValidationError from field/message pairs.
func Validation(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// HTTP maps a service error to an echo HTTP error. Unknown errors are
// treated as store unavailability: a retryable 503 with a generic message,
// never leaking internal state.
func HTTP(err error) error {
	var ve *ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"message": "validation failed",
			"fields":  ve.Fields,
		})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable, retry later")
	}
}
