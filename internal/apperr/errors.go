// internal/apperr/errors.go
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrAuthenticationFailure covers missing, malformed, expired or revoked operator credentials.
	ErrAuthenticationFailure = errors.New("authentication failed")

	// ErrTenantNotFound is returned when a tenant id does not resolve to a row.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantUnreachable marks transport failures against a tenant instance.
	// It never leaves the sync layer as an error; it is folded into results.
	ErrTenantUnreachable = errors.New("tenant unreachable")

	// ErrEntitlementWriteFailure means a module replace was rolled back.
	ErrEntitlementWriteFailure = errors.New("entitlement write failed")

	ErrValidation       = errors.New("validation failed")
	ErrOperatorNotFound = errors.New("operator not found")
)

// HTTPStatus maps an error chain to the status code the API reports for it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuthenticationFailure):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTenantNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
