package errors

import "errors"

// Common error types shared by the repositories, gateway and web layer
var (
	// Lookup errors
	ErrNotFound       = errors.New("not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrTenantNotFound = errors.New("tenant not found")

	// Authentication errors
	ErrCorruptCredential = errors.New("stored credential is malformed")

	// Session errors
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionExpired = errors.New("session expired")

	// Configuration errors
	ErrInvalidConfig           = errors.New("invalid configuration")
	ErrFederationNotConfigured = errors.New("federated login not configured")
	ErrDirectoryNotConfigured  = errors.New("directory delegation not configured")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// NotFound reports whether err signals an absent record.
func NotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrTenantNotFound)
}
