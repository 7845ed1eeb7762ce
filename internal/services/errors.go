package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for authentication outcomes. Their messages are what the
// caller sees; no detail about which sub-check failed is attached.
var (
	// ErrInvalidCredentials is returned when a password does not match.
	ErrInvalidCredentials = errors.New("username or password wrong")

	// ErrSessionExpired is returned for an invalid or expired refresh token.
	ErrSessionExpired = errors.New("session expired")

	// ErrUnauthorized is returned when a token's user no longer exists.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoResetSession is returned when a reset step is invoked without a
	// live reset session for that username.
	ErrNoResetSession = errors.New("authentication failed")

	// ErrOtpInvalid is returned for an absent or mismatching passcode.
	ErrOtpInvalid = errors.New("otp is not valid")

	// ErrOtpExpired is returned for a correct but expired passcode.
	ErrOtpExpired = errors.New("otp is expired")
)

// ValidationError reports a client-correctable problem with a specific
// request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError reports uniqueness conflicts at registration. Both reasons
// may be present at once; the check is exhaustive, not short-circuit.
type ConflictError struct {
	Reasons []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", strings.Join(e.Reasons, ", "))
}
