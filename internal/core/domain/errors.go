// Package domain defines the core domain models for jobdesk.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes follow the format JD-<AREA>-<NNNN>, where the number mirrors the
// closest HTTP status (4010 = unauthorized, 5030 = unavailable, ...).
type DomainError struct {
	Code    string // Error code (e.g., "JD-AUTH-4010")
	Message string // Human-readable message, safe to show to the user
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison by code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithMessage returns a copy of the error with a different user-facing message.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: message,
		Details: e.Details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// UserMessage returns the message to show to an end user for err.
// Domain errors yield their Message; anything else yields a generic text.
func UserMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "something went wrong, please try again"
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrLoginRejected indicates the backend refused the credentials.
	ErrLoginRejected = NewDomainError("JD-AUTH-4010", "invalid email or password")

	// ErrSessionExpired indicates the bearer credential is no longer accepted.
	ErrSessionExpired = NewDomainError("JD-AUTH-4011", "your session has expired, please log in again")

	// ErrNotAuthenticated indicates an operation needs a session and there is none.
	ErrNotAuthenticated = NewDomainError("JD-AUTH-4012", "not logged in")

	// ErrRoleMismatch indicates the account exists but not under the claimed role.
	ErrRoleMismatch = NewDomainError("JD-AUTH-4030", "this account cannot sign in with the selected role")

	// ErrAuthUnavailable indicates the authentication backend could not be reached.
	ErrAuthUnavailable = NewDomainError("JD-AUTH-5030", "authentication service unavailable, please try again later")
)

// ============================================================================
// Navigation Errors (NAV)
// ============================================================================

var (
	// ErrViewNotFound indicates the requested location matches no known view.
	ErrViewNotFound = NewDomainError("JD-NAV-4040", "page not found")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = NewDomainError("JD-SYS-5000", "internal error")

	// ErrStorage indicates the local key-value store failed.
	ErrStorage = NewDomainError("JD-SYS-5001", "local storage error")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("JD-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("JD-ARG-1002", "missing required argument")
)
