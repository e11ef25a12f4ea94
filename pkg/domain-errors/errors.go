// Package domainerrors carries the error taxonomy shared by every KBV module.
//
// Services return *Error values (optionally wrapping an underlying cause) so the
// transport boundary can translate them into a status code and the orchestrator
// failure shape without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	// CodeValidation marks malformed or missing caller input. Never retried.
	CodeValidation Code = "validation_error"
	// CodeDependency marks a non-2xx or malformed response from an external collaborator.
	CodeDependency Code = "dependency_error"
	// CodeUnauthorized marks a dependency that rejected our bearer credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeNotFound marks a dependency 404 (malformed request or NINO mismatch).
	CodeNotFound Code = "not_found"
	// CodeSigning marks a signing service that returned no usable signature.
	CodeSigning Code = "signing_error"
	// CodeStateConflict marks a request whose persisted state disagrees with expectations.
	CodeStateConflict Code = "state_conflict"
	// CodeInvariantViolation marks a caller contract violation inside the core.
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without an underlying cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Is reports whether err carries a domain error and returns it.
func Is(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in the chain has the given code.
func HasCode(err error, code Code) bool {
	de, ok := Is(err)
	return ok && de.Code == code
}

// CodeOf returns the code of the outermost domain error, or CodeInternal.
func CodeOf(err error) Code {
	if de, ok := Is(err); ok {
		return de.Code
	}
	return CodeInternal
}

// IsRetryable reports whether the orchestrator may retry the step that produced err.
// Only the dependency family is retryable; validation and conflicts never are.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeDependency, CodeUnauthorized, CodeNotFound, CodeSigning:
		return true
	default:
		return false
	}
}
