/*
errors.go - Error kinds for the purchase engine

ERROR CATEGORIES:
  1. NotFound      - referenced record does not exist            (HTTP 404)
  2. Conflict      - valid request, disallowed state transition  (HTTP 409)
  3. InvalidInput  - schema or business-rule violation           (HTTP 400)
  Anything else is an infrastructure failure (HTTP 500).

USAGE:
  Structured errors carry context and unwrap to a sentinel:

    if errors.Is(err, trade.ErrConflict) { ... }

    var verr *trade.ValidationError
    if errors.As(err, &verr) { render(verr.Details) }

SEE ALSO:
  - validate.go: Builds ValidationError from field violations
  - api/handlers.go: Maps kinds to HTTP status
*/
package trade

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a transition the current state does not allow.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

func conflict(entity, id, reason string) error {
	return &ConflictError{Entity: entity, ID: id, Reason: reason}
}

// FieldViolation is one failed field check.
type FieldViolation struct {
	Field string
	Code  string
}

// ValidationError reports rejected input, with per-field detail when known.
type ValidationError struct {
	Message string
	Details []FieldViolation
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsClientError returns true if the caller can fix the request.
func IsClientError(err error) bool {
	return IsNotFound(err) || IsConflict(err) || IsInvalidInput(err)
}
