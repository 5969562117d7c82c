/*
errors.go - Centralized error types for the leave core

PURPOSE:
  All error kinds in one place. Callers (the HTTP layer included) classify
  failures with errors.Is against the sentinels; the structured types carry
  enough context to render a specific message.

ERROR KINDS:
  ErrNotFound            target person or pending record absent
  ErrInvalidInput        malformed date, out-of-range hours, unknown type
  ErrInsufficientBalance sick deduction would go negative
  ErrOutOfScope          actor lacks squad/role authority over the target

  ConfirmationRequired (duplicate dates detected) is NOT an error: it is a
  structured SubmitResult, since the caller resubmits with force to proceed.
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a target person or pending record is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed dates, out-of-range hours,
	// or unknown statuses/types. Validation failures reject before any mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientBalance is returned when a sick deduction would go negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOutOfScope is returned when the actor lacks squad or role authority
	// over the target.
	ErrOutOfScope = errors.New("out of scope")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies what was missing.
type NotFoundError struct {
	Kind   string // "profile", "pending request"
	Person string
	Date   string
}

func (e *NotFoundError) Error() string {
	if e.Date != "" {
		return fmt.Sprintf("%s not found for %s on %s", e.Kind, e.Person, e.Date)
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Person)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// InsufficientBalanceError details a sick-balance shortage.
type InsufficientBalanceError struct {
	Person    string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient sick balance for %s: available %sh, requested %sh",
		e.Person, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// OutOfScopeError reports a squad/role authority violation.
type OutOfScopeError struct {
	Actor  string
	Target string
	Reason string
}

func (e *OutOfScopeError) Error() string {
	return fmt.Sprintf("actor %s may not act on %s: %s", e.Actor, e.Target, e.Reason)
}

func (e *OutOfScopeError) Unwrap() error { return ErrOutOfScope }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to the caller's input
// rather than a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrOutOfScope)
}
