/*
errors.go - Centralized error kinds for the allocation engine

PURPOSE:
  All error types in one place. Callers classify failures with errors.Is
  against the sentinels; structured types carry context and Unwrap() to
  their sentinel.

ERROR KINDS:
  1. NotFound           - referenced record does not exist
  2. InsufficientStock  - a movement would drive a stock counter negative
  3. ValidationError    - malformed or out-of-range input
  4. InvariantViolation - a recompute would break an engine invariant

PROPAGATION:
  Every operation returns a success value or one of these kinds; nothing is
  swallowed. Translation to user-facing messages is the API layer's job.

SEE ALSO:
  - rental/service.go: raises these from the operation layer
  - api/handlers.go: maps kinds to HTTP status codes
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced customer, order, stock or
	// shipment id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientStock is returned when an export or item allocation
	// would drive a stock quantity negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrValidation is returned for malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrInvariantViolation is returned when a recompute would break one of
	// the engine invariants. Should not occur under correct use, but is
	// checked rather than silently ignored.
	ErrInvariantViolation = errors.New("invariant violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // "customer", "order", "stock", "shipment"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientStockError details a stock shortage.
type InsufficientStockError struct {
	StockID   StockID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock %q: available %d, requested %d",
		e.StockID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError reports one rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvariantError reports which invariant a recompute would break.
type InvariantError struct {
	Invariant string // e.g. "total_price", "single_bonus"
	Message   string
	Amount    decimal.Decimal
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated: %s (amount %s)",
		e.Invariant, e.Message, e.Amount)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock)
}
