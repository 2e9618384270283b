package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ValidationError indicates missing or malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError indicates an operation that the order's current status forbids.
type ConflictError struct {
	OrderID string
	Status  Status
	Reason  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %s %s (status %s)", e.OrderID, e.Reason, e.Status)
}

// IntegrityError indicates an order referencing a product missing from the
// catalog. Nothing is persisted when it is returned.
type IntegrityError struct {
	ProductID string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}
