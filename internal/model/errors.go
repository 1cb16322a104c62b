package model

import (
	"errors"
	"fmt"
)

// Error kinds returned by the catalog, ledger and custody operations.
// Callers match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateName       = errors.New("duplicate name")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ErrReturnRevalidation is returned when an approved return finds the
// requester no longer holds enough units. It is an insufficient stock error.
var ErrReturnRevalidation = fmt.Errorf("return no longer covered by holdings: %w", ErrInsufficientStock)

// InsufficientStockError reports how much was available when a request
// could not be served.
type InsufficientStockError struct {
	Requested float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: have %g, need %g", e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Insufficient returns an InsufficientStockError.
func Insufficient(available, requested float64) error {
	return &InsufficientStockError{Requested: requested, Available: available}
}

// Invalid wraps ErrInvalidInput with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
