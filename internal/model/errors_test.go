package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestInsufficientStockErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("issuing: %w", Insufficient(1, 3))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	var ise *InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatal("expected InsufficientStockError in chain")
	}
	if ise.Available != 1 || ise.Requested != 3 {
		t.Errorf("unexpected counts: %+v", ise)
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid("qty must be positive, got %d", -1)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err.Error() != "invalid input: qty must be positive, got -1" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
