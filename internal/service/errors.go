package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/transport"
)

var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrAccountNotFound   = errors.New("account not found")
	ErrWrongPassword     = errors.New("wrong password")

	ErrEmptyCart = fmt.Errorf("cart is empty: %w", ErrValidation)
)

type Shortage struct {
	ProductID uint
	Name      string
	Requested int
	Available int
}

// StockError lists every product a request wanted more of than is in stock.
type StockError struct {
	Items []Shortage
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", it.Name, it.Requested, it.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// FieldError names the form fields that failed validation. It wraps ErrValidation.
type FieldError struct {
	Fields []string
	err    error
}

func (e *FieldError) Error() string {
	if len(e.Fields) == 0 {
		return "validation: " + e.err.Error()
	}
	return "validation: invalid " + strings.Join(e.Fields, ", ")
}

func (e *FieldError) Unwrap() error { return ErrValidation }

func validateForm(v any) error {
	if err := transport.Validate(v); err != nil {
		return &FieldError{Fields: transport.Fields(err), err: err}
	}
	return nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrWrongPassword):
		return "wrong_password"
	}
	return ""
}
