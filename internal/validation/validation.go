// Package validation parses and checks the textual values users type into
// the calculators before they reach the domain packages.
package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrBlank is returned when a required value is empty.
	ErrBlank = errors.New("value is required")
	// ErrNotNumber is returned when a value cannot be parsed as a number.
	ErrNotNumber = errors.New("value must be a number")
	// ErrNotInteger is returned when a value cannot be parsed as an integer.
	ErrNotInteger = errors.New("value must be an integer")
	// ErrOutOfRange is returned when a parsed value violates its lower bound.
	ErrOutOfRange = errors.New("value is out of range")
)

// Field names reported in FieldError.
const (
	FieldPrice        = "price"
	FieldQuantity     = "quantity"
	FieldCount        = "count"
	FieldDenomination = "denomination"
	FieldStock        = "stock"
	FieldTarget       = "target"
)

// FieldError ties a validation failure to the input field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Price parses a strictly positive decimal price.
func Price(raw string) (decimal.Decimal, error) {
	return positiveDecimal(FieldPrice, raw)
}

// Quantity parses a strictly positive, possibly fractional, content quantity.
func Quantity(raw string) (decimal.Decimal, error) {
	return positiveDecimal(FieldQuantity, raw)
}

// Count parses a pack count of at least one.
func Count(raw string) (int, error) {
	return boundedInt(FieldCount, raw, 1)
}

// Denomination parses a strictly positive stamp denomination.
func Denomination(raw string) (int, error) {
	return boundedInt(FieldDenomination, raw, 1)
}

// Stock parses a non-negative piece count.
func Stock(raw string) (int, error) {
	return boundedInt(FieldStock, raw, 0)
}

// Target parses a strictly positive target amount.
func Target(raw string) (int, error) {
	return boundedInt(FieldTarget, raw, 1)
}

// CheckDenomination applies the Denomination bound to an already decoded value.
func CheckDenomination(value int) error {
	return atLeast(FieldDenomination, value, 1)
}

// CheckStock applies the Stock bound to an already decoded value.
func CheckStock(value int) error {
	return atLeast(FieldStock, value, 0)
}

// CheckTarget applies the Target bound to an already decoded value.
func CheckTarget(value int) error {
	return atLeast(FieldTarget, value, 1)
}

func positiveDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, &FieldError{Field: field, Err: ErrBlank}
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &FieldError{Field: field, Err: ErrNotNumber}
	}
	if !value.IsPositive() {
		return decimal.Zero, &FieldError{Field: field, Err: fmt.Errorf("%w: must be greater than 0", ErrOutOfRange)}
	}
	return value, nil
}

func boundedInt(field, raw string, lower int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &FieldError{Field: field, Err: ErrBlank}
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &FieldError{Field: field, Err: ErrNotInteger}
	}
	if err := atLeast(field, value, lower); err != nil {
		return 0, err
	}
	return value, nil
}

func atLeast(field string, value, lower int) error {
	if value < lower {
		return &FieldError{Field: field, Err: fmt.Errorf("%w: must be at least %d", ErrOutOfRange, lower)}
	}
	return nil
}
