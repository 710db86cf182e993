package unitprice

import "errors"

var (
	// ErrInvalidPrice is returned when the price is not strictly positive.
	ErrInvalidPrice = errors.New("price must be greater than zero")
	// ErrInvalidQuantity is returned when the content quantity is not strictly positive.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrInvalidCount is returned when the pack count is below one.
	ErrInvalidCount = errors.New("count must be at least 1")
)
