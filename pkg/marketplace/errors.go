package marketplace

import (
	"errors"
	"fmt"
)

// ErrEmptyBucket is returned by the order engine when the user's bucket
// has no line items.
var ErrEmptyBucket = errors.New("bucket is empty")

// ValidationError marks malformed client input: bad quantities, bad
// filter or sort parameters, bad registration data.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError names the first product whose stock cannot
// cover the requested quantity. The whole order fails; nothing is
// persisted.
type InsufficientStockError struct {
	ProductID uint
	Name      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %q: only %d available", e.Name, e.Available)
}
