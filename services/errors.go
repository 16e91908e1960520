// services/errors.go - Domain error taxonomy
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyClaimedToday = errors.New("daily bonus already claimed today")
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidInput        = errors.New("invalid input")
)

// TransportError wraps a failed call to the store or the text generator.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// storeErr classifies an error returned from a gorm call. Domain errors pass
// through untouched, a missing record becomes ErrNotFound and everything else
// is a TransportError.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrAlreadyClaimedToday),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidInput),
		IsTransport(err):
		return err
	}
	return &TransportError{Op: op, Err: err}
}
