package service

import (
	"errors"
	"fmt"
)

// ValidationError reports a request that can never succeed as sent.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ErrHoldExpired is returned when paying for a reservation whose hold has
// already lapsed.
var ErrHoldExpired = errors.New("reservation hold has expired")

// ErrOrderMismatch is returned when a payment callback names an order
// that does not belong to the booking.
var ErrOrderMismatch = errors.New("order does not belong to booking")
