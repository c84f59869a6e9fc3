package entity

import (
	"errors"
	"fmt"
)

var (
	ErrTicketTypeNotFound  = errors.New("ticket type not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrTicketNotFound      = errors.New("ticket not found")
)

// ValidationError is returned for malformed input before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
