package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrSaleWindowClosed      = errors.New("sale window closed")
	ErrMaxPerOrderExceeded   = errors.New("max per order exceeded")

	ErrReservationExpired = errors.New("reservation expired")
	ErrAlreadyReleased    = errors.New("reservation already released")
	ErrAlreadyCommitted   = errors.New("reservation already committed")
)

// LineError ties a reservation failure to the cart line that caused it.
type LineError struct {
	TicketTypeID string
	Requested    int
	Available    int
	Err          error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("ticket type %s: %s (requested %d, available %d)", e.TicketTypeID, e.Err, e.Requested, e.Available)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
