package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrHotelNotFound          = errors.New("hotel not found")
	ErrRoomTypeNotFound       = errors.New("room type not found")
	ErrReservationNotFound    = errors.New("reservation not found")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency key bound to a different reservation")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidStayDates       = errors.New("check-out must be after check-in")
	ErrArrivalInPast          = errors.New("arrival date is in the past")
	ErrInvalidRoomCount       = errors.New("invalid room count")
	ErrInvalidID              = errors.New("invalid id")

	// ErrVersionConflict signals a lost versioned compare-and-set. It is
	// transient: the coordinator retries from a fresh read.
	ErrVersionConflict = errors.New("inventory version conflict")

	// ErrConflictExhausted is surfaced once the retry budget for version
	// conflicts runs out. Callers may retry the whole operation.
	ErrConflictExhausted = errors.New("conflicting writes exhausted retry budget")

	// ErrInventoryUnderflow is returned when a release would drive a
	// cell's sold count negative, regardless of version.
	ErrInventoryUnderflow = errors.New("sold rooms would go negative")
)

// NotAvailableError reports why a requested stay cannot be booked. It
// carries every offending date with its reason code.
type NotAvailableError struct {
	Offending []DateReason
}

func (e *NotAvailableError) Error() string {
	if len(e.Offending) == 0 {
		return "stay not available"
	}
	parts := make([]string, 0, len(e.Offending))
	for _, o := range e.Offending {
		parts = append(parts, fmt.Sprintf("%s (%s)", o.Date, o.Reason))
	}
	return "stay not available: " + strings.Join(parts, ", ")
}

// InvalidStateError reports an illegal reservation state transition.
type InvalidStateError struct {
	ReservationID string
	Current       ReservationState
	Requested     ReservationState
}

func (e *InvalidStateError) Error() string {
	if e.Requested == "" {
		return fmt.Sprintf("reservation %s cannot be modified in state %s", e.ReservationID, e.Current)
	}
	return fmt.Sprintf("reservation %s cannot move from %s to %s", e.ReservationID, e.Current, e.Requested)
}
