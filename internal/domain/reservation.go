package domain

import "time"

type ReservationState string

const (
	StatePending    ReservationState = "pending"
	StateConfirmed  ReservationState = "confirmed"
	StateCancelled  ReservationState = "cancelled"
	StateCheckedIn  ReservationState = "checked_in"
	StateCheckedOut ReservationState = "checked_out"
	StateNoShow     ReservationState = "no_show"
)

// Holding reports whether a reservation in this state occupies
// inventory: every holding reservation contributes +1 to the sold count
// of each cell it covers.
func (s ReservationState) Holding() bool {
	switch s {
	case StatePending, StateConfirmed, StateCheckedIn:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves this state.
func (s ReservationState) Terminal() bool {
	switch s {
	case StateCancelled, StateCheckedOut, StateNoShow:
		return true
	}
	return false
}

var legalTransitions = map[ReservationState][]ReservationState{
	StatePending:   {StateConfirmed, StateCancelled},
	StateConfirmed: {StateCancelled, StateCheckedIn, StateNoShow},
	StateCheckedIn: {StateCheckedOut},
}

// CanTransition reports whether the lifecycle graph permits moving from
// one state to another. Everything not listed is rejected.
func CanTransition(from, to ReservationState) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CancelReasonAbandoned marks pendings swept after their TTL expired.
// Reservations cancelled for this reason release their idempotency key.
const CancelReasonAbandoned = "abandoned"

type GuestCount struct {
	Adults   int
	Children int
}

// AuditEntry is one append-only record of a reservation mutation. Past
// entries are never rewritten.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Operation string         `json:"operation"`
	OldValues map[string]any `json:"old_values,omitempty"`
	NewValues map[string]any `json:"new_values,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// Reservation is a ledger record for one room across a stay.
type Reservation struct {
	ID            string
	BookingNumber string
	HotelID       string
	RoomTypeID    string
	CheckIn       Date
	CheckOut      Date
	State         ReservationState
	// IdempotencyKey dedupes externally retried creates; unique per
	// hotel among non-abandoned reservations.
	IdempotencyKey    string
	Source            string
	ExternalReference string
	// RateSnapshot holds the per-night rate applied when the stay was
	// committed, one entry per night, in minor units.
	RateSnapshot []int64
	Currency     string
	Guests       GuestCount
	GuestRef     string
	CancelReason string
	// PendingExpiresAt bounds how long an unconfirmed pending may hold
	// inventory before the sweeper abandons it. Cleared on confirm.
	PendingExpiresAt *time.Time
	AuditTrail       []AuditEntry
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r Reservation) Nights() int { return Nights(r.CheckIn, r.CheckOut) }

func (r Reservation) Covers(d Date) bool {
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

func (r Reservation) TotalAmount() int64 {
	var total int64
	for _, rate := range r.RateSnapshot {
		total += rate
	}
	return total
}
