package app

import (
	"context"
	"time"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

// Reservation lifecycle event types, published after a successful
// commit for channel managers and other downstream consumers.
const (
	EventReservationCreated    = "reservation.created"
	EventReservationConfirmed  = "reservation.confirmed"
	EventReservationModified   = "reservation.modified"
	EventReservationCancelled  = "reservation.cancelled"
	EventReservationCheckedIn  = "reservation.checked_in"
	EventReservationCheckedOut = "reservation.checked_out"
	EventReservationNoShow     = "reservation.no_show"
)

type ReservationEvent struct {
	Type          string                  `json:"type"`
	OccurredAt    time.Time               `json:"occurred_at"`
	HotelID       string                  `json:"hotel_id"`
	ReservationID string                  `json:"reservation_id"`
	BookingNumber string                  `json:"booking_number"`
	RoomTypeID    string                  `json:"room_type_id"`
	CheckIn       domain.Date             `json:"check_in"`
	CheckOut      domain.Date             `json:"check_out"`
	State         domain.ReservationState `json:"state"`
	Source        string                  `json:"source"`
}

// EventPublisher delivers lifecycle events. Publishing is best-effort:
// the coordinator logs failures and never fails a booking over them.
type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, ev ReservationEvent) error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishReservationEvent(context.Context, ReservationEvent) error { return nil }

func reservationEvent(eventType string, res domain.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          eventType,
		OccurredAt:    at,
		HotelID:       res.HotelID,
		ReservationID: res.ID,
		BookingNumber: res.BookingNumber,
		RoomTypeID:    res.RoomTypeID,
		CheckIn:       res.CheckIn,
		CheckOut:      res.CheckOut,
		State:         res.State,
		Source:        res.Source,
	}
}
