package app

import (
	"context"
	"errors"
	"testing"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

func TestAvailabilityService_CheckAvailability(t *testing.T) {
	t.Parallel()

	t.Run("open range is bookable with per-day detail", func(t *testing.T) {
		store := newFakeStore()
		svc := NewAvailabilityService(store)

		verdict, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			HotelID: "hotel-1", RoomTypeID: "std",
			From: date(10), To: date(13),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !verdict.Bookable {
			t.Fatalf("expected bookable, offending %v", verdict.Offending)
		}
		if len(verdict.Days) != 3 {
			t.Fatalf("expected 3 days, got %d", len(verdict.Days))
		}
		if verdict.Days[0].AvailableRooms != 5 || verdict.Days[0].Rate != 10000 {
			t.Fatalf("unexpected day detail: %+v", verdict.Days[0])
		}
	})

	t.Run("requested room count gates the verdict", func(t *testing.T) {
		store := newFakeStore()
		svc := NewAvailabilityService(store)

		verdict, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			HotelID: "hotel-1", RoomTypeID: "dlx",
			From: date(10), To: date(12), Rooms: 3,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if verdict.Bookable {
			t.Fatalf("expected 3 rooms to exceed deluxe capacity of 2")
		}
	})

	t.Run("stop-sell surfaces per offending date", func(t *testing.T) {
		store := newFakeStore()
		stop := true
		if err := store.SetRestrictions(context.Background(), "hotel-1", "std", date(11), date(12), domain.RestrictionsPatch{StopSell: &stop}); err != nil {
			t.Fatalf("set restrictions: %v", err)
		}
		svc := NewAvailabilityService(store)

		verdict, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			HotelID: "hotel-1", RoomTypeID: "std",
			From: date(10), To: date(13),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if verdict.Bookable {
			t.Fatalf("expected stop-sell to block")
		}
		if len(verdict.Offending) != 1 || verdict.Offending[0].Date != date(11) || verdict.Offending[0].Reason != domain.ReasonStopSell {
			t.Fatalf("unexpected offending set: %v", verdict.Offending)
		}
	})

	t.Run("inverted range is rejected", func(t *testing.T) {
		svc := NewAvailabilityService(newFakeStore())
		_, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			HotelID: "hotel-1", RoomTypeID: "std",
			From: date(13), To: date(10),
		})
		if !errors.Is(err, domain.ErrInvalidStayDates) {
			t.Fatalf("expected ErrInvalidStayDates, got %v", err)
		}
	})

	t.Run("unknown room type", func(t *testing.T) {
		svc := NewAvailabilityService(newFakeStore())
		_, err := svc.CheckAvailability(context.Background(), AvailabilityQuery{
			HotelID: "hotel-1", RoomTypeID: "suite",
			From: date(10), To: date(11),
		})
		if !errors.Is(err, domain.ErrRoomTypeNotFound) {
			t.Fatalf("expected ErrRoomTypeNotFound, got %v", err)
		}
	})
}
