package app

import (
	"context"
	"errors"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

var (
	ErrBadMinLOS   = errors.New("min_length_of_stay must be at least 1")
	ErrBadMaxLOS   = errors.New("max_length_of_stay must be 0 or >= min_length_of_stay")
	ErrEmptyPatch  = errors.New("patch has no fields")
	ErrNegativeVal = errors.New("counts and rates must be non-negative")
)

// InventoryAdmin is the restriction/capacity write surface.
type InventoryAdmin interface {
	SetRestrictions(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.RestrictionsPatch) error
	SetCapacity(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.CapacityPatch) error
}

// InventoryService handles administrative inventory writes. These
// bypass the booking coordinator: restriction flips never touch sold
// counts and never retroactively invalidate existing reservations.
type InventoryService struct {
	inv    InventoryAdmin
	hotels HotelDirectory
}

func NewInventoryService(inv InventoryAdmin, hotels HotelDirectory) *InventoryService {
	return &InventoryService{inv: inv, hotels: hotels}
}

func (s *InventoryService) SetRestrictions(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.RestrictionsPatch) error {
	if domain.Nights(from, to) < 1 {
		return domain.ErrInvalidStayDates
	}
	if patch.IsEmpty() {
		return ErrEmptyPatch
	}
	if patch.MinLengthOfStay != nil && *patch.MinLengthOfStay < 1 {
		return ErrBadMinLOS
	}
	if patch.MaxLengthOfStay != nil && *patch.MaxLengthOfStay < 0 {
		return ErrBadMaxLOS
	}
	if patch.MinLengthOfStay != nil && patch.MaxLengthOfStay != nil &&
		*patch.MaxLengthOfStay != 0 && *patch.MaxLengthOfStay < *patch.MinLengthOfStay {
		return ErrBadMaxLOS
	}
	if _, err := s.hotels.GetRoomType(ctx, hotelID, roomTypeID); err != nil {
		return err
	}
	return s.inv.SetRestrictions(ctx, hotelID, roomTypeID, from, to, patch)
}

func (s *InventoryService) SetCapacity(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.CapacityPatch) error {
	if domain.Nights(from, to) < 1 {
		return domain.ErrInvalidStayDates
	}
	if patch.IsEmpty() {
		return ErrEmptyPatch
	}
	if (patch.TotalRooms != nil && *patch.TotalRooms < 0) ||
		(patch.BlockedRooms != nil && *patch.BlockedRooms < 0) ||
		(patch.BaseRate != nil && *patch.BaseRate < 0) ||
		(patch.OverbookingAllowance != nil && *patch.OverbookingAllowance < 0) {
		return ErrNegativeVal
	}
	if _, err := s.hotels.GetRoomType(ctx, hotelID, roomTypeID); err != nil {
		return err
	}
	return s.inv.SetCapacity(ctx, hotelID, roomTypeID, from, to, patch)
}
