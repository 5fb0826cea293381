package app

import (
	"context"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

// AvailabilityReader is the inventory read surface the query engine
// needs.
type AvailabilityReader interface {
	ReadRange(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date) ([]domain.InventoryCell, error)
}

// AvailabilityService answers availability queries purely by reading
// committed inventory; it never mutates anything and is safe to retry.
type AvailabilityService struct {
	inv AvailabilityReader
}

func NewAvailabilityService(inv AvailabilityReader) *AvailabilityService {
	return &AvailabilityService{inv: inv}
}

type AvailabilityQuery struct {
	HotelID    string
	RoomTypeID string
	From       domain.Date
	To         domain.Date
	Rooms      int
}

func (s *AvailabilityService) CheckAvailability(ctx context.Context, q AvailabilityQuery) (domain.StayVerdict, error) {
	if q.Rooms <= 0 {
		q.Rooms = 1
	}
	if domain.Nights(q.From, q.To) < 1 {
		return domain.StayVerdict{}, domain.ErrInvalidStayDates
	}

	cells, err := s.inv.ReadRange(ctx, q.HotelID, q.RoomTypeID, q.From, q.To)
	if err != nil {
		return domain.StayVerdict{}, err
	}
	return domain.EvaluateStay(cells, q.From, q.To, q.Rooms), nil
}
