package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

// HotelRepository reads the hotel registry: timezones, currencies and
// room type defaults.
type HotelRepository struct {
	pool DBPool
}

func NewHotelRepository(pool DBPool) *HotelRepository {
	return &HotelRepository{pool: pool}
}

func (r *HotelRepository) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	const q = `SELECT id, name, timezone, currency FROM hotels WHERE id = $1`

	var h domain.Hotel
	err := queryRow(ctx, r.pool, q, id).Scan(&h.ID, &h.Name, &h.Timezone, &h.Currency)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hotel{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Hotel{}, domain.ErrHotelNotFound
		}
		return domain.Hotel{}, fmt.Errorf("get hotel: %w", err)
	}
	return h, nil
}

func (r *HotelRepository) GetRoomType(ctx context.Context, hotelID, roomTypeID string) (domain.RoomType, error) {
	const q = `SELECT id, hotel_id, name, default_capacity, default_overbooking, default_rate
FROM room_types WHERE id = $1 AND hotel_id = $2`

	var rt domain.RoomType
	err := queryRow(ctx, r.pool, q, roomTypeID, hotelID).
		Scan(&rt.ID, &rt.HotelID, &rt.Name, &rt.DefaultCapacity, &rt.DefaultOverbooking, &rt.DefaultRate)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.RoomType{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RoomType{}, domain.ErrRoomTypeNotFound
		}
		return domain.RoomType{}, fmt.Errorf("get room type: %w", err)
	}
	return rt, nil
}
