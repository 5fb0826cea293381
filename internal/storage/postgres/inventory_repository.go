package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

// InventoryRepository persists inventory cells with optimistic
// concurrency: every write bumps the cell version and carries the
// version the caller read.
type InventoryRepository struct {
	pool DBPool
}

func NewInventoryRepository(pool DBPool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

func (r *InventoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const cellColumns = `hotel_id, room_type_id, stay_date, total_rooms, sold_rooms, blocked_rooms, base_rate,
stop_sell, closed_to_arrival, closed_to_departure, min_length_of_stay, max_length_of_stay,
overbooking_allowance, version`

// ReadRange returns one cell per date in [from, to), ordered by date.
// Dates never written are synthesized from the room type's defaults
// with Version 0, so a later write can tell "insert" from "update".
func (r *InventoryRepository) ReadRange(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date) ([]domain.InventoryCell, error) {
	rt, err := r.roomTypeDefaults(ctx, hotelID, roomTypeID)
	if err != nil {
		return nil, err
	}

	q := `SELECT ` + cellColumns + `
FROM inventory_cells
WHERE hotel_id = $1 AND room_type_id = $2 AND stay_date >= $3 AND stay_date < $4
ORDER BY stay_date`

	rows, err := query(ctx, r.pool, q, hotelID, roomTypeID, from.Time(), to.Time())
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("read inventory range: %w", err)
	}
	defer rows.Close()

	existing := make(map[domain.Date]domain.InventoryCell)
	for rows.Next() {
		cell, err := scanCell(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory cell: %w", err)
		}
		existing[cell.Date] = cell
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("read inventory range: %w", err)
	}

	out := make([]domain.InventoryCell, 0, domain.Nights(from, to))
	for _, d := range domain.DatesIn(from, to) {
		if cell, ok := existing[d]; ok {
			out = append(out, cell)
			continue
		}
		out = append(out, domain.InventoryCell{
			HotelID:              hotelID,
			RoomTypeID:           roomTypeID,
			Date:                 d,
			TotalRooms:           rt.DefaultCapacity,
			BaseRate:             rt.DefaultRate,
			OverbookingAllowance: rt.DefaultOverbooking,
			Restrictions:         domain.Restrictions{MinLengthOfStay: 1},
			Version:              0,
		})
	}
	return out, nil
}

// ApplyDelta adds delta to the sold count of every cell, compare-and-set
// on the version each snapshot carries. Any version mismatch returns
// domain.ErrVersionConflict and, since callers run inside WithTx, rolls
// the whole mutation back. A release that would drive a sold count
// negative fails with domain.ErrInventoryUnderflow regardless of
// version.
func (r *InventoryRepository) ApplyDelta(ctx context.Context, cells []domain.InventoryCell, delta int) error {
	for _, cell := range cells {
		if cell.Version == 0 {
			if err := r.insertCell(ctx, cell, delta); err != nil {
				return err
			}
			continue
		}
		if err := r.updateCell(ctx, cell, delta); err != nil {
			return err
		}
	}
	return nil
}

func (r *InventoryRepository) insertCell(ctx context.Context, cell domain.InventoryCell, delta int) error {
	if delta < 0 {
		return domain.ErrInventoryUnderflow
	}

	const stmt = `
INSERT INTO inventory_cells (hotel_id, room_type_id, stay_date, total_rooms, sold_rooms, blocked_rooms,
	base_rate, stop_sell, closed_to_arrival, closed_to_departure, min_length_of_stay, max_length_of_stay,
	overbooking_allowance, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
ON CONFLICT (hotel_id, room_type_id, stay_date) DO NOTHING`

	tag, err := exec(ctx, r.pool, stmt,
		cell.HotelID, cell.RoomTypeID, cell.Date.Time(),
		cell.TotalRooms, delta, cell.BlockedRooms, cell.BaseRate,
		cell.Restrictions.StopSell, cell.Restrictions.ClosedToArrival, cell.Restrictions.ClosedToDeparture,
		minLOS(cell.Restrictions.MinLengthOfStay), cell.Restrictions.MaxLengthOfStay,
		cell.OverbookingAllowance,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert inventory cell %s: %w", cell.Date, err)
	}
	if tag.RowsAffected() == 0 {
		// The cell materialized since the read: the snapshot is stale.
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *InventoryRepository) updateCell(ctx context.Context, cell domain.InventoryCell, delta int) error {
	const stmt = `
UPDATE inventory_cells
SET sold_rooms = sold_rooms + $5, version = version + 1, updated_at = NOW()
WHERE hotel_id = $1 AND room_type_id = $2 AND stay_date = $3 AND version = $4 AND sold_rooms + $5 >= 0`

	tag, err := exec(ctx, r.pool, stmt, cell.HotelID, cell.RoomTypeID, cell.Date.Time(), cell.Version, delta)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update inventory cell %s: %w", cell.Date, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing matched: tell a lost version race apart from underflow.
	var version int64
	var sold int
	err = queryRow(ctx, r.pool, `
SELECT version, sold_rooms FROM inventory_cells
WHERE hotel_id = $1 AND room_type_id = $2 AND stay_date = $3`,
		cell.HotelID, cell.RoomTypeID, cell.Date.Time(),
	).Scan(&version, &sold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("diagnose inventory cell %s: %w", cell.Date, err)
	}
	if version == cell.Version && sold+delta < 0 {
		return domain.ErrInventoryUnderflow
	}
	return domain.ErrVersionConflict
}

// SetRestrictions applies an administrative restrictions patch to every
// date in [from, to), materializing missing cells from the room type's
// defaults. It never touches sold counts.
func (r *InventoryRepository) SetRestrictions(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.RestrictionsPatch) error {
	return r.patchRange(ctx, hotelID, roomTypeID, from, to, func(cell *domain.InventoryCell) {
		cell.Restrictions = patch.Apply(cell.Restrictions)
	})
}

// SetCapacity applies an administrative capacity patch (total, blocked,
// rate, overbooking allowance) to every date in [from, to).
func (r *InventoryRepository) SetCapacity(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, patch domain.CapacityPatch) error {
	return r.patchRange(ctx, hotelID, roomTypeID, from, to, func(cell *domain.InventoryCell) {
		if patch.TotalRooms != nil {
			cell.TotalRooms = *patch.TotalRooms
		}
		if patch.BlockedRooms != nil {
			cell.BlockedRooms = *patch.BlockedRooms
		}
		if patch.BaseRate != nil {
			cell.BaseRate = *patch.BaseRate
		}
		if patch.OverbookingAllowance != nil {
			cell.OverbookingAllowance = *patch.OverbookingAllowance
		}
	})
}

func (r *InventoryRepository) patchRange(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date, apply func(*domain.InventoryCell)) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		cells, err := r.ReadRange(txCtx, hotelID, roomTypeID, from, to)
		if err != nil {
			return err
		}
		for _, cell := range cells {
			if cell.Version == 0 {
				// Materialize with defaults first so the patch below is a
				// plain update.
				if err := r.insertCell(txCtx, cell, 0); err != nil {
					return err
				}
				cell.Version = 1
			}
			patched := cell
			apply(&patched)

			const stmt = `
UPDATE inventory_cells
SET total_rooms = $4, blocked_rooms = $5, base_rate = $6,
	stop_sell = $7, closed_to_arrival = $8, closed_to_departure = $9,
	min_length_of_stay = $10, max_length_of_stay = $11, overbooking_allowance = $12,
	version = version + 1, updated_at = NOW()
WHERE hotel_id = $1 AND room_type_id = $2 AND stay_date = $3`

			if _, err := exec(txCtx, r.pool, stmt,
				hotelID, roomTypeID, cell.Date.Time(),
				patched.TotalRooms, patched.BlockedRooms, patched.BaseRate,
				patched.Restrictions.StopSell, patched.Restrictions.ClosedToArrival, patched.Restrictions.ClosedToDeparture,
				minLOS(patched.Restrictions.MinLengthOfStay), patched.Restrictions.MaxLengthOfStay,
				patched.OverbookingAllowance,
			); err != nil {
				return fmt.Errorf("patch inventory cell %s: %w", cell.Date, err)
			}
		}
		return nil
	})
}

func (r *InventoryRepository) roomTypeDefaults(ctx context.Context, hotelID, roomTypeID string) (domain.RoomType, error) {
	const query = `SELECT id, hotel_id, name, default_capacity, default_overbooking, default_rate
FROM room_types WHERE id = $1 AND hotel_id = $2`

	var rt domain.RoomType
	err := queryRow(ctx, r.pool, query, roomTypeID, hotelID).
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

type cellScanner interface {
	Scan(dest ...any) error
}

func scanCell(row cellScanner) (domain.InventoryCell, error) {
	var cell domain.InventoryCell
	var stayDate time.Time
	err := row.Scan(
		&cell.HotelID, &cell.RoomTypeID, &stayDate,
		&cell.TotalRooms, &cell.SoldRooms, &cell.BlockedRooms, &cell.BaseRate,
		&cell.Restrictions.StopSell, &cell.Restrictions.ClosedToArrival, &cell.Restrictions.ClosedToDeparture,
		&cell.Restrictions.MinLengthOfStay, &cell.Restrictions.MaxLengthOfStay,
		&cell.OverbookingAllowance, &cell.Version,
	)
	if err != nil {
		return domain.InventoryCell{}, err
	}
	cell.Date = domain.DateOf(stayDate)
	return cell, nil
}

func minLOS(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
