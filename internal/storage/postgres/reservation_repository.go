package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

// ReservationRepository is the append-only reservation ledger. State
// changes are compare-and-set on the current state and every mutation
// appends an audit entry; past entries are never rewritten.
type ReservationRepository struct {
	pool DBPool
}

func NewReservationRepository(pool DBPool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const reservationColumns = `id, booking_number, hotel_id, room_type_id, check_in, check_out, state,
idempotency_key, source, external_reference, rate_snapshot, currency, adults, children, guest_ref,
cancel_reason, pending_expires_at, audit_trail, created_at, updated_at`

func (r *ReservationRepository) Insert(ctx context.Context, res domain.Reservation) error {
	audit, err := marshalAudit(res.AuditTrail)
	if err != nil {
		return err
	}

	const stmt = `
INSERT INTO reservations (id, booking_number, hotel_id, room_type_id, check_in, check_out, state,
	idempotency_key, source, external_reference, rate_snapshot, currency, adults, children, guest_ref,
	cancel_reason, pending_expires_at, audit_trail, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)`

	_, err = exec(ctx, r.pool, stmt,
		res.ID, res.BookingNumber, res.HotelID, res.RoomTypeID,
		res.CheckIn.Time(), res.CheckOut.Time(), string(res.State),
		res.IdempotencyKey, res.Source, res.ExternalReference,
		res.RateSnapshot, res.Currency, res.Guests.Adults, res.Guests.Children, res.GuestRef,
		res.CancelReason, res.PendingExpiresAt, audit, res.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, id string) (domain.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := scanReservation(queryRow(ctx, r.pool, q, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// FindByIdempotencyKey returns the reservation bound to (hotel, key),
// or nil when no binding exists. Abandoned pendings do not count: their
// key is free for reuse.
func (r *ReservationRepository) FindByIdempotencyKey(ctx context.Context, hotelID, key string) (*domain.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
FROM reservations
WHERE hotel_id = $1 AND idempotency_key = $2 AND cancel_reason <> $3`

	res, err := scanReservation(queryRow(ctx, r.pool, q, hotelID, key, domain.CancelReasonAbandoned))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find reservation by idempotency key: %w", err)
	}
	return &res, nil
}

// TransitionState compare-and-sets the reservation's state and appends
// the audit entry. When the current state differs from expected it
// fails with InvalidStateError carrying the actual state.
func (r *ReservationRepository) TransitionState(ctx context.Context, id string, from, to domain.ReservationState, cancelReason string, clearPendingTTL bool, audit domain.AuditEntry) error {
	entry, err := marshalAudit([]domain.AuditEntry{audit})
	if err != nil {
		return err
	}

	const stmt = `
UPDATE reservations
SET state = $3,
	cancel_reason = CASE WHEN $4 <> '' THEN $4 ELSE cancel_reason END,
	pending_expires_at = CASE WHEN $5 THEN NULL ELSE pending_expires_at END,
	audit_trail = audit_trail || $6::jsonb,
	updated_at = NOW()
WHERE id = $1 AND state = $2`

	tag, err := exec(ctx, r.pool, stmt, id, string(from), string(to), cancelReason, clearPendingTTL, entry)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("transition reservation: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = queryRow(ctx, r.pool, `SELECT state FROM reservations WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrReservationNotFound
		}
		return fmt.Errorf("read reservation state: %w", err)
	}
	return &domain.InvalidStateError{
		ReservationID: id,
		Current:       domain.ReservationState(current),
		Requested:     to,
	}
}

// UpdateStay rewrites the stay fields of res (dates, room type, rates,
// guests) compare-and-set on the expected state, appending the audit
// entry. A zero row count means the state moved underneath the caller
// and is reported as a version conflict so the coordinator re-reads.
func (r *ReservationRepository) UpdateStay(ctx context.Context, expected domain.ReservationState, res domain.Reservation, audit domain.AuditEntry) error {
	entry, err := marshalAudit([]domain.AuditEntry{audit})
	if err != nil {
		return err
	}

	const stmt = `
UPDATE reservations
SET room_type_id = $3, check_in = $4, check_out = $5, rate_snapshot = $6,
	adults = $7, children = $8,
	audit_trail = audit_trail || $9::jsonb,
	updated_at = NOW()
WHERE id = $1 AND state = $2`

	tag, err := exec(ctx, r.pool, stmt,
		res.ID, string(expected),
		res.RoomTypeID, res.CheckIn.Time(), res.CheckOut.Time(), res.RateSnapshot,
		res.Guests.Adults, res.Guests.Children, entry,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update reservation stay: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

// ListHoldingCovering is a diagnostic read: every reservation in a
// holding state whose stay covers the date.
func (r *ReservationRepository) ListHoldingCovering(ctx context.Context, hotelID, roomTypeID string, d domain.Date) ([]domain.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
FROM reservations
WHERE hotel_id = $1 AND room_type_id = $2
	AND check_in <= $3 AND check_out > $3
	AND state IN ('pending', 'confirmed', 'checked_in')
ORDER BY created_at`

	rows, err := query(ctx, r.pool, q, hotelID, roomTypeID, d.Time())
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list holding reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListExpiredPending returns pendings whose TTL elapsed before cutoff,
// oldest first, for the sweeper.
func (r *ReservationRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
	q := `SELECT ` + reservationColumns + `
FROM reservations
WHERE state = 'pending' AND pending_expires_at IS NOT NULL AND pending_expires_at < $1
ORDER BY pending_expires_at
LIMIT $2`

	rows, err := query(ctx, r.pool, q, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired pendings: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return out, nil
}

type reservationScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row reservationScanner) (domain.Reservation, error) {
	var res domain.Reservation
	var state string
	var checkIn, checkOut time.Time
	var audit []byte

	err := row.Scan(
		&res.ID, &res.BookingNumber, &res.HotelID, &res.RoomTypeID,
		&checkIn, &checkOut, &state,
		&res.IdempotencyKey, &res.Source, &res.ExternalReference,
		&res.RateSnapshot, &res.Currency, &res.Guests.Adults, &res.Guests.Children, &res.GuestRef,
		&res.CancelReason, &res.PendingExpiresAt, &audit, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}

	res.CheckIn = domain.DateOf(checkIn)
	res.CheckOut = domain.DateOf(checkOut)
	res.State = domain.ReservationState(state)
	if len(audit) > 0 {
		if err := json.Unmarshal(audit, &res.AuditTrail); err != nil {
			return domain.Reservation{}, fmt.Errorf("decode audit trail: %w", err)
		}
	}
	return res, nil
}

func marshalAudit(entries []domain.AuditEntry) ([]byte, error) {
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode audit trail: %w", err)
	}
	return b, nil
}
