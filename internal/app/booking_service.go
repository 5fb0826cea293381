package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/clock"
	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

// InventoryStore is the inventory write surface the coordinator needs.
// WithTx spans every repository sharing the same pool, so one closure
// covers inventory and ledger writes atomically.
type InventoryStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ReadRange(ctx context.Context, hotelID, roomTypeID string, from, to domain.Date) ([]domain.InventoryCell, error)
	ApplyDelta(ctx context.Context, cells []domain.InventoryCell, delta int) error
}

// ReservationLedger is the reservation persistence surface.
type ReservationLedger interface {
	Insert(ctx context.Context, res domain.Reservation) error
	Get(ctx context.Context, id string) (domain.Reservation, error)
	FindByIdempotencyKey(ctx context.Context, hotelID, key string) (*domain.Reservation, error)
	TransitionState(ctx context.Context, id string, from, to domain.ReservationState, cancelReason string, clearPendingTTL bool, audit domain.AuditEntry) error
	UpdateStay(ctx context.Context, expected domain.ReservationState, res domain.Reservation, audit domain.AuditEntry) error
	ListHoldingCovering(ctx context.Context, hotelID, roomTypeID string, d domain.Date) ([]domain.Reservation, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error)
}

type HotelDirectory interface {
	GetHotel(ctx context.Context, id string) (domain.Hotel, error)
	GetRoomType(ctx context.Context, hotelID, roomTypeID string) (domain.RoomType, error)
}

// BookingService is the coordinator: the only component that mutates
// inventory and the ledger together. Every commit runs in one storage
// transaction with versioned compare-and-set on each touched cell;
// lost races are retried from a fresh read within a bounded budget.
type BookingService struct {
	inv    InventoryStore
	ledger ReservationLedger
	hotels HotelDirectory
	events EventPublisher
	clock  clock.Clock
	logger *log.Logger

	retryAttempts    int
	retryBackoff     time.Duration
	retryBackoffCap  time.Duration
	pendingTTL       time.Duration
	allowPastArrival bool
}

const (
	defaultRetryAttempts   = 5
	defaultRetryBackoff    = 5 * time.Millisecond
	defaultRetryBackoffCap = 40 * time.Millisecond
	defaultPendingTTL      = 30 * time.Minute
)

func NewBookingService(inv InventoryStore, ledger ReservationLedger, hotels HotelDirectory, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		inv:             inv,
		ledger:          ledger,
		hotels:          hotels,
		events:          NopPublisher{},
		clock:           clk,
		logger:          log.Default(),
		retryAttempts:   defaultRetryAttempts,
		retryBackoff:    defaultRetryBackoff,
		retryBackoffCap: defaultRetryBackoffCap,
		pendingTTL:      defaultPendingTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithRetryBudget overrides the version-conflict retry budget.
func WithRetryBudget(attempts int, backoff, cap time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
		if backoff > 0 {
			s.retryBackoff = backoff
		}
		if cap > 0 {
			s.retryBackoffCap = cap
		}
	}
}

// WithPendingTTL overrides how long an unconfirmed pending may hold
// inventory before the sweeper abandons it.
func WithPendingTTL(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.pendingTTL = d
		}
	}
}

func WithEventPublisher(p EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithLogger(l *log.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPastArrivals permits check-in dates before the hotel's current
// calendar date (backfill and migration traffic).
func WithPastArrivals(allow bool) BookingServiceOption {
	return func(s *BookingService) { s.allowPastArrival = allow }
}

type CreateBookingInput struct {
	HotelID    string
	RoomTypeID string
	CheckIn    domain.Date
	CheckOut   domain.Date
	// RateOverride, when set, replaces the base-rate snapshot with a
	// flat externally agreed nightly rate.
	RateOverride *int64
	// Currency, when set, overrides the hotel's default currency on the
	// reservation record.
	Currency          string
	IdempotencyKey    string
	Source            string
	ExternalReference string
	GuestRef          string
	Guests            domain.GuestCount
}

type CreateBookingResult struct {
	Reservation domain.Reservation
	// Duplicate is true when the idempotency key had already produced a
	// reservation; the prior record is returned untouched.
	Duplicate bool
}

func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (CreateBookingResult, error) {
	if in.IdempotencyKey == "" {
		return CreateBookingResult{}, domain.ErrIdempotencyKeyRequired
	}
	if domain.Nights(in.CheckIn, in.CheckOut) < 1 {
		return CreateBookingResult{}, domain.ErrInvalidStayDates
	}
	if in.Source == "" {
		in.Source = "internal"
	}

	hotel, err := s.hotels.GetHotel(ctx, in.HotelID)
	if err != nil {
		return CreateBookingResult{}, err
	}
	if _, err := s.hotels.GetRoomType(ctx, in.HotelID, in.RoomTypeID); err != nil {
		return CreateBookingResult{}, err
	}
	if !s.allowPastArrival {
		today := domain.Today(s.clock.Now(), hotel.Location())
		if in.CheckIn.Before(today) {
			return CreateBookingResult{}, domain.ErrArrivalInPast
		}
	}

	var out CreateBookingResult
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		err := s.inv.WithTx(ctx, func(txCtx context.Context) error {
			return s.createAttempt(txCtx, hotel, in, &out)
		})
		if err == nil {
			if !out.Duplicate {
				s.publish(ctx, EventReservationCreated, out.Reservation)
			}
			return out, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return CreateBookingResult{}, err
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return CreateBookingResult{}, err
		}
	}
	s.logger.Printf("WARN: create booking hotel=%s type=%s exhausted %d attempts", in.HotelID, in.RoomTypeID, s.retryAttempts)
	return CreateBookingResult{}, domain.ErrConflictExhausted
}

func (s *BookingService) createAttempt(ctx context.Context, hotel domain.Hotel, in CreateBookingInput, out *CreateBookingResult) error {
	existing, err := s.ledger.FindByIdempotencyKey(ctx, in.HotelID, in.IdempotencyKey)
	if err != nil {
		return err
	}
	if existing != nil {
		if !sameStay(*existing, in) {
			return domain.ErrIdempotencyConflict
		}
		*out = CreateBookingResult{Reservation: *existing, Duplicate: true}
		return nil
	}

	cells, err := s.inv.ReadRange(ctx, in.HotelID, in.RoomTypeID, in.CheckIn, in.CheckOut)
	if err != nil {
		return err
	}
	verdict := domain.EvaluateStay(cells, in.CheckIn, in.CheckOut, 1)
	if !verdict.Bookable {
		return &domain.NotAvailableError{Offending: verdict.Offending}
	}

	rates := ratesOf(cells)
	if in.RateOverride != nil {
		for i := range rates {
			rates[i] = *in.RateOverride
		}
	}
	currency := hotel.Currency
	if in.Currency != "" {
		currency = in.Currency
	}

	now := s.clock.Now()
	expires := now.Add(s.pendingTTL)
	res := domain.Reservation{
		ID:                newID(),
		BookingNumber:     newBookingNumber(),
		HotelID:           in.HotelID,
		RoomTypeID:        in.RoomTypeID,
		CheckIn:           in.CheckIn,
		CheckOut:          in.CheckOut,
		State:             domain.StatePending,
		IdempotencyKey:    in.IdempotencyKey,
		Source:            in.Source,
		ExternalReference: in.ExternalReference,
		RateSnapshot:      rates,
		Currency:          currency,
		Guests:            in.Guests,
		GuestRef:          in.GuestRef,
		PendingExpiresAt:  &expires,
		AuditTrail: []domain.AuditEntry{{
			Timestamp: now,
			Actor:     in.Source,
			Operation: "create",
			NewValues: stayValues(in.RoomTypeID, in.CheckIn, in.CheckOut),
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.inv.ApplyDelta(ctx, cells, +1); err != nil {
		return err
	}
	if err := s.ledger.Insert(ctx, res); err != nil {
		// A concurrent create won the unique index race for this key.
		// Re-read so idempotent retries stay consistent.
		if errors.Is(err, domain.ErrIdempotencyConflict) {
			return domain.ErrVersionConflict
		}
		return err
	}

	*out = CreateBookingResult{Reservation: res}
	return nil
}

type ModifyBookingInput struct {
	RoomTypeID *string
	CheckIn    *domain.Date
	CheckOut   *domain.Date
	Guests     *domain.GuestCount
	// Rate, when set, re-snapshots every night of the amended stay at a
	// flat externally agreed rate.
	Rate   *int64
	Actor  string
	Reason string
}

// ModifyBooking moves a pending or confirmed stay to new dates and/or
// room type. Released nights never fail availability; acquired nights
// are gated exactly like a create. The swap is all-or-nothing.
func (s *BookingService) ModifyBooking(ctx context.Context, id string, in ModifyBookingInput) (domain.Reservation, error) {
	var out domain.Reservation
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		err := s.inv.WithTx(ctx, func(txCtx context.Context) error {
			return s.modifyAttempt(txCtx, id, in, &out)
		})
		if err == nil {
			s.publish(ctx, EventReservationModified, out)
			return out, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return domain.Reservation{}, err
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return domain.Reservation{}, err
		}
	}
	s.logger.Printf("WARN: modify booking id=%s exhausted %d attempts", id, s.retryAttempts)
	return domain.Reservation{}, domain.ErrConflictExhausted
}

func (s *BookingService) modifyAttempt(ctx context.Context, id string, in ModifyBookingInput, out *domain.Reservation) error {
	res, err := s.ledger.Get(ctx, id)
	if err != nil {
		return err
	}
	if res.State != domain.StatePending && res.State != domain.StateConfirmed {
		return &domain.InvalidStateError{ReservationID: id, Current: res.State}
	}

	newType := res.RoomTypeID
	if in.RoomTypeID != nil && *in.RoomTypeID != "" {
		newType = *in.RoomTypeID
	}
	newFrom, newTo := res.CheckIn, res.CheckOut
	if in.CheckIn != nil {
		newFrom = *in.CheckIn
	}
	if in.CheckOut != nil {
		newTo = *in.CheckOut
	}
	if domain.Nights(newFrom, newTo) < 1 {
		return domain.ErrInvalidStayDates
	}

	typeChanged := newType != res.RoomTypeID
	if typeChanged {
		if _, err := s.hotels.GetRoomType(ctx, res.HotelID, newType); err != nil {
			return err
		}
	}

	// A date already covered by the same room type stays held across
	// the modification and is exempt from availability and
	// restrictions.
	held := func(d domain.Date) bool {
		return !typeChanged && res.Covers(d)
	}

	newCells, err := s.inv.ReadRange(ctx, res.HotelID, newType, newFrom, newTo)
	if err != nil {
		return err
	}
	verdict := domain.EvaluateAcquisition(newCells, newFrom, newTo, 1, held)
	if !verdict.Bookable {
		return &domain.NotAvailableError{Offending: verdict.Offending}
	}

	acquire := make([]domain.InventoryCell, 0, len(newCells))
	for _, cell := range newCells {
		if !held(cell.Date) {
			acquire = append(acquire, cell)
		}
	}

	var release []domain.InventoryCell
	if typeChanged || newFrom != res.CheckIn || newTo != res.CheckOut {
		oldCells, err := s.inv.ReadRange(ctx, res.HotelID, res.RoomTypeID, res.CheckIn, res.CheckOut)
		if err != nil {
			return err
		}
		for _, cell := range oldCells {
			kept := !typeChanged && !cell.Date.Before(newFrom) && cell.Date.Before(newTo)
			if !kept {
				release = append(release, cell)
			}
		}
	}

	if len(release) > 0 {
		if err := s.inv.ApplyDelta(ctx, release, -1); err != nil {
			return err
		}
	}
	if len(acquire) > 0 {
		if err := s.inv.ApplyDelta(ctx, acquire, +1); err != nil {
			return err
		}
	}

	rates := make([]int64, 0, len(newCells))
	for _, cell := range newCells {
		if in.Rate != nil {
			rates = append(rates, *in.Rate)
			continue
		}
		if held(cell.Date) {
			rates = append(rates, res.RateSnapshot[domain.Nights(res.CheckIn, cell.Date)])
			continue
		}
		rates = append(rates, cell.BaseRate)
	}

	updated := res
	updated.RoomTypeID = newType
	updated.CheckIn = newFrom
	updated.CheckOut = newTo
	updated.RateSnapshot = rates
	if in.Guests != nil {
		updated.Guests = *in.Guests
	}

	audit := domain.AuditEntry{
		Timestamp: s.clock.Now(),
		Actor:     actorOrSource(in.Actor, res.Source),
		Operation: "modify",
		OldValues: stayValues(res.RoomTypeID, res.CheckIn, res.CheckOut),
		NewValues: stayValues(newType, newFrom, newTo),
		Reason:    in.Reason,
	}
	if err := s.ledger.UpdateStay(ctx, res.State, updated, audit); err != nil {
		return err
	}
	updated.AuditTrail = append(updated.AuditTrail, audit)
	updated.UpdatedAt = audit.Timestamp

	*out = updated
	return nil
}

type CancelBookingResult struct {
	Reservation domain.Reservation
	// AlreadyReleased is true when the reservation no longer held
	// inventory; cancelling again is a no-op, not an error.
	AlreadyReleased bool
}

func (s *BookingService) CancelBooking(ctx context.Context, id, actor, reason string) (CancelBookingResult, error) {
	var out CancelBookingResult
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		err := s.inv.WithTx(ctx, func(txCtx context.Context) error {
			return s.cancelAttempt(txCtx, id, actor, reason, &out)
		})
		if err == nil {
			if !out.AlreadyReleased {
				s.publish(ctx, EventReservationCancelled, out.Reservation)
			}
			return out, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return CancelBookingResult{}, err
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return CancelBookingResult{}, err
		}
	}
	s.logger.Printf("WARN: cancel booking id=%s exhausted %d attempts", id, s.retryAttempts)
	return CancelBookingResult{}, domain.ErrConflictExhausted
}

func (s *BookingService) cancelAttempt(ctx context.Context, id, actor, reason string, out *CancelBookingResult) error {
	res, err := s.ledger.Get(ctx, id)
	if err != nil {
		return err
	}
	if !res.State.Holding() {
		*out = CancelBookingResult{Reservation: res, AlreadyReleased: true}
		return nil
	}
	if !domain.CanTransition(res.State, domain.StateCancelled) {
		return &domain.InvalidStateError{ReservationID: id, Current: res.State, Requested: domain.StateCancelled}
	}

	cells, err := s.inv.ReadRange(ctx, res.HotelID, res.RoomTypeID, res.CheckIn, res.CheckOut)
	if err != nil {
		return err
	}
	if err := s.inv.ApplyDelta(ctx, cells, -1); err != nil {
		return err
	}

	audit := domain.AuditEntry{
		Timestamp: s.clock.Now(),
		Actor:     actorOrSource(actor, res.Source),
		Operation: "cancel",
		Reason:    reason,
	}
	if err := s.ledger.TransitionState(ctx, id, res.State, domain.StateCancelled, reason, true, audit); err != nil {
		return err
	}

	res.State = domain.StateCancelled
	res.CancelReason = reason
	res.AuditTrail = append(res.AuditTrail, audit)
	*out = CancelBookingResult{Reservation: res}
	return nil
}

// ConfirmBooking drives pending to confirmed and stops the abandonment
// clock. Inventory is already held by the pending, so nothing else
// moves.
func (s *BookingService) ConfirmBooking(ctx context.Context, id, actor string) (domain.Reservation, error) {
	return s.transition(ctx, id, domain.StatePending, domain.StateConfirmed, actor, "confirm", "", true, EventReservationConfirmed, false)
}

// CheckIn marks arrival; the stay keeps holding inventory.
func (s *BookingService) CheckIn(ctx context.Context, id, actor string) (domain.Reservation, error) {
	return s.transition(ctx, id, domain.StateConfirmed, domain.StateCheckedIn, actor, "check_in", "", false, EventReservationCheckedIn, false)
}

// CheckOut ends the stay. Nights from today onward are released; past
// nights remain counted historically.
func (s *BookingService) CheckOut(ctx context.Context, id, actor string) (domain.Reservation, error) {
	return s.transition(ctx, id, domain.StateCheckedIn, domain.StateCheckedOut, actor, "check_out", "", false, EventReservationCheckedOut, true)
}

// MarkNoShow records a guest who never arrived and releases the
// remaining nights.
func (s *BookingService) MarkNoShow(ctx context.Context, id, actor string) (domain.Reservation, error) {
	return s.transition(ctx, id, domain.StateConfirmed, domain.StateNoShow, actor, "no_show", "no show", false, EventReservationNoShow, true)
}

func (s *BookingService) transition(ctx context.Context, id string, from, to domain.ReservationState, actor, operation, reason string, clearTTL bool, eventType string, releaseFuture bool) (domain.Reservation, error) {
	var out domain.Reservation
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		err := s.inv.WithTx(ctx, func(txCtx context.Context) error {
			res, err := s.ledger.Get(txCtx, id)
			if err != nil {
				return err
			}

			if releaseFuture {
				hotel, err := s.hotels.GetHotel(txCtx, res.HotelID)
				if err != nil {
					return err
				}
				today := domain.Today(s.clock.Now(), hotel.Location())
				releaseFrom := res.CheckIn
				if today.After(releaseFrom) {
					releaseFrom = today
				}
				if releaseFrom.Before(res.CheckOut) {
					cells, err := s.inv.ReadRange(txCtx, res.HotelID, res.RoomTypeID, releaseFrom, res.CheckOut)
					if err != nil {
						return err
					}
					if err := s.inv.ApplyDelta(txCtx, cells, -1); err != nil {
						return err
					}
				}
			}

			audit := domain.AuditEntry{
				Timestamp: s.clock.Now(),
				Actor:     actorOrSource(actor, res.Source),
				Operation: operation,
				OldValues: map[string]any{"state": string(from)},
				NewValues: map[string]any{"state": string(to)},
				Reason:    reason,
			}
			if err := s.ledger.TransitionState(txCtx, id, from, to, "", clearTTL, audit); err != nil {
				return err
			}

			res.State = to
			res.AuditTrail = append(res.AuditTrail, audit)
			if clearTTL {
				res.PendingExpiresAt = nil
			}
			out = res
			return nil
		})
		if err == nil {
			s.publish(ctx, eventType, out)
			return out, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return domain.Reservation{}, err
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return domain.Reservation{}, err
		}
	}
	return domain.Reservation{}, domain.ErrConflictExhausted
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (domain.Reservation, error) {
	return s.ledger.Get(ctx, id)
}

// ListHoldingCovering is a reconciliation read: the reservations whose
// holding contributes to a cell's sold count.
func (s *BookingService) ListHoldingCovering(ctx context.Context, hotelID, roomTypeID string, d domain.Date) ([]domain.Reservation, error) {
	return s.ledger.ListHoldingCovering(ctx, hotelID, roomTypeID, d)
}

func (s *BookingService) publish(ctx context.Context, eventType string, res domain.Reservation) {
	ev := reservationEvent(eventType, res, s.clock.Now())
	if err := s.events.PublishReservationEvent(ctx, ev); err != nil {
		s.logger.Printf("WARN: publish %s for reservation %s: %v", eventType, res.ID, err)
	}
}

func (s *BookingService) backoff(ctx context.Context, attempt int) error {
	d := s.retryBackoff << attempt
	if d > s.retryBackoffCap {
		d = s.retryBackoffCap
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sameStay(existing domain.Reservation, in CreateBookingInput) bool {
	return existing.RoomTypeID == in.RoomTypeID &&
		existing.CheckIn == in.CheckIn &&
		existing.CheckOut == in.CheckOut
}

func ratesOf(cells []domain.InventoryCell) []int64 {
	rates := make([]int64, 0, len(cells))
	for _, cell := range cells {
		rates = append(rates, cell.BaseRate)
	}
	return rates
}

func stayValues(roomTypeID string, from, to domain.Date) map[string]any {
	return map[string]any{
		"room_type_id": roomTypeID,
		"check_in":     from.String(),
		"check_out":    to.String(),
	}
}

func actorOrSource(actor, source string) string {
	if actor != "" {
		return actor
	}
	if source != "" {
		return source
	}
	return "internal"
}
