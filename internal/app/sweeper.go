package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/domain"
)

const sweepBatchSize = 100

// SweepAbandoned releases pendings whose TTL expired before anyone
// confirmed them: inventory is handed back and the reservation moves to
// cancelled(reason=abandoned), which frees its idempotency key for a
// fresh attempt. Returns how many reservations were swept.
func (s *BookingService) SweepAbandoned(ctx context.Context) (int, error) {
	expired, err := s.ledger.ListExpiredPending(ctx, s.clock.Now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, res := range expired {
		if err := s.sweepOne(ctx, res.ID); err != nil {
			// A concurrent confirm or cancel got there first; leave it.
			var stateErr *domain.InvalidStateError
			if errors.Is(err, domain.ErrVersionConflict) || errors.As(err, &stateErr) {
				continue
			}
			return swept, err
		}
		swept++
	}
	return swept, nil
}

func (s *BookingService) sweepOne(ctx context.Context, id string) error {
	return s.inv.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.ledger.Get(txCtx, id)
		if err != nil {
			return err
		}
		if res.State != domain.StatePending {
			return &domain.InvalidStateError{ReservationID: id, Current: res.State, Requested: domain.StateCancelled}
		}
		if res.PendingExpiresAt == nil || res.PendingExpiresAt.After(s.clock.Now()) {
			return &domain.InvalidStateError{ReservationID: id, Current: res.State, Requested: domain.StateCancelled}
		}

		cells, err := s.inv.ReadRange(txCtx, res.HotelID, res.RoomTypeID, res.CheckIn, res.CheckOut)
		if err != nil {
			return err
		}
		if err := s.inv.ApplyDelta(txCtx, cells, -1); err != nil {
			return err
		}

		audit := domain.AuditEntry{
			Timestamp: s.clock.Now(),
			Actor:     "sweeper",
			Operation: "cancel",
			Reason:    domain.CancelReasonAbandoned,
		}
		return s.ledger.TransitionState(txCtx, id, domain.StatePending, domain.StateCancelled, domain.CancelReasonAbandoned, true, audit)
	})
}

// Sweeper periodically abandons expired pendings.
type Sweeper struct {
	bookings *BookingService
	interval time.Duration
	logger   *log.Logger
}

func NewSweeper(bookings *BookingService, interval time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{bookings: bookings, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := s.bookings.SweepAbandoned(ctx)
			if err != nil {
				s.logger.Printf("WARN: sweep abandoned pendings: %v", err)
				continue
			}
			if swept > 0 {
				s.logger.Printf("swept %d abandoned pending reservations", swept)
			}
		}
	}
}
