package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// CancelPolicy decides whether a booking may still be cancelled given the
// current time and the run's departure.  Returning a non-nil error (it
// should wrap ErrCancellationNotAllowed) blocks the cancellation.
type CancelPolicy func(now, departure time.Time) error

// DepartureCutoff allows cancellation only until cutoff before departure.
// A zero cutoff permits cancelling right up to (but not after) departure.
func DepartureCutoff(cutoff time.Duration) CancelPolicy {
	return func(now, departure time.Time) error {
		if !now.Before(departure.Add(-cutoff)) {
			return fmt.Errorf("%w: within %s of departure", ErrCancellationNotAllowed, cutoff)
		}
		return nil
	}
}

// Canceller reverses a confirmed booking back to available inventory:
// booking CONFIRMED→CANCELLED, payment PAID→REFUNDED and every booked
// seat back to AVAILABLE, all in one atomic transaction.
type Canceller struct {
	store  Store
	locks  *RunLocks
	clock  Clock
	policy CancelPolicy
}

// NewCanceller constructs a Canceller with the given cancellation policy.
func NewCanceller(store Store, locks *RunLocks, clock Clock, policy CancelPolicy) *Canceller {
	if store == nil || locks == nil || clock == nil || policy == nil {
		panic("nil dependency passed to NewCanceller")
	}
	return &Canceller{store: store, locks: locks, clock: clock, policy: policy}
}

// CancelBooking cancels the booking identified by its reference.  admin
// callers bypass the ownership check.  Cancelling an already-cancelled
// booking reports ErrAlreadyCancelled without changing any state.
func (c *Canceller) CancelBooking(ctx context.Context, ref string, userID uint64, admin bool) (*model.Booking, error) {
	b, err := c.store.BookingByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !admin && b.UserID != userID {
		return nil, fmt.Errorf("%w: booking %s", ErrForbidden, ref)
	}

	unlock := c.locks.Lock(b.TrainRunID)
	defer unlock()

	var cancelled *model.Booking
	err = withTxRetry(ctx, c.store, func(tx Tx) error {
		bb, err := tx.BookingByRefForUpdate(ctx, ref)
		if err != nil {
			return err
		}
		if bb.Status == model.BookingCancelled {
			return fmt.Errorf("%w: booking %s", ErrAlreadyCancelled, ref)
		}

		departure, err := tx.TrainRunDeparture(ctx, bb.TrainRunID)
		if err != nil {
			return err
		}
		now := c.clock.Now()
		if err := c.policy(now, departure); err != nil {
			return err
		}

		seatIDs, err := tx.BookingSeatIDs(ctx, bb.ID)
		if err != nil {
			return err
		}
		n, err := tx.FreeBookedSeats(ctx, seatIDs)
		if err != nil {
			return err
		}
		if n != int64(len(seatIDs)) {
			return fmt.Errorf("%w: freed %d of %d seats", ErrSeatConflict, n, len(seatIDs))
		}
		if err := tx.MarkBookingCancelled(ctx, bb.ID, now); err != nil {
			return err
		}
		if err := tx.AdjustAvailableSeats(ctx, bb.TrainRunID, len(seatIDs)); err != nil {
			return err
		}

		bb.Status = model.BookingCancelled
		bb.PaymentStatus = model.PaymentRefunded
		bb.CancellationTime = &now
		cancelled = bb
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}
