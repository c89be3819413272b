package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/railway-seat-booking/internal/model"
	"github.com/iliyamo/railway-seat-booking/internal/payment"
)

// Coordinator converts a valid hold plus passenger and payment data into
// a committed booking, or rolls back cleanly.  The flow is: re-validate
// the hold under the run lock, charge the payment oracle with a bounded
// timeout, then commit seats HELD→BOOKED, hold ACTIVE→CONSUMED and the
// booking rows in one atomic transaction.
//
// Failure behavior: if validation fails the hold keeps its pre-attempt
// state.  If the oracle declines or times out, the hold is released and
// its seats freed so other users may claim them.  If the commit
// transaction fails it is rolled back wholesale, leaving the hold ACTIVE
// and usable again.
type Coordinator struct {
	store      Store
	oracle     payment.Oracle
	locks      *RunLocks
	clock      Clock
	payTimeout time.Duration
}

// NewCoordinator constructs a Coordinator.  payTimeout bounds the oracle
// call; exceeding it is treated as a decline, never as an open question.
func NewCoordinator(store Store, oracle payment.Oracle, locks *RunLocks, clock Clock, payTimeout time.Duration) *Coordinator {
	if store == nil || oracle == nil || locks == nil || clock == nil {
		panic("nil dependency passed to NewCoordinator")
	}
	return &Coordinator{store: store, oracle: oracle, locks: locks, clock: clock, payTimeout: payTimeout}
}

// Passenger is one traveller to be assigned a seat.
type Passenger struct {
	Name   string
	Age    *int
	Gender *string
}

// FinalizeInput carries the parameters of a booking request.
type FinalizeInput struct {
	HoldID          uint64
	UserID          uint64
	FromStationCode string
	ToStationCode   string
	JourneyDate     string
	Passengers      []Passenger
	PaymentMethod   string
}

// FinalizeBooking turns the hold into a confirmed booking.  Passengers
// are assigned to the held seats in coach/seat-number order.
func (co *Coordinator) FinalizeBooking(ctx context.Context, in FinalizeInput) (*model.Booking, error) {
	if len(in.Passengers) == 0 {
		return nil, fmt.Errorf("%w: no passengers", ErrInvalidRequest)
	}
	for _, p := range in.Passengers {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: passenger name is required", ErrInvalidRequest)
		}
	}

	h, err := co.store.HoldByID(ctx, in.HoldID)
	if err != nil {
		return nil, err
	}
	if h.UserID != in.UserID {
		return nil, fmt.Errorf("%w: hold %d", ErrForbidden, in.HoldID)
	}

	unlock := co.locks.Lock(h.TrainRunID)
	defer unlock()

	// Step 1: re-validate the hold and price the seats.  This
	// transaction only reads; a hold found to be stale is expired
	// afterwards in its own committed transaction, because an error
	// returned from the closure rolls every write back.
	var seats []model.Seat
	var total uint32
	var stale bool
	err = withTxRetry(ctx, co.store, func(tx Tx) error {
		seats, total, stale = nil, 0, false
		hh, err := tx.HoldForUpdate(ctx, in.HoldID)
		if err != nil {
			return err
		}
		switch hh.Status {
		case model.HoldActive:
			// fall through to the expiry check
		case model.HoldExpired:
			return fmt.Errorf("%w: hold %d", ErrHoldExpired, in.HoldID)
		default: // CONSUMED or RELEASED
			return fmt.Errorf("%w: hold %d is %s", ErrHoldNotFound, in.HoldID, hh.Status)
		}
		if !hh.ExpiresAt.After(co.clock.Now()) {
			stale = true
			return nil
		}
		if len(in.Passengers) != len(hh.SeatIDs) {
			return fmt.Errorf("%w: %d passengers for %d seats", ErrPassengerCount, len(in.Passengers), len(hh.SeatIDs))
		}

		seats, err = tx.SeatsByHoldForUpdate(ctx, in.HoldID)
		if err != nil {
			return err
		}
		if len(seats) != len(hh.SeatIDs) {
			return fmt.Errorf("%w: hold %d references %d seats, found %d held",
				ErrSeatConflict, in.HoldID, len(hh.SeatIDs), len(seats))
		}
		for _, s := range seats {
			if s.Status != model.SeatHeld {
				return fmt.Errorf("%w: seat %s/%s is %s", ErrSeatConflict, s.CoachNumber, s.SeatNumber, s.Status)
			}
			total += s.PriceCents
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stale {
		// Lazy expiry at point of use: the reaper has not swept this
		// hold yet, so free the seats here and now.
		if expErr := co.expireHold(ctx, in.HoldID); expErr != nil {
			log.Printf("booking: expire stale hold %d: %v", in.HoldID, expErr)
		}
		return nil, fmt.Errorf("%w: hold %d", ErrHoldExpired, in.HoldID)
	}

	// Step 2: charge the oracle.  The hold token doubles as the attempt
	// token: one hold, one charge attempt.
	payCtx, cancel := context.WithTimeout(ctx, co.payTimeout)
	res, payErr := co.oracle.Charge(payCtx, h.HoldToken, total, in.PaymentMethod)
	cancel()
	if payErr != nil || !res.Accepted {
		if relErr := co.releaseAfterPaymentFailure(ctx, in.HoldID); relErr != nil {
			log.Printf("booking: release after payment failure for hold %d: %v", in.HoldID, relErr)
		}
		if payErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentDeclined, payErr)
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, res.Reason)
	}

	// Step 3: commit.  All writes land in one transaction; any failure
	// rolls the whole unit back and the hold stays ACTIVE.
	var booking *model.Booking
	err = withTxRetry(ctx, co.store, func(tx Tx) error {
		ok, err := tx.UpdateHoldStatus(ctx, in.HoldID, model.HoldActive, model.HoldConsumed)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: hold %d no longer active", ErrSeatConflict, in.HoldID)
		}
		n, err := tx.BookSeats(ctx, in.HoldID)
		if err != nil {
			return err
		}
		if n != int64(len(seats)) {
			return fmt.Errorf("%w: booked %d of %d seats", ErrSeatConflict, n, len(seats))
		}

		now := co.clock.Now()
		ref, err := NewBookingRef(now)
		if err != nil {
			return err
		}
		b := &model.Booking{
			BookingRef:      ref,
			UserID:          in.UserID,
			TrainRunID:      h.TrainRunID,
			FromStationCode: in.FromStationCode,
			ToStationCode:   in.ToStationCode,
			JourneyDate:     in.JourneyDate,
			TotalCents:      total,
			NumPassengers:   len(in.Passengers),
			Status:          model.BookingConfirmed,
			PaymentStatus:   model.PaymentPaid,
			BookingTime:     now,
		}
		bs := make([]model.BookingSeat, 0, len(seats))
		for i, s := range seats {
			p := in.Passengers[i]
			bs = append(bs, model.BookingSeat{
				SeatID:          s.ID,
				PassengerName:   p.Name,
				PassengerAge:    p.Age,
				PassengerGender: p.Gender,
				PriceCents:      s.PriceCents,
			})
		}
		if err := tx.InsertBooking(ctx, b, bs); err != nil {
			return err
		}
		if err := tx.AdjustAvailableSeats(ctx, h.TrainRunID, -len(seats)); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// expireHold marks a stale hold EXPIRED and frees its seats.  Guarded
// transitions make it a no-op if the reaper or a concurrent release got
// there first.
func (co *Coordinator) expireHold(ctx context.Context, holdID uint64) error {
	return withTxRetry(ctx, co.store, func(tx Tx) error {
		ok, err := tx.UpdateHoldStatus(ctx, holdID, model.HoldActive, model.HoldExpired)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		_, err = tx.FreeHeldSeats(ctx, holdID)
		return err
	})
}

// releaseAfterPaymentFailure frees the hold's seats so other users can
// claim them.  Guarded transitions make it a no-op if the hold already
// left ACTIVE.
func (co *Coordinator) releaseAfterPaymentFailure(ctx context.Context, holdID uint64) error {
	return withTxRetry(ctx, co.store, func(tx Tx) error {
		ok, err := tx.UpdateHoldStatus(ctx, holdID, model.HoldActive, model.HoldReleased)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		_, err = tx.FreeHeldSeats(ctx, holdID)
		return err
	})
}
