package booking

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// Tx is the transactional view of the seat inventory store.  Every method
// runs inside the single atomic transaction opened by Store.WithinTx.
// Status-changing methods are named after the legal seat state machine
// edges and are guarded by the expected current status: they report how
// many rows actually transitioned so the engine can abort on a conflict
// instead of overwriting.
type Tx interface {
	// SeatsForUpdate loads the given seats of a train run with an
	// exclusive write intent.  Seats not belonging to the run are simply
	// absent from the result.
	SeatsForUpdate(ctx context.Context, trainRunID uint64, seatIDs []uint64) ([]model.Seat, error)

	// SeatsByHoldForUpdate loads all seats currently referencing the
	// hold, locked, ordered by coach and seat number.
	SeatsByHoldForUpdate(ctx context.Context, holdID uint64) ([]model.Seat, error)

	// ClaimSeats transitions the given seats AVAILABLE→HELD and stamps
	// them with the hold id.  Returns the number of rows transitioned.
	ClaimSeats(ctx context.Context, seatIDs []uint64, holdID uint64) (int64, error)

	// FreeHeldSeats transitions all seats HELD by the given hold back to
	// AVAILABLE and clears their hold reference.
	FreeHeldSeats(ctx context.Context, holdID uint64) (int64, error)

	// BookSeats transitions all seats HELD by the given hold to BOOKED.
	// The hold reference is kept on the row for traceability.
	BookSeats(ctx context.Context, holdID uint64) (int64, error)

	// FreeBookedSeats transitions the given BOOKED seats back to
	// AVAILABLE and clears their hold reference.
	FreeBookedSeats(ctx context.Context, seatIDs []uint64) (int64, error)

	// InsertHold persists a new hold together with its seat set and
	// populates the generated ID.
	InsertHold(ctx context.Context, h *model.SeatHold) error

	// HoldForUpdate loads a hold with an exclusive write intent.
	// Returns ErrHoldNotFound when no such hold exists.
	HoldForUpdate(ctx context.Context, holdID uint64) (*model.SeatHold, error)

	// UpdateHoldStatus transitions a hold from one status to another.
	// It reports false when the hold was not in the expected status,
	// which makes concurrent expiry, release and consumption idempotent.
	UpdateHoldStatus(ctx context.Context, holdID uint64, from, to model.HoldStatus) (bool, error)

	// DueHolds returns up to limit ACTIVE holds whose expiry has passed,
	// locked for update, for the reaper sweep.
	DueHolds(ctx context.Context, cutoff time.Time, limit int) ([]model.SeatHold, error)

	// InsertBooking persists a booking and its seat assignments in one
	// unit and populates the generated IDs.  A duplicate booking
	// reference fails the insert (and therefore the transaction).
	InsertBooking(ctx context.Context, b *model.Booking, seats []model.BookingSeat) error

	// BookingByRefForUpdate loads a booking by its reference, locked.
	// Returns ErrBookingNotFound when no such booking exists.
	BookingByRefForUpdate(ctx context.Context, ref string) (*model.Booking, error)

	// MarkBookingCancelled sets status CANCELLED, payment REFUNDED and
	// the cancellation timestamp.
	MarkBookingCancelled(ctx context.Context, bookingID uint64, at time.Time) error

	// BookingSeatIDs returns the seat ids referenced by a booking's
	// booking_seats rows.
	BookingSeatIDs(ctx context.Context, bookingID uint64) ([]uint64, error)

	// TrainRunDeparture returns the departure timestamp of a run, in UTC.
	TrainRunDeparture(ctx context.Context, trainRunID uint64) (time.Time, error)

	// AdjustAvailableSeats moves the run's denormalized available-seat
	// counter by delta (negative when seats are booked).
	AdjustAvailableSeats(ctx context.Context, trainRunID uint64, delta int) error
}

// Store is the durable seat inventory store.  WithinTx runs fn inside a
// single atomic transaction: if fn returns an error the transaction is
// rolled back and no partial state is observable.  Implementations map
// transient conflicts (deadlock, lock wait timeout) to ErrTxConflict.
// The plain readers exist for pre-lock lookups and never block writers.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// HoldByID is a lock-free snapshot read of a hold.
	HoldByID(ctx context.Context, holdID uint64) (*model.SeatHold, error)

	// BookingByRef is a lock-free snapshot read of a booking.
	BookingByRef(ctx context.Context, ref string) (*model.Booking, error)
}

// withTxRetry runs fn in a transaction, retrying exactly once with a
// short backoff when the storage layer reports a transient conflict.
// More than one retry risks masking a double charge, so the second
// failure surfaces to the caller.
func withTxRetry(ctx context.Context, store Store, fn func(tx Tx) error) error {
	err := store.WithinTx(ctx, fn)
	if !errors.Is(err, ErrTxConflict) {
		return err
	}
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	return store.WithinTx(ctx, fn)
}
