// Package booking implements the seat inventory and booking transaction
// engine: time-boxed seat holds, finalization of holds into confirmed
// bookings, cancellation, and the background reaper that expires stale
// holds.  All mutating operations run inside a single storage transaction
// and are serialized per train run, so no two claims can ever land on the
// same seat.
package booking

import "errors"

// Sentinel errors returned by the engine.  Handlers translate these into
// HTTP status codes; callers should compare with errors.Is because the
// engine wraps them with contextual detail.
var (
	// ErrInvalidRequest marks malformed input: empty seat set, TTL out of
	// bounds, or no passengers.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSeatNotFound is returned when a requested seat does not belong
	// to the given train run.
	ErrSeatNotFound = errors.New("seat not found")

	// ErrSeatUnavailable is returned when a requested seat is already
	// HELD or BOOKED, by anyone including the requesting user.
	ErrSeatUnavailable = errors.New("seat unavailable")

	// ErrSeatConflict signals that a seat was not in the status the
	// transaction expected.  Per-run locking should prevent this; it is
	// surfaced as its own kind when detected so it is never silently
	// overwritten.
	ErrSeatConflict = errors.New("seat status conflict")

	// ErrHoldNotFound is returned when no hold exists with the given id,
	// or the hold was already consumed or released.
	ErrHoldNotFound = errors.New("hold not found")

	// ErrHoldExpired is returned when a hold's TTL elapsed before use.
	// The client must request a new hold.
	ErrHoldExpired = errors.New("hold expired")

	// ErrForbidden is returned when the entity exists but belongs to a
	// different user.
	ErrForbidden = errors.New("forbidden")

	// ErrPassengerCount is returned when the number of passengers does
	// not equal the number of seats in the hold.
	ErrPassengerCount = errors.New("passenger count mismatch")

	// ErrPaymentDeclined is returned when the payment oracle rejected the
	// charge or timed out.  The hold is released and its seats freed.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrBookingNotFound is returned when no booking exists with the
	// given reference.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrAlreadyCancelled is returned when cancelling a booking that is
	// already cancelled.  No state is changed by the second call.
	ErrAlreadyCancelled = errors.New("booking already cancelled")

	// ErrCancellationNotAllowed is returned when the cancellation policy
	// rejects the request (e.g. too close to departure).
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")

	// ErrTxConflict marks a transient storage-level conflict (deadlock,
	// lock wait timeout).  Operations retry once before surfacing it.
	ErrTxConflict = errors.New("transaction conflict")
)
