package model

import "time"

// HoldStatus enumerates the lifecycle states of a seat hold.  ACTIVE is
// the only non-terminal state; CONSUMED, EXPIRED and RELEASED are
// terminal and never transition further.
type HoldStatus string

const (
	HoldActive   HoldStatus = "ACTIVE"   // live claim, usable by finalize
	HoldConsumed HoldStatus = "CONSUMED" // converted into a booking
	HoldExpired  HoldStatus = "EXPIRED"  // TTL elapsed before use
	HoldReleased HoldStatus = "RELEASED" // released by the client or a failed booking attempt
)

// Terminal reports whether a hold status is terminal.
func (s HoldStatus) Terminal() bool {
	return s == HoldConsumed || s == HoldExpired || s == HoldReleased
}

// SeatHold represents a temporary, time-boxed claim on a set of seats by
// one user during checkout.  A hold prevents concurrent bookings from
// grabbing the same seats while the user enters passenger details.  Holds
// expire automatically at ExpiresAt; expiry is checked lazily at point of
// use and also swept by the background reaper.
type SeatHold struct {
	ID         uint64     // seat_holds.id
	UserID     uint64     // seat_holds.user_id
	TrainRunID uint64     // seat_holds.train_run_id
	SeatIDs    []uint64   // hold_seats rows
	HoldToken  string     // seat_holds.hold_token
	Status     HoldStatus // seat_holds.status
	ExpiresAt  time.Time  // seat_holds.expires_at
	CreatedAt  time.Time  // seat_holds.created_at
}
