package model

import "time"

// SeatStatus enumerates the states a seat can be in for its train run.
// Transitions are restricted to the legal edges encoded in seatTransitions;
// every status write in the storage layer is additionally guarded by the
// expected current status so an illegal edge can never be taken, even
// under concurrent writers.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE" // free to be held
	SeatHeld      SeatStatus = "HELD"      // claimed by an active hold
	SeatBooked    SeatStatus = "BOOKED"    // part of a confirmed booking
)

// seatTransitions lists the legal status edges:
// AVAILABLE→HELD (hold created), HELD→BOOKED (booking committed),
// HELD→AVAILABLE (hold released or expired), BOOKED→AVAILABLE (cancellation).
var seatTransitions = map[SeatStatus][]SeatStatus{
	SeatAvailable: {SeatHeld},
	SeatHeld:      {SeatBooked, SeatAvailable},
	SeatBooked:    {SeatAvailable},
}

// CanTransition reports whether moving a seat from one status to another
// is a legal edge of the seat state machine.
func CanTransition(from, to SeatStatus) bool {
	for _, t := range seatTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Seat describes one physical seat on one train run.  Seats are created
// when a run is materialized from the train's coach layout and are never
// deleted; only their status changes.  HoldID references the seat_holds
// row that currently claims the seat and is nil when the seat is
// AVAILABLE.
type Seat struct {
	ID          uint64     // seats.id
	TrainRunID  uint64     // seats.train_run_id
	SeatNumber  string     // seats.seat_number
	CoachNumber string     // seats.coach_number
	SeatClass   string     // seats.seat_class
	PriceCents  uint32     // seats.price_cents
	Status      SeatStatus // seats.status
	HoldID      *uint64    // seats.hold_id (nullable)
	UpdatedAt   time.Time  // seats.updated_at
}
