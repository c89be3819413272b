package model

import "time"

// RunStatus enumerates the states of a train run.
type RunStatus string

const (
	RunScheduled RunStatus = "SCHEDULED"
	RunDeparted  RunStatus = "DEPARTED"
	RunCancelled RunStatus = "CANCELLED"
)

// TrainRun is a specific train on a specific calendar date, the unit of
// seat inventory.  AvailableSeats is a denormalized counter maintained by
// the booking engine (decremented when seats are booked, incremented on
// cancellation); the seat rows themselves remain the source of truth.
type TrainRun struct {
	ID             uint64    // train_runs.id
	TrainID        uint64    // train_runs.train_id
	RunDate        string    // train_runs.run_date
	DepartsAt      time.Time // train_runs.departs_at
	Status         RunStatus // train_runs.status
	TotalSeats     uint32    // train_runs.total_seats
	AvailableSeats uint32    // train_runs.available_seats
	CreatedAt      time.Time // train_runs.created_at
}
