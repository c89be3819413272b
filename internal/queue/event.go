// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used for the booking lifecycle events.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published after a booking commits.  It
// carries enough for downstream consumers (notification, analytics) to
// act without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID       uint64   `json:"booking_id"`
	BookingRef      string   `json:"booking_ref"`
	UserID          uint64   `json:"user_id"`
	TrainRunID      uint64   `json:"train_run_id"`
	FromStationCode string   `json:"from_station_code"`
	ToStationCode   string   `json:"to_station_code"`
	JourneyDate     string   `json:"journey_date"`
	SeatLabels      []string `json:"seats"`
	TotalCents      uint32   `json:"total_cents"`
	ConfirmedAt     string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published after a cancellation commits and
// the seats have returned to the open pool.
type BookingCancelledEvent struct {
	BookingID     uint64 `json:"booking_id"`
	BookingRef    string `json:"booking_ref"`
	UserID        uint64 `json:"user_id"`
	TrainRunID    uint64 `json:"train_run_id"`
	SeatsReleased int    `json:"seats_released"`
	RefundCents   uint32 `json:"refund_cents"`
	CancelledAt   string `json:"cancelled_at"`
}
