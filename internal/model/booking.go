package model

import "time"

// BookingStatus enumerates the states of a confirmed reservation.
// Cancellation is a status change, never a deletion.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// PaymentStatus tracks the payment side of a booking.
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Booking records a user's confirmed (or later cancelled) reservation on
// a train run.  BookingRef is the human-presentable reference handed to
// the client (PNR-style); it is globally unique and used in the API in
// place of the numeric primary key.
type Booking struct {
	ID               uint64        // bookings.id
	BookingRef       string        // bookings.booking_ref
	UserID           uint64        // bookings.user_id
	TrainRunID       uint64        // bookings.train_run_id
	FromStationCode  string        // bookings.from_station_code
	ToStationCode    string        // bookings.to_station_code
	JourneyDate      string        // bookings.journey_date
	TotalCents       uint32        // bookings.total_cents
	NumPassengers    int           // bookings.num_passengers
	Status           BookingStatus // bookings.status
	PaymentStatus    PaymentStatus // bookings.payment_status
	BookingTime      time.Time     // bookings.booking_time
	CancellationTime *time.Time    // bookings.cancellation_time (nullable)
}

// BookingSeat assigns one passenger to one seat within a booking.  Rows
// are created atomically with their parent booking and are never mutated
// afterwards except as part of a cancellation that also frees the seat.
type BookingSeat struct {
	ID              uint64  // booking_seats.id
	BookingID       uint64  // booking_seats.booking_id
	SeatID          uint64  // booking_seats.seat_id
	PassengerName   string  // booking_seats.passenger_name
	PassengerAge    *int    // booking_seats.passenger_age (nullable)
	PassengerGender *string // booking_seats.passenger_gender (nullable)
	PriceCents      uint32  // booking_seats.price_cents
}

// BookingSeatDetail is a BookingSeat joined with the seat's placement,
// used when presenting a booking to the client.
type BookingSeatDetail struct {
	BookingSeat
	SeatNumber  string // seats.seat_number
	CoachNumber string // seats.coach_number
	SeatClass   string // seats.seat_class
}
