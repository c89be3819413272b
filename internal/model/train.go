package model

import "time"

// Station is a stop in the railway network.  Stations are reference data
// created at import time and looked up by their short code.
type Station struct {
	ID        uint64    // stations.id
	Code      string    // stations.code (e.g. "NDLS")
	Name      string    // stations.name
	City      string    // stations.city
	CreatedAt time.Time // stations.created_at
}

// Train describes a scheduled service between two stations.  A train has
// many runs, one per calendar date.  The coach layout (classes, coaches
// per class, seats per coach and fares) determines the seat roster
// materialized for each run.
type Train struct {
	ID              uint64    // trains.id
	Number          string    // trains.number (e.g. "12951")
	Name            string    // trains.name
	FromStationCode string    // trains.from_station_code
	ToStationCode   string    // trains.to_station_code
	DepartureTime   string    // trains.departure_time (HH:MM)
	ArrivalTime     string    // trains.arrival_time (HH:MM)
	DurationMin     uint32    // trains.duration_min
	TrainType       string    // trains.train_type
	CreatedAt       time.Time // trains.created_at
}

// TrainStop is one entry in a train's route.  StopSequence is 1-based
// and strictly increasing along the route; a journey from A to B is
// servable when A's sequence is lower than B's.
type TrainStop struct {
	ID            uint64 // train_stops.id
	TrainID       uint64 // train_stops.train_id
	StationCode   string // train_stops.station_code
	StopSequence  uint32 // train_stops.stop_sequence
	ArrivalTime   string // train_stops.arrival_time (HH:MM, empty for origin)
	DepartureTime string // train_stops.departure_time (HH:MM, empty for terminus)
}

// CoachLayout is one class block of a train: how many coaches it has, how
// many seats each coach carries and the fare per seat.  It is the roster
// template used when seats for a run are created.
type CoachLayout struct {
	ID           uint64 // train_coaches.id
	TrainID      uint64 // train_coaches.train_id
	SeatClass    string // train_coaches.seat_class
	CoachCount   uint32 // train_coaches.coach_count
	SeatsPerUnit uint32 // train_coaches.seats_per_coach
	PriceCents   uint32 // train_coaches.price_cents
}
