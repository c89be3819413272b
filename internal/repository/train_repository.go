package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// ErrTrainNotFound is returned when a train cannot be found in the DB.
var ErrTrainNotFound = errors.New("train not found")

// TrainRepo encapsulates queries for trains, their stop sequences and
// their coach layouts.
type TrainRepo struct {
	db *sql.DB
}

// NewTrainRepo constructs a TrainRepo with the provided DB handle.
func NewTrainRepo(db *sql.DB) *TrainRepo {
	return &TrainRepo{db: db}
}

// ByID fetches a train by its primary key.
func (r *TrainRepo) ByID(ctx context.Context, id uint64) (*model.Train, error) {
	const q = `SELECT id, number, name, from_station_code, to_station_code,
	                  departure_time, arrival_time, duration_min, train_type, created_at
	           FROM trains WHERE id = ?`
	var t model.Train
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Number, &t.Name,
		&t.FromStationCode, &t.ToStationCode, &t.DepartureTime, &t.ArrivalTime,
		&t.DurationMin, &t.TrainType, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrainNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create inserts a train together with its stop sequence and coach
// layout inside one transaction.  Terminal stations must appear in the
// stop list; the caller is expected to have validated that.
func (r *TrainRepo) Create(ctx context.Context, t *model.Train, stops []model.TrainStop, layout []model.CoachLayout) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const qTrain = `INSERT INTO trains (number, name, from_station_code, to_station_code,
	                                    departure_time, arrival_time, duration_min, train_type)
	                VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, qTrain, t.Number, t.Name,
		strings.ToUpper(t.FromStationCode), strings.ToUpper(t.ToStationCode),
		t.DepartureTime, t.ArrivalTime, t.DurationMin, t.TrainType)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)

	for i := range stops {
		s := &stops[i]
		s.TrainID = t.ID
		const qStop = `INSERT INTO train_stops (train_id, station_code, stop_sequence, arrival_time, departure_time)
		               VALUES (?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, qStop, s.TrainID, strings.ToUpper(s.StationCode),
			s.StopSequence, s.ArrivalTime, s.DepartureTime); err != nil {
			return err
		}
	}
	for i := range layout {
		c := &layout[i]
		c.TrainID = t.ID
		const qCoach = `INSERT INTO train_coaches (train_id, seat_class, coach_count, seats_per_coach, price_cents)
		                VALUES (?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, qCoach, c.TrainID, c.SeatClass, c.CoachCount, c.SeatsPerUnit, c.PriceCents); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CoachLayout returns the class blocks of a train ordered by class name.
func (r *TrainRepo) CoachLayout(ctx context.Context, trainID uint64) ([]model.CoachLayout, error) {
	const q = `SELECT id, train_id, seat_class, coach_count, seats_per_coach, price_cents
	           FROM train_coaches WHERE train_id = ? ORDER BY seat_class`
	rows, err := r.db.QueryContext(ctx, q, trainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CoachLayout
	for rows.Next() {
		var c model.CoachLayout
		if err := rows.Scan(&c.ID, &c.TrainID, &c.SeatClass, &c.CoachCount, &c.SeatsPerUnit, &c.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
