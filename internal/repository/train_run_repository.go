package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// ErrTrainRunNotFound is returned when a train run cannot be found.
var ErrTrainRunNotFound = errors.New("train run not found")

// ErrRunExists is returned when a run for the same train and date
// already exists.
var ErrRunExists = errors.New("train run already exists for that date")

// TrainRunRepo encapsulates queries for train runs and their seat
// rosters.
type TrainRunRepo struct {
	db *sql.DB
}

// NewTrainRunRepo constructs a TrainRunRepo with the provided DB handle.
func NewTrainRunRepo(db *sql.DB) *TrainRunRepo {
	return &TrainRunRepo{db: db}
}

// ByID fetches a run by its primary key.
func (r *TrainRunRepo) ByID(ctx context.Context, id uint64) (*model.TrainRun, error) {
	const q = `SELECT id, train_id, DATE_FORMAT(run_date, '%Y-%m-%d'), departs_at, status,
	                  total_seats, available_seats, created_at
	           FROM train_runs WHERE id = ?`
	var tr model.TrainRun
	err := r.db.QueryRowContext(ctx, q, id).Scan(&tr.ID, &tr.TrainID, &tr.RunDate, &tr.DepartsAt,
		&tr.Status, &tr.TotalSeats, &tr.AvailableSeats, &tr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrainRunNotFound
		}
		return nil, err
	}
	return &tr, nil
}

// CreateWithSeats inserts a run and materializes its seat roster from
// the train's coach layout inside one transaction.  Coaches are named
// <class>1, <class>2, ... and seats are numbered 1..seats_per_coach
// within each coach.  The whole roster starts AVAILABLE and the run's
// counters reflect it.
func (r *TrainRunRepo) CreateWithSeats(ctx context.Context, run *model.TrainRun, layout []model.CoachLayout) error {
	if len(layout) == 0 {
		return errors.New("train has no coach layout")
	}

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

	var exists uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM train_runs WHERE train_id = ? AND run_date = ?`,
		run.TrainID, run.RunDate).Scan(&exists)
	if err == nil {
		return ErrRunExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	total := uint32(0)
	for _, c := range layout {
		total += c.CoachCount * c.SeatsPerUnit
	}
	run.TotalSeats = total
	run.AvailableSeats = total
	run.Status = model.RunScheduled

	const qRun = `INSERT INTO train_runs (train_id, run_date, departs_at, status, total_seats, available_seats)
	              VALUES (?, ?, ?, 'SCHEDULED', ?, ?)`
	res, err := tx.ExecContext(ctx, qRun, run.TrainID, run.RunDate,
		run.DepartsAt.UTC().Format(mysqlTimeFormat), run.TotalSeats, run.AvailableSeats)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = uint64(id)

	// One bulk insert per coach keeps statement size bounded while still
	// avoiding a round trip per seat.
	for _, c := range layout {
		for coach := uint32(1); coach <= c.CoachCount; coach++ {
			coachNumber := fmt.Sprintf("%s%d", c.SeatClass, coach)
			ins := `INSERT INTO seats (train_run_id, seat_number, coach_number, seat_class, price_cents, status) VALUES `
			args := make([]interface{}, 0, c.SeatsPerUnit*5)
			for n := uint32(1); n <= c.SeatsPerUnit; n++ {
				if n > 1 {
					ins += ","
				}
				ins += "(?, ?, ?, ?, ?, 'AVAILABLE')"
				args = append(args, run.ID, fmt.Sprintf("%02d", n), coachNumber, c.SeatClass, c.PriceCents)
			}
			if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ClassAvailability summarizes one seat class of a run.
type ClassAvailability struct {
	SeatClass  string `json:"seat_class"`
	PriceCents uint32 `json:"price_cents"`
	Total      uint32 `json:"total"`
	Available  uint32 `json:"available"`
}

// AvailableSeat is one open seat in an availability snapshot.
type AvailableSeat struct {
	ID          uint64 `json:"id"`
	SeatNumber  string `json:"seat_number"`
	CoachNumber string `json:"coach_number"`
	SeatClass   string `json:"seat_class"`
	PriceCents  uint32 `json:"price_cents"`
}

// Availability takes a lock-free snapshot of a run: per-class summary
// plus the list of currently open seats.  The snapshot may be stale the
// moment it is read; holds and bookings re-verify under row locks.
func (r *TrainRunRepo) Availability(ctx context.Context, runID uint64) (*model.TrainRun, []ClassAvailability, []AvailableSeat, error) {
	run, err := r.ByID(ctx, runID)
	if err != nil {
		return nil, nil, nil, err
	}

	const qSummary = `SELECT seat_class, MIN(price_cents), COUNT(*),
	                         SUM(CASE WHEN status = 'AVAILABLE' THEN 1 ELSE 0 END)
	                  FROM seats WHERE train_run_id = ?
	                  GROUP BY seat_class ORDER BY seat_class`
	rows, err := r.db.QueryContext(ctx, qSummary, runID)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()
	var classes []ClassAvailability
	for rows.Next() {
		var c ClassAvailability
		if err := rows.Scan(&c.SeatClass, &c.PriceCents, &c.Total, &c.Available); err != nil {
			return nil, nil, nil, err
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}

	const qSeats = `SELECT id, seat_number, coach_number, seat_class, price_cents
	                FROM seats
	                WHERE train_run_id = ? AND status = 'AVAILABLE'
	                ORDER BY coach_number, seat_number`
	seatRows, err := r.db.QueryContext(ctx, qSeats, runID)
	if err != nil {
		return nil, nil, nil, err
	}
	defer seatRows.Close()
	var seats []AvailableSeat
	for seatRows.Next() {
		var s AvailableSeat
		if err := seatRows.Scan(&s.ID, &s.SeatNumber, &s.CoachNumber, &s.SeatClass, &s.PriceCents); err != nil {
			return nil, nil, nil, err
		}
		seats = append(seats, s)
	}
	if err := seatRows.Err(); err != nil {
		return nil, nil, nil, err
	}
	return run, classes, seats, nil
}
