package repository

import (
	"context"
	"strings"
)

// TrainSearchQuery carries the filters of a journey search: origin and
// destination station codes plus the calendar date of travel.
type TrainSearchQuery struct {
	FromCode string
	ToCode   string
	Date     string // YYYY-MM-DD
}

// TrainRunRow is one search result: a runnable train on the requested
// date that serves the requested leg.
type TrainRunRow struct {
	TrainID        uint64 `json:"train_id"`
	TrainNumber    string `json:"train_number"`
	TrainName      string `json:"train_name"`
	TrainType      string `json:"train_type"`
	RunID          uint64 `json:"train_run_id"`
	RunDate        string `json:"run_date"`
	DepartureTime  string `json:"departure_time"`
	ArrivalTime    string `json:"arrival_time"`
	DurationMin    uint32 `json:"duration_min"`
	AvailableSeats uint32 `json:"available_seats"`
}

// Search finds scheduled runs on the given date whose route covers the
// requested leg.  A train serves the leg when the origin stop comes
// before the destination stop in its stop sequence, which also covers
// the end-to-end case since every train's terminals are stops.
func (r *TrainRepo) Search(ctx context.Context, q TrainSearchQuery) ([]TrainRunRow, error) {
	const dataSQL = `SELECT
			t.id,
			t.number,
			t.name,
			t.train_type,
			tr.id AS run_id,
			DATE_FORMAT(tr.run_date, '%Y-%m-%d') AS run_date,
			t.departure_time,
			t.arrival_time,
			t.duration_min,
			tr.available_seats
		FROM trains t
		JOIN train_stops org ON org.train_id = t.id AND org.station_code = ?
		JOIN train_stops dst ON dst.train_id = t.id AND dst.station_code = ?
		                    AND dst.stop_sequence > org.stop_sequence
		JOIN train_runs tr   ON tr.train_id = t.id
		                    AND tr.run_date = ?
		                    AND tr.status = 'SCHEDULED'
		ORDER BY t.departure_time ASC`

	rows, err := r.db.QueryContext(ctx, dataSQL,
		strings.ToUpper(q.FromCode), strings.ToUpper(q.ToCode), q.Date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrainRunRow
	for rows.Next() {
		var d TrainRunRow
		if err := rows.Scan(
			&d.TrainID,
			&d.TrainNumber,
			&d.TrainName,
			&d.TrainType,
			&d.RunID,
			&d.RunDate,
			&d.DepartureTime,
			&d.ArrivalTime,
			&d.DurationMin,
			&d.AvailableSeats,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
