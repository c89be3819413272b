package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// ErrStationNotFound is returned when a station code is unknown.
var ErrStationNotFound = errors.New("station not found")

// StationRepo encapsulates queries against the stations table.  Stations
// are reference data: created by admins or an import job, read by everyone.
type StationRepo struct {
	db *sql.DB
}

// NewStationRepo constructs a StationRepo with the provided DB handle.
func NewStationRepo(db *sql.DB) *StationRepo {
	return &StationRepo{db: db}
}

// Create inserts a station and fills in the generated ID.
func (r *StationRepo) Create(ctx context.Context, s *model.Station) error {
	const q = `INSERT INTO stations (code, name, city) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, strings.ToUpper(s.Code), s.Name, s.City)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// ByCode fetches a station by its short code (case-insensitive).
func (r *StationRepo) ByCode(ctx context.Context, code string) (*model.Station, error) {
	const q = `SELECT id, code, name, city, created_at FROM stations WHERE code = ?`
	var s model.Station
	err := r.db.QueryRowContext(ctx, q, strings.ToUpper(code)).Scan(&s.ID, &s.Code, &s.Name, &s.City, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListAll returns every station ordered by code, for the public catalog.
func (r *StationRepo) ListAll(ctx context.Context) ([]model.Station, error) {
	const q = `SELECT id, code, name, city, created_at FROM stations ORDER BY code`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Station
	for rows.Next() {
		var s model.Station
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.City, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
