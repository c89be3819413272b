package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/railway-seat-booking/internal/booking"
	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// BookingStore is the MySQL implementation of booking.Store.  Each
// engine operation runs inside one transaction; seat and hold rows are
// taken with SELECT ... FOR UPDATE before any status check, and every
// status write carries the expected current status in its WHERE clause
// so a concurrent transition makes the update a visible no-op instead of
// an overwrite.
type BookingStore struct {
	db *sql.DB
}

// NewBookingStore returns a BookingStore bound to the given database.
func NewBookingStore(db *sql.DB) *BookingStore { return &BookingStore{db: db} }

// DB exposes the underlying handle for callers that need to compose
// transactions with other repositories.
func (s *BookingStore) DB() *sql.DB { return s.db }

const mysqlTimeFormat = "2006-01-02 15:04:05"

// WithinTx opens a transaction, runs fn against it and commits.  On any
// error the transaction is rolled back.  MySQL deadlocks (1213) and lock
// wait timeouts (1205) are mapped to booking.ErrTxConflict so the engine
// can apply its retry-once policy.
func (s *BookingStore) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&bookingTx{tx: tx}); err != nil {
		return mapTxErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapTxErr(err)
	}
	committed = true
	return nil
}

func mapTxErr(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "1213") || strings.Contains(msg, "1205") {
		return fmt.Errorf("%w: %v", booking.ErrTxConflict, err)
	}
	return err
}

// HoldByID is a snapshot read of a hold and its seat set.
func (s *BookingStore) HoldByID(ctx context.Context, holdID uint64) (*model.SeatHold, error) {
	const q = `SELECT id, user_id, train_run_id, hold_token, status, expires_at, created_at
	           FROM seat_holds WHERE id = ?`
	var h model.SeatHold
	err := s.db.QueryRowContext(ctx, q, holdID).Scan(
		&h.ID, &h.UserID, &h.TrainRunID, &h.HoldToken, &h.Status, &h.ExpiresAt, &h.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: hold %d", booking.ErrHoldNotFound, holdID)
		}
		return nil, err
	}
	h.SeatIDs, err = holdSeatIDs(ctx, s.db, holdID)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// BookingByRef is a snapshot read of a booking by its reference.
func (s *BookingStore) BookingByRef(ctx context.Context, ref string) (*model.Booking, error) {
	return scanBooking(s.db.QueryRowContext(ctx, bookingSelect+` WHERE booking_ref = ?`, ref), ref)
}

// ListByUser returns a user's bookings, newest first.
func (s *BookingStore) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := s.db.QueryContext(ctx, bookingSelect+` WHERE user_id = ? ORDER BY booking_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		var cancelled sql.NullTime
		if err := rows.Scan(&b.ID, &b.BookingRef, &b.UserID, &b.TrainRunID, &b.FromStationCode,
			&b.ToStationCode, &b.JourneyDate, &b.TotalCents, &b.NumPassengers, &b.Status,
			&b.PaymentStatus, &b.BookingTime, &cancelled); err != nil {
			return nil, err
		}
		if cancelled.Valid {
			t := cancelled.Time
			b.CancellationTime = &t
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BookingSeats returns the passenger rows of a booking joined with seat
// placement, ordered the way they were assigned.
func (s *BookingStore) BookingSeats(ctx context.Context, bookingID uint64) ([]model.BookingSeatDetail, error) {
	const q = `SELECT bs.id, bs.booking_id, bs.seat_id, bs.passenger_name, bs.passenger_age,
	                  bs.passenger_gender, bs.price_cents, st.seat_number, st.coach_number, st.seat_class
	           FROM booking_seats bs
	           JOIN seats st ON st.id = bs.seat_id
	           WHERE bs.booking_id = ?
	           ORDER BY st.coach_number, st.seat_number`
	rows, err := s.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingSeatDetail
	for rows.Next() {
		var d model.BookingSeatDetail
		if err := rows.Scan(&d.ID, &d.BookingID, &d.SeatID, &d.PassengerName, &d.PassengerAge,
			&d.PassengerGender, &d.PriceCents, &d.SeatNumber, &d.CoachNumber, &d.SeatClass); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func holdSeatIDs(ctx context.Context, q queryer, holdID uint64) ([]uint64, error) {
	rows, err := q.QueryContext(ctx, `SELECT seat_id FROM hold_seats WHERE hold_id = ? ORDER BY seat_id`, holdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const bookingSelect = `SELECT id, booking_ref, user_id, train_run_id, from_station_code, to_station_code,
	       journey_date, total_cents, num_passengers, status, payment_status, booking_time, cancellation_time
	FROM bookings`

func scanBooking(row *sql.Row, ref string) (*model.Booking, error) {
	var b model.Booking
	var cancelled sql.NullTime
	err := row.Scan(
		&b.ID, &b.BookingRef, &b.UserID, &b.TrainRunID, &b.FromStationCode, &b.ToStationCode,
		&b.JourneyDate, &b.TotalCents, &b.NumPassengers, &b.Status, &b.PaymentStatus,
		&b.BookingTime, &cancelled,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", booking.ErrBookingNotFound, ref)
		}
		return nil, err
	}
	if cancelled.Valid {
		t := cancelled.Time
		b.CancellationTime = &t
	}
	return &b, nil
}

// bookingTx implements booking.Tx over one *sql.Tx.
type bookingTx struct {
	tx *sql.Tx
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []uint64) []interface{} {
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func (t *bookingTx) SeatsForUpdate(ctx context.Context, trainRunID uint64, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT id, train_run_id, seat_number, coach_number, seat_class, price_cents, status, hold_id, updated_at
	      FROM seats
	      WHERE train_run_id = ? AND id IN (` + placeholders(len(seatIDs)) + `)
	      ORDER BY coach_number, seat_number
	      FOR UPDATE`
	args := append([]interface{}{trainRunID}, idArgs(seatIDs)...)
	return t.querySeats(ctx, q, args...)
}

func (t *bookingTx) SeatsByHoldForUpdate(ctx context.Context, holdID uint64) ([]model.Seat, error) {
	const q = `SELECT id, train_run_id, seat_number, coach_number, seat_class, price_cents, status, hold_id, updated_at
	           FROM seats
	           WHERE hold_id = ?
	           ORDER BY coach_number, seat_number
	           FOR UPDATE`
	return t.querySeats(ctx, q, holdID)
}

func (t *bookingTx) querySeats(ctx context.Context, q string, args ...interface{}) ([]model.Seat, error) {
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		var holdID sql.NullInt64
		if err := rows.Scan(&s.ID, &s.TrainRunID, &s.SeatNumber, &s.CoachNumber, &s.SeatClass,
			&s.PriceCents, &s.Status, &holdID, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if holdID.Valid {
			id := uint64(holdID.Int64)
			s.HoldID = &id
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (t *bookingTx) ClaimSeats(ctx context.Context, seatIDs []uint64, holdID uint64) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	q := `UPDATE seats SET status = 'HELD', hold_id = ?, updated_at = CURRENT_TIMESTAMP
	      WHERE id IN (` + placeholders(len(seatIDs)) + `) AND status = 'AVAILABLE'`
	args := append([]interface{}{holdID}, idArgs(seatIDs)...)
	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *bookingTx) FreeHeldSeats(ctx context.Context, holdID uint64) (int64, error) {
	const q = `UPDATE seats SET status = 'AVAILABLE', hold_id = NULL, updated_at = CURRENT_TIMESTAMP
	           WHERE hold_id = ? AND status = 'HELD'`
	res, err := t.tx.ExecContext(ctx, q, holdID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *bookingTx) BookSeats(ctx context.Context, holdID uint64) (int64, error) {
	const q = `UPDATE seats SET status = 'BOOKED', updated_at = CURRENT_TIMESTAMP
	           WHERE hold_id = ? AND status = 'HELD'`
	res, err := t.tx.ExecContext(ctx, q, holdID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *bookingTx) FreeBookedSeats(ctx context.Context, seatIDs []uint64) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	q := `UPDATE seats SET status = 'AVAILABLE', hold_id = NULL, updated_at = CURRENT_TIMESTAMP
	      WHERE id IN (` + placeholders(len(seatIDs)) + `) AND status = 'BOOKED'`
	res, err := t.tx.ExecContext(ctx, q, idArgs(seatIDs)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *bookingTx) InsertHold(ctx context.Context, h *model.SeatHold) error {
	const q = `INSERT INTO seat_holds (user_id, train_run_id, hold_token, status, expires_at, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, h.UserID, h.TrainRunID, h.HoldToken, h.Status,
		h.ExpiresAt.UTC().Format(mysqlTimeFormat), h.CreatedAt.UTC().Format(mysqlTimeFormat))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)

	if len(h.SeatIDs) == 0 {
		return nil
	}
	ins := `INSERT INTO hold_seats (hold_id, seat_id) VALUES `
	args := make([]interface{}, 0, len(h.SeatIDs)*2)
	for i, sid := range h.SeatIDs {
		if i > 0 {
			ins += ","
		}
		ins += "(?, ?)"
		args = append(args, h.ID, sid)
	}
	_, err = t.tx.ExecContext(ctx, ins, args...)
	return err
}

func (t *bookingTx) HoldForUpdate(ctx context.Context, holdID uint64) (*model.SeatHold, error) {
	const q = `SELECT id, user_id, train_run_id, hold_token, status, expires_at, created_at
	           FROM seat_holds WHERE id = ? FOR UPDATE`
	var h model.SeatHold
	err := t.tx.QueryRowContext(ctx, q, holdID).Scan(
		&h.ID, &h.UserID, &h.TrainRunID, &h.HoldToken, &h.Status, &h.ExpiresAt, &h.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: hold %d", booking.ErrHoldNotFound, holdID)
		}
		return nil, err
	}
	h.SeatIDs, err = holdSeatIDs(ctx, t.tx, holdID)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (t *bookingTx) UpdateHoldStatus(ctx context.Context, holdID uint64, from, to model.HoldStatus) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE seat_holds SET status = ? WHERE id = ? AND status = ?`, to, holdID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *bookingTx) DueHolds(ctx context.Context, cutoff time.Time, limit int) ([]model.SeatHold, error) {
	const q = `SELECT id, user_id, train_run_id, hold_token, status, expires_at, created_at
	           FROM seat_holds
	           WHERE status = 'ACTIVE' AND expires_at <= ?
	           ORDER BY expires_at
	           LIMIT ?
	           FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, q, cutoff.UTC().Format(mysqlTimeFormat), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var holds []model.SeatHold
	for rows.Next() {
		var h model.SeatHold
		if err := rows.Scan(&h.ID, &h.UserID, &h.TrainRunID, &h.HoldToken, &h.Status, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func (t *bookingTx) InsertBooking(ctx context.Context, b *model.Booking, seats []model.BookingSeat) error {
	const q = `INSERT INTO bookings (booking_ref, user_id, train_run_id, from_station_code, to_station_code,
	                                 journey_date, total_cents, num_passengers, status, payment_status, booking_time)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, b.BookingRef, b.UserID, b.TrainRunID, b.FromStationCode,
		b.ToStationCode, b.JourneyDate, b.TotalCents, b.NumPassengers, b.Status, b.PaymentStatus,
		b.BookingTime.UTC().Format(mysqlTimeFormat))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(seats) == 0 {
		return nil
	}
	ins := `INSERT INTO booking_seats (booking_id, seat_id, passenger_name, passenger_age, passenger_gender, price_cents) VALUES `
	args := make([]interface{}, 0, len(seats)*6)
	for i := range seats {
		if i > 0 {
			ins += ","
		}
		ins += "(?, ?, ?, ?, ?, ?)"
		s := &seats[i]
		s.BookingID = b.ID
		args = append(args, s.BookingID, s.SeatID, s.PassengerName, s.PassengerAge, s.PassengerGender, s.PriceCents)
	}
	_, err = t.tx.ExecContext(ctx, ins, args...)
	return err
}

func (t *bookingTx) BookingByRefForUpdate(ctx context.Context, ref string) (*model.Booking, error) {
	return scanBooking(t.tx.QueryRowContext(ctx, bookingSelect+` WHERE booking_ref = ? FOR UPDATE`, ref), ref)
}

func (t *bookingTx) MarkBookingCancelled(ctx context.Context, bookingID uint64, at time.Time) error {
	const q = `UPDATE bookings
	           SET status = 'CANCELLED', payment_status = 'REFUNDED', cancellation_time = ?
	           WHERE id = ?`
	_, err := t.tx.ExecContext(ctx, q, at.UTC().Format(mysqlTimeFormat), bookingID)
	return err
}

func (t *bookingTx) BookingSeatIDs(ctx context.Context, bookingID uint64) ([]uint64, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT seat_id FROM booking_seats WHERE booking_id = ?`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *bookingTx) TrainRunDeparture(ctx context.Context, trainRunID uint64) (time.Time, error) {
	var departs time.Time
	err := t.tx.QueryRowContext(ctx, `SELECT departs_at FROM train_runs WHERE id = ?`, trainRunID).Scan(&departs)
	if err != nil {
		return time.Time{}, err
	}
	return departs.UTC(), nil
}

func (t *bookingTx) AdjustAvailableSeats(ctx context.Context, trainRunID uint64, delta int) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE train_runs SET available_seats = available_seats + ? WHERE id = ?`, delta, trainRunID)
	return err
}
