package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// memStore is an in-memory Store used by the engine tests.  WithinTx
// clones the whole state, applies the function to the clone and swaps
// it in on success, which gives the same all-or-nothing visibility as a
// rolled-back SQL transaction.  Named failure injections simulate
// storage errors at exact points of the flow.
type memStore struct {
	mu       sync.Mutex
	st       *memState
	failures map[string]*opFailure
}

type opFailure struct {
	err   error
	times int // negative means every call
}

type memRun struct {
	departure time.Time
	available int
}

type memState struct {
	seats        map[uint64]*model.Seat
	holds        map[uint64]*model.SeatHold
	bookings     map[uint64]*model.Booking
	bookingSeats map[uint64][]model.BookingSeat
	refs         map[string]uint64 // booking_ref -> booking id
	runs         map[uint64]*memRun

	nextSeat, nextHold, nextBooking, nextBookingSeat uint64
}

func newMemStore() *memStore {
	return &memStore{
		st: &memState{
			seats:        make(map[uint64]*model.Seat),
			holds:        make(map[uint64]*model.SeatHold),
			bookings:     make(map[uint64]*model.Booking),
			bookingSeats: make(map[uint64][]model.BookingSeat),
			refs:         make(map[string]uint64),
			runs:         make(map[uint64]*memRun),
		},
		failures: make(map[string]*opFailure),
	}
}

// failOn makes the named Tx method return err for the next n calls
// (n < 0 means every call).
func (s *memStore) failOn(op string, err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = &opFailure{err: err, times: n}
}

// addRun registers a train run with its departure time.
func (s *memStore) addRun(runID uint64, departure time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.runs[runID] = &memRun{departure: departure}
}

// addSeat creates an AVAILABLE seat on a run and returns its id.
func (s *memStore) addSeat(runID uint64, coach, number, class string, priceCents uint32) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextSeat++
	id := s.st.nextSeat
	s.st.seats[id] = &model.Seat{
		ID:          id,
		TrainRunID:  runID,
		SeatNumber:  number,
		CoachNumber: coach,
		SeatClass:   class,
		PriceCents:  priceCents,
		Status:      model.SeatAvailable,
	}
	if r := s.st.runs[runID]; r != nil {
		r.available++
	}
	return id
}

// seat returns a copy of the seat for assertions.
func (s *memStore) seat(id uint64) model.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.st.seats[id]
}

// holdStatus returns the current status of a hold.
func (s *memStore) holdStatus(id uint64) model.HoldStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.holds[id].Status
}

// availableCounter returns the run's denormalized available-seat counter.
func (s *memStore) availableCounter(runID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.runs[runID].available
}

// countByStatus tallies the run's seats per status.
func (s *memStore) countByStatus(runID uint64) map[model.SeatStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[model.SeatStatus]int)
	for _, st := range s.st.seats {
		if st.TrainRunID == runID {
			out[st.Status]++
		}
	}
	return out
}

func (st *memState) clone() *memState {
	c := &memState{
		seats:           make(map[uint64]*model.Seat, len(st.seats)),
		holds:           make(map[uint64]*model.SeatHold, len(st.holds)),
		bookings:        make(map[uint64]*model.Booking, len(st.bookings)),
		bookingSeats:    make(map[uint64][]model.BookingSeat, len(st.bookingSeats)),
		refs:            make(map[string]uint64, len(st.refs)),
		runs:            make(map[uint64]*memRun, len(st.runs)),
		nextSeat:        st.nextSeat,
		nextHold:        st.nextHold,
		nextBooking:     st.nextBooking,
		nextBookingSeat: st.nextBookingSeat,
	}
	for id, v := range st.seats {
		cp := *v
		if v.HoldID != nil {
			h := *v.HoldID
			cp.HoldID = &h
		}
		c.seats[id] = &cp
	}
	for id, v := range st.holds {
		cp := *v
		cp.SeatIDs = append([]uint64(nil), v.SeatIDs...)
		c.holds[id] = &cp
	}
	for id, v := range st.bookings {
		cp := *v
		if v.CancellationTime != nil {
			t := *v.CancellationTime
			cp.CancellationTime = &t
		}
		c.bookings[id] = &cp
	}
	for id, v := range st.bookingSeats {
		c.bookingSeats[id] = append([]model.BookingSeat(nil), v...)
	}
	for ref, id := range st.refs {
		c.refs[ref] = id
	}
	for id, v := range st.runs {
		cp := *v
		c.runs[id] = &cp
	}
	return c
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&memTx{store: s, st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *memStore) HoldByID(ctx context.Context, holdID uint64) (*model.SeatHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.st.holds[holdID]
	if !ok {
		return nil, fmt.Errorf("%w: hold %d", ErrHoldNotFound, holdID)
	}
	cp := *h
	cp.SeatIDs = append([]uint64(nil), h.SeatIDs...)
	return &cp, nil
}

func (s *memStore) BookingByRef(ctx context.Context, ref string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.st.refs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, ref)
	}
	cp := *s.st.bookings[id]
	return &cp, nil
}

// memTx applies Tx operations to the cloned state.  The parent store's
// mutex is held for the whole transaction, so there is no aliasing.
type memTx struct {
	store *memStore
	st    *memState
}

// injected returns the scripted error for op, if any is armed.
func (t *memTx) injected(op string) error {
	f := t.store.failures[op]
	if f == nil || f.times == 0 {
		return nil
	}
	if f.times > 0 {
		f.times--
	}
	return f.err
}

func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].CoachNumber != seats[j].CoachNumber {
			return seats[i].CoachNumber < seats[j].CoachNumber
		}
		return seats[i].SeatNumber < seats[j].SeatNumber
	})
}

func (t *memTx) SeatsForUpdate(ctx context.Context, trainRunID uint64, seatIDs []uint64) ([]model.Seat, error) {
	if err := t.injected("SeatsForUpdate"); err != nil {
		return nil, err
	}
	var out []model.Seat
	for _, id := range seatIDs {
		if s, ok := t.st.seats[id]; ok && s.TrainRunID == trainRunID {
			out = append(out, *s)
		}
	}
	sortSeats(out)
	return out, nil
}

func (t *memTx) SeatsByHoldForUpdate(ctx context.Context, holdID uint64) ([]model.Seat, error) {
	if err := t.injected("SeatsByHoldForUpdate"); err != nil {
		return nil, err
	}
	var out []model.Seat
	for _, s := range t.st.seats {
		if s.HoldID != nil && *s.HoldID == holdID {
			out = append(out, *s)
		}
	}
	sortSeats(out)
	return out, nil
}

// moveSeat applies a status change, refusing any edge the seat state
// machine does not allow.  The guarded SQL UPDATEs can never take an
// illegal edge; the fake enforces the same property explicitly.
func moveSeat(s *model.Seat, to model.SeatStatus) error {
	if !model.CanTransition(s.Status, to) {
		return fmt.Errorf("illegal seat transition %s -> %s", s.Status, to)
	}
	s.Status = to
	return nil
}

func (t *memTx) ClaimSeats(ctx context.Context, seatIDs []uint64, holdID uint64) (int64, error) {
	if err := t.injected("ClaimSeats"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range seatIDs {
		if s, ok := t.st.seats[id]; ok && s.Status == model.SeatAvailable {
			if err := moveSeat(s, model.SeatHeld); err != nil {
				return n, err
			}
			h := holdID
			s.HoldID = &h
			n++
		}
	}
	return n, nil
}

func (t *memTx) FreeHeldSeats(ctx context.Context, holdID uint64) (int64, error) {
	if err := t.injected("FreeHeldSeats"); err != nil {
		return 0, err
	}
	var n int64
	for _, s := range t.st.seats {
		if s.Status == model.SeatHeld && s.HoldID != nil && *s.HoldID == holdID {
			if err := moveSeat(s, model.SeatAvailable); err != nil {
				return n, err
			}
			s.HoldID = nil
			n++
		}
	}
	return n, nil
}

func (t *memTx) BookSeats(ctx context.Context, holdID uint64) (int64, error) {
	if err := t.injected("BookSeats"); err != nil {
		return 0, err
	}
	var n int64
	for _, s := range t.st.seats {
		if s.Status == model.SeatHeld && s.HoldID != nil && *s.HoldID == holdID {
			if err := moveSeat(s, model.SeatBooked); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (t *memTx) FreeBookedSeats(ctx context.Context, seatIDs []uint64) (int64, error) {
	if err := t.injected("FreeBookedSeats"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range seatIDs {
		if s, ok := t.st.seats[id]; ok && s.Status == model.SeatBooked {
			if err := moveSeat(s, model.SeatAvailable); err != nil {
				return n, err
			}
			s.HoldID = nil
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertHold(ctx context.Context, h *model.SeatHold) error {
	if err := t.injected("InsertHold"); err != nil {
		return err
	}
	t.st.nextHold++
	h.ID = t.st.nextHold
	cp := *h
	cp.SeatIDs = append([]uint64(nil), h.SeatIDs...)
	t.st.holds[h.ID] = &cp
	return nil
}

func (t *memTx) HoldForUpdate(ctx context.Context, holdID uint64) (*model.SeatHold, error) {
	if err := t.injected("HoldForUpdate"); err != nil {
		return nil, err
	}
	h, ok := t.st.holds[holdID]
	if !ok {
		return nil, fmt.Errorf("%w: hold %d", ErrHoldNotFound, holdID)
	}
	cp := *h
	cp.SeatIDs = append([]uint64(nil), h.SeatIDs...)
	return &cp, nil
}

func (t *memTx) UpdateHoldStatus(ctx context.Context, holdID uint64, from, to model.HoldStatus) (bool, error) {
	if err := t.injected("UpdateHoldStatus"); err != nil {
		return false, err
	}
	h, ok := t.st.holds[holdID]
	if !ok || h.Status != from {
		return false, nil
	}
	h.Status = to
	return true, nil
}

func (t *memTx) DueHolds(ctx context.Context, cutoff time.Time, limit int) ([]model.SeatHold, error) {
	if err := t.injected("DueHolds"); err != nil {
		return nil, err
	}
	var due []model.SeatHold
	for _, h := range t.st.holds {
		if h.Status == model.HoldActive && !h.ExpiresAt.After(cutoff) {
			due = append(due, *h)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking, seats []model.BookingSeat) error {
	if err := t.injected("InsertBooking"); err != nil {
		return err
	}
	if _, dup := t.st.refs[b.BookingRef]; dup {
		return fmt.Errorf("duplicate booking ref %s", b.BookingRef)
	}
	t.st.nextBooking++
	b.ID = t.st.nextBooking
	cp := *b
	t.st.bookings[b.ID] = &cp
	t.st.refs[b.BookingRef] = b.ID
	rows := make([]model.BookingSeat, 0, len(seats))
	for i := range seats {
		t.st.nextBookingSeat++
		s := seats[i]
		s.ID = t.st.nextBookingSeat
		s.BookingID = b.ID
		rows = append(rows, s)
	}
	t.st.bookingSeats[b.ID] = rows
	return nil
}

func (t *memTx) BookingByRefForUpdate(ctx context.Context, ref string) (*model.Booking, error) {
	if err := t.injected("BookingByRefForUpdate"); err != nil {
		return nil, err
	}
	id, ok := t.st.refs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, ref)
	}
	cp := *t.st.bookings[id]
	return &cp, nil
}

func (t *memTx) MarkBookingCancelled(ctx context.Context, bookingID uint64, at time.Time) error {
	if err := t.injected("MarkBookingCancelled"); err != nil {
		return err
	}
	b, ok := t.st.bookings[bookingID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrBookingNotFound, bookingID)
	}
	b.Status = model.BookingCancelled
	b.PaymentStatus = model.PaymentRefunded
	cancelled := at
	b.CancellationTime = &cancelled
	return nil
}

func (t *memTx) BookingSeatIDs(ctx context.Context, bookingID uint64) ([]uint64, error) {
	if err := t.injected("BookingSeatIDs"); err != nil {
		return nil, err
	}
	var ids []uint64
	for _, bs := range t.st.bookingSeats[bookingID] {
		ids = append(ids, bs.SeatID)
	}
	return ids, nil
}

func (t *memTx) TrainRunDeparture(ctx context.Context, trainRunID uint64) (time.Time, error) {
	if err := t.injected("TrainRunDeparture"); err != nil {
		return time.Time{}, err
	}
	r, ok := t.st.runs[trainRunID]
	if !ok {
		return time.Time{}, fmt.Errorf("train run %d not found", trainRunID)
	}
	return r.departure, nil
}

func (t *memTx) AdjustAvailableSeats(ctx context.Context, trainRunID uint64, delta int) error {
	if err := t.injected("AdjustAvailableSeats"); err != nil {
		return err
	}
	r, ok := t.st.runs[trainRunID]
	if !ok {
		return fmt.Errorf("train run %d not found", trainRunID)
	}
	r.available += delta
	return nil
}
