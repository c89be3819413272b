package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/railway-seat-booking/internal/model"
	"github.com/iliyamo/railway-seat-booking/internal/payment"
)

type coordFixture struct {
	store *memStore
	clock *FixedClock
	holds *HoldManager
	coord *Coordinator
	seats []uint64
}

// newCoordFixture wires a HoldManager and Coordinator over one shared
// store, lock table and clock, the way main wires them.
func newCoordFixture(t *testing.T, opts ...payment.Option) *coordFixture {
	t.Helper()
	store := newMemStore()
	store.addRun(1, testBase.Add(24*time.Hour))
	seats := []uint64{
		store.addSeat(1, "S1", "01", "SL", 50000),
		store.addSeat(1, "S1", "02", "SL", 50000),
		store.addSeat(1, "S1", "03", "SL", 50000),
	}
	clock := &FixedClock{Time: testBase}
	locks := NewRunLocks()
	return &coordFixture{
		store: store,
		clock: clock,
		holds: NewHoldManager(store, locks, clock, testMinTTL, testMaxTTL),
		coord: NewCoordinator(store, payment.NewMockGateway(opts...), locks, clock, 2*time.Second),
		seats: seats,
	}
}

func (f *coordFixture) hold(t *testing.T, user uint64, seatIDs ...uint64) *model.SeatHold {
	t.Helper()
	h, err := f.holds.CreateHold(context.Background(), CreateHoldInput{
		TrainRunID: 1, SeatIDs: seatIDs, UserID: user, TTL: testTTL,
	})
	require.NoError(t, err)
	return h
}

func passengers(names ...string) []Passenger {
	out := make([]Passenger, 0, len(names))
	for _, n := range names {
		out = append(out, Passenger{Name: n})
	}
	return out
}

func (f *coordFixture) finalizeInput(h *model.SeatHold, ps ...string) FinalizeInput {
	return FinalizeInput{
		HoldID:          h.ID,
		UserID:          h.UserID,
		FromStationCode: "NDLS",
		ToStationCode:   "BCT",
		JourneyDate:     "2026-09-02",
		Passengers:      passengers(ps...),
		PaymentMethod:   "card",
	}
}

func TestFinalizeBookingHappyPath(t *testing.T) {
	f := newCoordFixture(t)
	h := f.hold(t, 7, f.seats[0], f.seats[1])
	before := f.store.availableCounter(1)

	b, err := f.coord.FinalizeBooking(context.Background(), f.finalizeInput(h, "Asha Rao", "Vikram Rao"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(b.BookingRef, "PNR-"), "ref %q", b.BookingRef)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, model.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, uint32(100000), b.TotalCents)
	assert.Equal(t, 2, b.NumPassengers)
	assert.Equal(t, testBase, b.BookingTime)

	assert.Equal(t, model.HoldConsumed, f.store.holdStatus(h.ID))
	for _, id := range []uint64{f.seats[0], f.seats[1]} {
		assert.Equal(t, model.SeatBooked, f.store.seat(id).Status)
	}
	assert.Equal(t, model.SeatAvailable, f.store.seat(f.seats[2]).Status)
	assert.Equal(t, before-2, f.store.availableCounter(1))
}

func TestFinalizeDeclineReleasesHoldAndSeats(t *testing.T) {
	f := newCoordFixture(t, payment.WithDecider(func(uint32, string) (bool, string) {
		return false, "insufficient funds"
	}))
	h := f.hold(t, 7, f.seats[0])
	before := f.store.availableCounter(1)

	_, err := f.coord.FinalizeBooking(context.Background(), f.finalizeInput(h, "Asha Rao"))
	require.ErrorIs(t, err, ErrPaymentDeclined)

	assert.Equal(t, model.HoldReleased, f.store.holdStatus(h.ID))
	s := f.store.seat(f.seats[0])
	assert.Equal(t, model.SeatAvailable, s.Status)
	assert.Nil(t, s.HoldID)
	assert.Equal(t, before, f.store.availableCounter(1))

	// The freed seat is immediately claimable by someone else.
	_ = f.hold(t, 8, f.seats[0])
}

func TestFinalizeOracleTimeoutIsADecline(t *testing.T) {
	f := newCoordFixture(t)
	f.coord = NewCoordinator(f.store, payment.NewMockGateway(payment.WithLatency(500*time.Millisecond)),
		NewRunLocks(), f.clock, 20*time.Millisecond)
	h := f.hold(t, 7, f.seats[0])

	_, err := f.coord.FinalizeBooking(context.Background(), f.finalizeInput(h, "Asha Rao"))
	require.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Equal(t, model.HoldReleased, f.store.holdStatus(h.ID))
	assert.Equal(t, model.SeatAvailable, f.store.seat(f.seats[0]).Status)
}

func TestFinalizeJustBeforeExpirySucceeds(t *testing.T) {
	f := newCoordFixture(t)
	h := f.hold(t, 7, f.seats[0])

	f.clock.Advance(testTTL - time.Second)

	b, err := f.coord.FinalizeBooking(context.Background(), f.finalizeInput(h, "Asha Rao"))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
}

func TestFinalizeExpiredHoldIsExpiredInPlace(t *testing.T) {
	f := newCoordFixture(t)
	h := f.hold(t, 7, f.seats[0])

	f.clock.Advance(testTTL + time.Second)

	_, err := f.coord.FinalizeBooking(context.Background(), f.finalizeInput(h, "Asha Rao"))
	require.ErrorIs(t, err, ErrHoldExpired)

	// Lazy expiry fired and committed: the hold is terminal and the
	// seat is free without waiting for the reaper.
	assert.Equal(t, model.HoldExpired, f.store.holdStatus(h.ID))
	assert.Equal(t, model.SeatAvailable, f.store.seat(f.seats[0]).Status)
	assert.Nil(t, f.store.seat(f.seats[0]).HoldID)

	// The freed seat is immediately claimable by another user.
	h2 := f.hold(t, 8, f.seats[0])
	assert.Equal(t, model.HoldActive, f.store.holdStatus(h2.ID))
}

func TestFinalizePassengerSeatMismatch(t *testing.T) {
	f := newCoordFixture(t)
	h := f.hold(t, 7, f.seats[0], f.seats[1])

	_, err := f.coord.FinalizeBooking(context.Background(), f.finalizeInput(h, "Asha Rao"))
	require.ErrorIs(t, err, ErrPassengerCount)

	// The failed attempt must not consume or damage the hold.
	assert.Equal(t, model.HoldActive, f.store.holdStatus(h.ID))
	assert.Equal(t, model.SeatHeld, f.store.seat(f.seats[0]).Status)
}

func TestFinalizeValidation(t *testing.T) {
	f := newCoordFixture(t)
	h := f.hold(t, 7, f.seats[0])
	ctx := context.Background()

	in := f.finalizeInput(h)
	_, err := f.coord.FinalizeBooking(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidRequest, "no passengers")

	in = f.finalizeInput(h, "")
	_, err = f.coord.FinalizeBooking(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidRequest, "blank passenger name")
}

func TestFinalizeOwnership(t *testing.T) {
	f := newCoordFixture(t)
	h := f.hold(t, 7, f.seats[0])

	in := f.finalizeInput(h, "Asha Rao")
	in.UserID = 8
	_, err := f.coord.FinalizeBooking(context.Background(), in)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, model.HoldActive, f.store.holdStatus(h.ID))
}

func TestFinalizeConsumedHoldCannotBeReused(t *testing.T) {
	f := newCoordFixture(t)
	h := f.hold(t, 7, f.seats[0])
	ctx := context.Background()

	_, err := f.coord.FinalizeBooking(ctx, f.finalizeInput(h, "Asha Rao"))
	require.NoError(t, err)

	_, err = f.coord.FinalizeBooking(ctx, f.finalizeInput(h, "Asha Rao"))
	assert.ErrorIs(t, err, ErrHoldNotFound)
}

// A write failure inside the commit transaction must roll the whole
// unit back: no booking row, seats still HELD, hold still ACTIVE, and a
// retry of the same attempt succeeds without a second charge.
func TestFinalizeCommitFailureRollsBackAtomically(t *testing.T) {
	f := newCoordFixture(t)
	h := f.hold(t, 7, f.seats[0], f.seats[1])
	before := f.store.availableCounter(1)
	ctx := context.Background()

	f.store.failOn("InsertBooking", errors.New("disk full"), 1)

	_, err := f.coord.FinalizeBooking(ctx, f.finalizeInput(h, "Asha Rao", "Vikram Rao"))
	require.Error(t, err)

	assert.Equal(t, model.HoldActive, f.store.holdStatus(h.ID), "rollback must leave the hold usable")
	for _, id := range []uint64{f.seats[0], f.seats[1]} {
		assert.Equal(t, model.SeatHeld, f.store.seat(id).Status)
	}
	assert.Equal(t, before, f.store.availableCounter(1))

	// Retry: the oracle caches the attempt token, so this does not
	// charge twice, and the commit now goes through.
	b, err := f.coord.FinalizeBooking(ctx, f.finalizeInput(h, "Asha Rao", "Vikram Rao"))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, model.HoldConsumed, f.store.holdStatus(h.ID))
}

// A transient storage conflict is retried once and then succeeds.
func TestFinalizeRetriesTransientConflict(t *testing.T) {
	f := newCoordFixture(t)
	h := f.hold(t, 7, f.seats[0])
	f.store.failOn("HoldForUpdate", ErrTxConflict, 1)

	b, err := f.coord.FinalizeBooking(context.Background(), f.finalizeInput(h, "Asha Rao"))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
}

func TestFinalizeUnknownHold(t *testing.T) {
	f := newCoordFixture(t)
	in := FinalizeInput{HoldID: 999, UserID: 7, FromStationCode: "NDLS", ToStationCode: "BCT",
		JourneyDate: "2026-09-02", Passengers: passengers("Asha Rao"), PaymentMethod: "card"}
	_, err := f.coord.FinalizeBooking(context.Background(), in)
	assert.ErrorIs(t, err, ErrHoldNotFound)
}
