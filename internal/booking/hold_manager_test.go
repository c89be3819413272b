package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

var testBase = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

const (
	testMinTTL = 30 * time.Second
	testMaxTTL = 10 * time.Minute
	testTTL    = 5 * time.Minute
)

// newHoldFixture builds a run with three seats and a HoldManager over
// the in-memory store.
func newHoldFixture(t *testing.T) (*memStore, *FixedClock, *HoldManager, []uint64) {
	t.Helper()
	store := newMemStore()
	store.addRun(1, testBase.Add(24*time.Hour))
	seats := []uint64{
		store.addSeat(1, "S1", "01", "SL", 50000),
		store.addSeat(1, "S1", "02", "SL", 50000),
		store.addSeat(1, "S1", "03", "SL", 50000),
	}
	clock := &FixedClock{Time: testBase}
	m := NewHoldManager(store, NewRunLocks(), clock, testMinTTL, testMaxTTL)
	return store, clock, m, seats
}

func TestCreateHoldClaimsAllSeats(t *testing.T) {
	store, _, m, seats := newHoldFixture(t)

	h, err := m.CreateHold(context.Background(), CreateHoldInput{
		TrainRunID: 1, SeatIDs: seats[:2], UserID: 7, TTL: testTTL,
	})
	require.NoError(t, err)
	require.NotZero(t, h.ID)
	assert.Equal(t, model.HoldActive, h.Status)
	assert.NotEmpty(t, h.HoldToken)
	assert.Equal(t, testBase.Add(testTTL), h.ExpiresAt)

	for _, id := range seats[:2] {
		s := store.seat(id)
		assert.Equal(t, model.SeatHeld, s.Status)
		require.NotNil(t, s.HoldID)
		assert.Equal(t, h.ID, *s.HoldID)
	}
	assert.Equal(t, model.SeatAvailable, store.seat(seats[2]).Status)
}

func TestCreateHoldIsAllOrNothing(t *testing.T) {
	store, _, m, seats := newHoldFixture(t)

	_, err := m.CreateHold(context.Background(), CreateHoldInput{
		TrainRunID: 1, SeatIDs: seats[:1], UserID: 7, TTL: testTTL,
	})
	require.NoError(t, err)

	// Seat 0 is now held, so a hold wanting seats 0 and 2 must fail and
	// leave seat 2 untouched.
	_, err = m.CreateHold(context.Background(), CreateHoldInput{
		TrainRunID: 1, SeatIDs: []uint64{seats[0], seats[2]}, UserID: 8, TTL: testTTL,
	})
	require.ErrorIs(t, err, ErrSeatUnavailable)
	assert.Equal(t, model.SeatAvailable, store.seat(seats[2]).Status)
}

func TestCreateHoldSameUserCannotDoubleHold(t *testing.T) {
	_, _, m, seats := newHoldFixture(t)

	_, err := m.CreateHold(context.Background(), CreateHoldInput{
		TrainRunID: 1, SeatIDs: seats[:1], UserID: 7, TTL: testTTL,
	})
	require.NoError(t, err)

	_, err = m.CreateHold(context.Background(), CreateHoldInput{
		TrainRunID: 1, SeatIDs: seats[:1], UserID: 7, TTL: testTTL,
	})
	assert.ErrorIs(t, err, ErrSeatUnavailable)
}

func TestCreateHoldValidation(t *testing.T) {
	_, _, m, seats := newHoldFixture(t)
	ctx := context.Background()

	_, err := m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, UserID: 7, TTL: testTTL})
	assert.ErrorIs(t, err, ErrInvalidRequest, "empty seat set")

	_, err = m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, SeatIDs: seats[:1], UserID: 7, TTL: time.Second})
	assert.ErrorIs(t, err, ErrInvalidRequest, "ttl below minimum")

	_, err = m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, SeatIDs: seats[:1], UserID: 7, TTL: time.Hour})
	assert.ErrorIs(t, err, ErrInvalidRequest, "ttl above maximum")

	_, err = m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, SeatIDs: []uint64{999}, UserID: 7, TTL: testTTL})
	assert.ErrorIs(t, err, ErrSeatNotFound, "seat from another run")
}

func TestCreateHoldDeduplicatesSeatIDs(t *testing.T) {
	_, _, m, seats := newHoldFixture(t)

	h, err := m.CreateHold(context.Background(), CreateHoldInput{
		TrainRunID: 1, SeatIDs: []uint64{seats[0], seats[0], 0, seats[1]}, UserID: 7, TTL: testTTL,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{seats[0], seats[1]}, h.SeatIDs)
}

func TestReleaseHoldFreesSeats(t *testing.T) {
	store, _, m, seats := newHoldFixture(t)
	ctx := context.Background()

	h, err := m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, SeatIDs: seats[:2], UserID: 7, TTL: testTTL})
	require.NoError(t, err)

	require.NoError(t, m.ReleaseHold(ctx, h.ID, 7))
	assert.Equal(t, model.HoldReleased, store.holdStatus(h.ID))
	for _, id := range seats[:2] {
		s := store.seat(id)
		assert.Equal(t, model.SeatAvailable, s.Status)
		assert.Nil(t, s.HoldID)
	}

	// Releasing again is a no-op success.
	assert.NoError(t, m.ReleaseHold(ctx, h.ID, 7))
}

func TestReleaseHoldOwnership(t *testing.T) {
	store, _, m, seats := newHoldFixture(t)
	ctx := context.Background()

	h, err := m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, SeatIDs: seats[:1], UserID: 7, TTL: testTTL})
	require.NoError(t, err)

	err = m.ReleaseHold(ctx, h.ID, 8)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, model.HoldActive, store.holdStatus(h.ID))

	// userID zero is the system caller and bypasses ownership.
	require.NoError(t, m.ReleaseHold(ctx, h.ID, 0))
	assert.Equal(t, model.HoldReleased, store.holdStatus(h.ID))
}

func TestReleaseUnknownHold(t *testing.T) {
	_, _, m, _ := newHoldFixture(t)
	err := m.ReleaseHold(context.Background(), 424242, 7)
	assert.ErrorIs(t, err, ErrHoldNotFound)
}

// Forty racers, one seat: exactly one hold may win, and after the dust
// settles the seat is held by that winner alone.
func TestConcurrentHoldsNeverDoubleAllocate(t *testing.T) {
	store, _, m, seats := newHoldFixture(t)
	target := seats[0]

	const racers = 40
	var wg sync.WaitGroup
	winners := make(chan uint64, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			h, err := m.CreateHold(context.Background(), CreateHoldInput{
				TrainRunID: 1, SeatIDs: []uint64{target}, UserID: user, TTL: testTTL,
			})
			if err == nil {
				winners <- h.ID
			}
		}(uint64(i + 1))
	}
	wg.Wait()
	close(winners)

	var won []uint64
	for id := range winners {
		won = append(won, id)
	}
	require.Len(t, won, 1, "exactly one racer may claim the seat")

	s := store.seat(target)
	assert.Equal(t, model.SeatHeld, s.Status)
	require.NotNil(t, s.HoldID)
	assert.Equal(t, won[0], *s.HoldID)
}
