package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

func TestSweepOnceExpiresDueHolds(t *testing.T) {
	store, clock, m, seats := newHoldFixture(t)
	ctx := context.Background()

	h1, err := m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, SeatIDs: seats[:1], UserID: 7, TTL: testTTL})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	h2, err := m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, SeatIDs: seats[1:2], UserID: 8, TTL: testTTL})
	require.NoError(t, err)

	// Past h1's deadline but not h2's.
	clock.Advance(testTTL - time.Minute + time.Second)

	r := NewReaper(store, clock, time.Second, 100)
	n, err := r.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, model.HoldExpired, store.holdStatus(h1.ID))
	assert.Equal(t, model.SeatAvailable, store.seat(seats[0]).Status)
	assert.Nil(t, store.seat(seats[0]).HoldID)

	assert.Equal(t, model.HoldActive, store.holdStatus(h2.ID))
	assert.Equal(t, model.SeatHeld, store.seat(seats[1]).Status)
}

func TestSweepOnceHonoursBatchLimit(t *testing.T) {
	store, clock, m, seats := newHoldFixture(t)
	ctx := context.Background()

	for i, s := range seats {
		_, err := m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, SeatIDs: []uint64{s}, UserID: uint64(i + 1), TTL: testTTL})
		require.NoError(t, err)
	}
	clock.Advance(testTTL + time.Second)

	r := NewReaper(store, clock, time.Second, 2)
	n, err := r.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The next sweep drains the rest.
	n, err = r.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, store.countByStatus(1)[model.SeatAvailable])
}

func TestSweepOnceSkipsHoldsThatLeftActive(t *testing.T) {
	store, clock, m, seats := newHoldFixture(t)
	ctx := context.Background()

	h, err := m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, SeatIDs: seats[:1], UserID: 7, TTL: testTTL})
	require.NoError(t, err)
	require.NoError(t, m.ReleaseHold(ctx, h.ID, 7))

	clock.Advance(testTTL + time.Second)
	r := NewReaper(store, clock, time.Second, 100)
	n, err := r.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, model.HoldReleased, store.holdStatus(h.ID))
}

func TestSweepOnceLeavesFreshHoldsAlone(t *testing.T) {
	store, clock, m, seats := newHoldFixture(t)
	ctx := context.Background()

	h, err := m.CreateHold(ctx, CreateHoldInput{TrainRunID: 1, SeatIDs: seats[:2], UserID: 7, TTL: testTTL})
	require.NoError(t, err)

	r := NewReaper(store, clock, time.Second, 100)
	n, err := r.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, model.HoldActive, store.holdStatus(h.ID))
	assert.Equal(t, model.SeatHeld, store.seat(seats[0]).Status)
}
