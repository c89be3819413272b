package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// HoldManager creates and releases time-boxed seat holds.  Either every
// requested seat transitions AVAILABLE→HELD and a new ACTIVE hold is
// written, or nothing changes.
type HoldManager struct {
	store  Store
	locks  *RunLocks
	clock  Clock
	minTTL time.Duration
	maxTTL time.Duration
}

// NewHoldManager constructs a HoldManager.  minTTL and maxTTL bound the
// client-requested hold duration.
func NewHoldManager(store Store, locks *RunLocks, clock Clock, minTTL, maxTTL time.Duration) *HoldManager {
	if store == nil || locks == nil || clock == nil {
		panic("nil dependency passed to NewHoldManager")
	}
	return &HoldManager{store: store, locks: locks, clock: clock, minTTL: minTTL, maxTTL: maxTTL}
}

// CreateHoldInput carries the parameters of a hold request.
type CreateHoldInput struct {
	TrainRunID uint64
	SeatIDs    []uint64
	UserID     uint64
	TTL        time.Duration
}

// CreateHold places an exclusive time-boxed claim on the requested seats.
// All seats must belong to the train run and be AVAILABLE; a seat that
// is already HELD or BOOKED, even by the same user, fails the whole
// request with ErrSeatUnavailable and no seat is touched.
func (m *HoldManager) CreateHold(ctx context.Context, in CreateHoldInput) (*model.SeatHold, error) {
	seatIDs := dedupeIDs(in.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%w: empty seat set", ErrInvalidRequest)
	}
	if in.TTL < m.minTTL || in.TTL > m.maxTTL {
		return nil, fmt.Errorf("%w: ttl must be between %s and %s", ErrInvalidRequest, m.minTTL, m.maxTTL)
	}

	unlock := m.locks.Lock(in.TrainRunID)
	defer unlock()

	var hold *model.SeatHold
	err := withTxRetry(ctx, m.store, func(tx Tx) error {
		seats, err := tx.SeatsForUpdate(ctx, in.TrainRunID, seatIDs)
		if err != nil {
			return err
		}
		if len(seats) != len(seatIDs) {
			return fmt.Errorf("%w: %d of %d seats do not belong to run %d",
				ErrSeatNotFound, len(seatIDs)-len(seats), len(seatIDs), in.TrainRunID)
		}
		for _, s := range seats {
			if s.Status != model.SeatAvailable {
				return fmt.Errorf("%w: seat %s/%s is %s", ErrSeatUnavailable, s.CoachNumber, s.SeatNumber, s.Status)
			}
		}

		token, err := NewHoldToken()
		if err != nil {
			return err
		}
		now := m.clock.Now()
		h := &model.SeatHold{
			UserID:     in.UserID,
			TrainRunID: in.TrainRunID,
			SeatIDs:    seatIDs,
			HoldToken:  token,
			Status:     model.HoldActive,
			ExpiresAt:  now.Add(in.TTL),
			CreatedAt:  now,
		}
		if err := tx.InsertHold(ctx, h); err != nil {
			return err
		}
		n, err := tx.ClaimSeats(ctx, seatIDs, h.ID)
		if err != nil {
			return err
		}
		if n != int64(len(seatIDs)) {
			// Row locking should make this unreachable; abort rather
			// than commit a partial claim.
			return fmt.Errorf("%w: claimed %d of %d seats", ErrSeatConflict, n, len(seatIDs))
		}
		hold = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hold, nil
}

// ReleaseHold releases an ACTIVE hold and returns its seats to
// AVAILABLE.  Releasing an already-terminal hold is a no-op success so
// clients and the reaper can race safely.  userID zero is the system
// caller (expiry sweep, failed finalize) and bypasses the ownership
// check.
func (m *HoldManager) ReleaseHold(ctx context.Context, holdID, userID uint64) error {
	h, err := m.store.HoldByID(ctx, holdID)
	if err != nil {
		return err
	}
	if userID != 0 && h.UserID != userID {
		return fmt.Errorf("%w: hold %d", ErrForbidden, holdID)
	}
	if h.Status.Terminal() {
		return nil
	}

	unlock := m.locks.Lock(h.TrainRunID)
	defer unlock()

	return withTxRetry(ctx, m.store, func(tx Tx) error {
		ok, err := tx.UpdateHoldStatus(ctx, holdID, model.HoldActive, model.HoldReleased)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race with expiry or consumption; nothing to do.
			return nil
		}
		_, err = tx.FreeHeldSeats(ctx, holdID)
		return err
	})
}

// dedupeIDs drops zero and duplicate ids preserving order.
func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
