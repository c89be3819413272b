package booking

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/railway-seat-booking/internal/model"
)

// Reaper proactively expires stale ACTIVE holds and frees their seats on
// a fixed interval.  Expiry is decided by status-guarded transitions
// inside the sweep transaction, so a sweep racing a concurrent finalize,
// release or another reaper instance is a no-op for holds that already
// left ACTIVE.
type Reaper struct {
	store    Store
	clock    Clock
	interval time.Duration
	batch    int
}

// NewReaper constructs a Reaper sweeping every interval, at most batch
// holds per sweep.
func NewReaper(store Store, clock Clock, interval time.Duration, batch int) *Reaper {
	if store == nil || clock == nil {
		panic("nil dependency passed to NewReaper")
	}
	if batch <= 0 {
		batch = 100
	}
	return &Reaper{store: store, clock: clock, interval: interval, batch: batch}
}

// Run sweeps until the context is cancelled.  Sweep errors are logged
// and the loop keeps going; a missed sweep only delays expiry, the lazy
// check at point of use still guards correctness.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.SweepOnce(ctx)
			if err != nil {
				log.Printf("reaper: sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("reaper: expired %d hold(s)", n)
			}
		}
	}
}

// SweepOnce expires due holds in one transaction and returns how many
// holds it transitioned.
func (r *Reaper) SweepOnce(ctx context.Context) (int, error) {
	expired := 0
	err := withTxRetry(ctx, r.store, func(tx Tx) error {
		expired = 0
		due, err := tx.DueHolds(ctx, r.clock.Now(), r.batch)
		if err != nil {
			return err
		}
		for _, h := range due {
			ok, err := tx.UpdateHoldStatus(ctx, h.ID, model.HoldActive, model.HoldExpired)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if _, err := tx.FreeHeldSeats(ctx, h.ID); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}
