package booking

import "sync"

// RunLocks provides per-train-run mutual exclusion.  Every mutating
// engine operation locks the affected run before opening its storage
// transaction, so holds and bookings for the same inventory are fully
// serialized in-process while different runs never block each other.
// Cross-process serialization is handled by the storage layer's row
// locks; this keyed mutex keeps contention off the database for the
// common single-instance deployment.
type RunLocks struct {
	mu   sync.Mutex
	runs map[uint64]*sync.Mutex
}

// NewRunLocks returns an empty lock table.
func NewRunLocks() *RunLocks {
	return &RunLocks{runs: make(map[uint64]*sync.Mutex)}
}

// Lock acquires the mutex for the given train run and returns the
// function that releases it.  Mutexes are created on first use and kept
// for the life of the process; the table is bounded by the number of
// distinct runs served.
func (l *RunLocks) Lock(trainRunID uint64) func() {
	l.mu.Lock()
	m, ok := l.runs[trainRunID]
	if !ok {
		m = &sync.Mutex{}
		l.runs[trainRunID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
