package booking

import "time"

// Clock supplies the current time to the engine so expiry logic can be
// tested against a fixed instant.  All times are UTC.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// FixedClock always reports the same instant.  Tests advance it by
// replacing the value.
type FixedClock struct {
	Time time.Time
}

func (f *FixedClock) Now() time.Time { return f.Time.UTC() }

// Advance moves the fixed clock forward by d.
func (f *FixedClock) Advance(d time.Duration) { f.Time = f.Time.Add(d) }
