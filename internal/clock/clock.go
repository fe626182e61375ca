// Package clock abstracts wall-clock access so expiry logic can be
// tested without real sleeps.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the real wall clock.
func System() Clock { return systemClock{} }

// Frozen is a manually advanced clock for tests.
type Frozen struct {
	current time.Time
}

func NewFrozen(at time.Time) *Frozen {
	return &Frozen{current: at}
}

func (f *Frozen) Now() time.Time { return f.current }

// Advance moves the frozen clock forward by d.
func (f *Frozen) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}
