// Package clock provides Clock implementations used to stamp response
// envelopes.
package clock

import (
	"sync"
	"time"

	"github.com/tb8/tb8/ports"
)

// Real reads the wall clock. Readings keep Go's monotonic component, so
// latencies computed from two readings are immune to wall-clock jumps.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// Fake is a controllable clock for tests. When a step is set, every call
// to Now advances the clock by that step after reading it, which lets a
// single handler call observe distinct start and end times.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewFake creates a fake clock frozen at t.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t}
}

// NewTicking creates a fake clock at t that advances by step per reading.
func NewTicking(t time.Time, step time.Duration) *Fake {
	return &Fake{current: t, step: step}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.current
	f.current = f.current.Add(f.step)
	return now
}

// Set moves the clock to t. Negative jumps are allowed to simulate skew.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
}

// Advance moves the clock by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

var (
	_ ports.Clock = Real{}
	_ ports.Clock = (*Fake)(nil)
)
