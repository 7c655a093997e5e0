// Package clock provides the wrapping 32-bit cycle counter used to timestamp
// measurements.
//
// An Instant is an opaque sample of a free-running counter. It wraps at 2^32
// and therefore must never be compared for ordering; only the wrap-aware
// difference between two instants is meaningful.
package clock

import (
	"sync"
	"time"
)

// DefaultFrequencyMHz is the counter frequency of the reference board (64 MHz).
const DefaultFrequencyMHz = 64

// Instant is a sample of a wrapping 32-bit cycle counter.
type Instant uint32

// Cycles returns the raw counter value.
func (i Instant) Cycles() uint32 {
	return uint32(i)
}

// Add returns the instant n cycles after i, wrapping at 2^32.
func (i Instant) Add(n uint32) Instant {
	return i + Instant(n)
}

// CyclesSince returns the number of cycles elapsed from earlier to i using
// wrapping subtraction. The result is correct as long as less than 2^32
// cycles separate the two samples.
func (i Instant) CyclesSince(earlier Instant) uint32 {
	return uint32(i - earlier)
}

// Clock yields cycle counter samples.
type Clock interface {
	Now() Instant
}

// CycleCounter emulates a hardware cycle counter running at a fixed frequency
// from the moment it was created.
type CycleCounter struct {
	start   time.Time
	freqMHz uint32
}

var _ Clock = (*CycleCounter)(nil)

// NewCycleCounter creates a counter ticking at freqMHz, starting at zero.
// A zero frequency selects DefaultFrequencyMHz.
func NewCycleCounter(freqMHz uint32) *CycleCounter {
	if freqMHz == 0 {
		freqMHz = DefaultFrequencyMHz
	}

	return &CycleCounter{start: time.Now(), freqMHz: freqMHz}
}

// Now returns the current counter value. Truncation to 32 bits is the wrap.
func (c *CycleCounter) Now() Instant {
	micros := uint64(time.Since(c.start) / time.Microsecond) //nolint:gosec // monotonic, never negative
	return Instant(uint32(micros * uint64(c.freqMHz)))       //nolint:gosec // intentional wrap
}

// FrequencyMHz returns the counter frequency.
func (c *CycleCounter) FrequencyMHz() uint32 {
	return c.freqMHz
}

// Duration converts a cycle count to a duration at freqMHz.
func Duration(cycles uint32, freqMHz uint32) time.Duration {
	if freqMHz == 0 {
		freqMHz = DefaultFrequencyMHz
	}

	return time.Duration(cycles/freqMHz) * time.Microsecond
}

// Cycles converts a duration to a cycle count at freqMHz, wrapping at 2^32.
func Cycles(d time.Duration, freqMHz uint32) uint32 {
	if freqMHz == 0 {
		freqMHz = DefaultFrequencyMHz
	}

	return uint32(uint64(d/time.Microsecond) * uint64(freqMHz)) //nolint:gosec // intentional wrap
}

// Manual is a Clock whose value only changes when told to. It is meant for
// tests and simulations.
type Manual struct {
	mu  sync.Mutex
	now Instant
}

var _ Clock = (*Manual)(nil)

// NewManual creates a manual clock starting at start.
func NewManual(start Instant) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() Instant {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Advance moves the clock forward by n cycles, wrapping at 2^32.
func (m *Manual) Advance(n uint32) {
	m.mu.Lock()
	m.now = m.now.Add(n)
	m.mu.Unlock()
}
