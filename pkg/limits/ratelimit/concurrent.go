package ratelimit

import (
	"sync/atomic"
)

// Gauge counts in-flight requests for a single provider.
//
// The counter is lock-free and never goes below zero: a Dec without a
// matching Inc is absorbed rather than driving the value negative.
type Gauge struct {
	current atomic.Int64
}

// Inc records the start of a request and returns the new count.
// Admission must already have been confirmed by the caller.
func (g *Gauge) Inc() int64 {
	return g.current.Add(1)
}

// Dec records the end of a request and returns the new count, clamped at zero.
func (g *Gauge) Dec() int64 {
	for {
		cur := g.current.Load()
		if cur <= 0 {
			return 0
		}
		if g.current.CompareAndSwap(cur, cur-1) {
			return cur - 1
		}
	}
}

// Current returns the current number of in-flight requests.
func (g *Gauge) Current() int64 {
	return g.current.Load()
}

// Remaining returns the number of available slots for the given limit.
// A non-positive limit means unlimited and returns -1.
func (g *Gauge) Remaining(limit int) int64 {
	if limit <= 0 {
		return -1
	}
	remaining := int64(limit) - g.current.Load()
	if remaining < 0 {
		return 0
	}
	return remaining
}
