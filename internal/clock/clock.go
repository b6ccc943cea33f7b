// Package clock wraps time.Now so that frame timestamps and durations can be
// made deterministic in tests.
package clock

import (
	"sync"
	"time"
)

// NowFunc returns the current time. Override in tests for determinism.
//
//nolint:gochecknoglobals
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Since returns the time elapsed since t, as measured by NowFunc.
func Since(t time.Time) time.Duration { return Now().Sub(t) }

// Stepper returns a NowFunc that starts at start and advances by step on
// every call. It is safe for concurrent use.
func Stepper(start time.Time, step time.Duration) func() time.Time {
	mu := &sync.Mutex{}
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		now := next
		next = next.Add(step)
		return now
	}
}
