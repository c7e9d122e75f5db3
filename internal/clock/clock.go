// Package clock provides an injectable millisecond wall clock so that
// event timestamps are deterministic under test.
package clock

import "time"

// Clock yields the current time in milliseconds since the Unix epoch.
type Clock interface {
	NowMillis() int64
}

type systemClock struct{}

func (systemClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// System returns the real wall clock.
func System() Clock {
	return systemClock{}
}

// Func adapts a plain function to the Clock interface.
type Func func() int64

// NowMillis implements Clock.
func (f Func) NowMillis() int64 {
	return f()
}
