// Package replay drives a recorded ITCH feed through the reassembler,
// pacing scheduler, and subscriber registry, reproducing the original
// inter-message timing at a configurable speed.
package replay

import "time"

const (
	// MaxDelay caps one inter-frame wait so session-boundary timestamp
	// gaps never stall the replay for minutes.
	MaxDelay = time.Second

	// MinSleep is the smallest wait worth performing; the engine skips
	// anything below it rather than asking the OS for a sub-microsecond
	// sleep.
	MinSleep = time.Microsecond
)

// Delay returns the wait before emitting a frame with timestamp cur when
// the previous frame carried prev, both in nanoseconds since midnight.
//
// The first frame (prev == 0), a non-increasing timestamp, and a zero or
// negative speed all yield 0; the speed check comes first so the
// division is never evaluated when pacing is disabled. Otherwise the
// historical delta is divided by speed and capped at MaxDelay.
func Delay(prev, cur uint64, speed float64) time.Duration {
	if speed <= 0 || prev == 0 || cur <= prev {
		return 0
	}
	d := time.Duration(float64(cur-prev) / speed)
	if d > MaxDelay {
		d = MaxDelay
	}
	return d
}
