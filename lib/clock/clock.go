// Package clock abstracts time for components that pace retries and bounded
// waits, so that tests can observe and control the delays instead of actually
// sleeping through them.
package clock

import "time"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IClock is the delay primitive consumed by the stream implementations.
// The process-wide implementation is returned by System.
type IClock interface {
	// Now returns the current time
	Now() time.Time
	// Sleep blocks the calling goroutine for the given duration
	Sleep(d time.Duration)
	// After returns a channel that delivers the current time once the given
	// duration has elapsed
	After(d time.Duration) <-chan time.Time
}

// --------------------------------------------------------------------------
// System Clock
// --------------------------------------------------------------------------

type systemClock struct{}

// System returns the real, process-wide clock.
func System() IClock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
