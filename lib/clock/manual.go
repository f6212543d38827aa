package clock

import (
	"sync"
	"time"
)

// --------------------------------------------------------------------------
// Manual Clock (for tests)
// --------------------------------------------------------------------------

// Manual is an IClock whose Sleep and After return immediately while
// recording every requested delay. Time advances only by those recorded
// delays, which lets tests assert on retry pacing without real sleeps.
//
// Manual is safe for concurrent use.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	delays []time.Duration
}

// NewManual creates a Manual clock starting at the given time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Sleep(d time.Duration) {
	m.record(d)
}

func (m *Manual) After(d time.Duration) <-chan time.Time {
	now := m.record(d)
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Delays returns a copy of all delays requested so far, in order.
func (m *Manual) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.delays))
	copy(out, m.delays)
	return out
}

// record notes the delay and advances the clock by it.
func (m *Manual) record(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	m.delays = append(m.delays, d)
	return m.now
}
