package stream

import "sync"

// --------------------------------------------------------------------------
// Monitor Tap
// --------------------------------------------------------------------------

// Tap implements the monitor snapshot part of ITwoWayStream. It is meant to
// be embedded by stream implementations; its lifecycle is independent of the
// connection state, so it carries its own lock.
//
// The tap itself never observes traffic. An external layer (see Tee) decides
// what to feed into it.
type Tap struct {
	mu  sync.Mutex
	buf []byte
}

// SetMonitor stores a private copy of data as the current snapshot,
// replacing any previous one.
func (t *Tap) SetMonitor(data []byte) {
	snapshot := make([]byte, len(data))
	copy(snapshot, data)

	t.mu.Lock()
	t.buf = snapshot
	t.mu.Unlock()
}

// GetMonitor returns a copy of the current snapshot, or nil if none is set.
func (t *Tap) GetMonitor() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.buf == nil {
		return nil
	}
	out := make([]byte, len(t.buf))
	copy(out, t.buf)
	return out
}

// RemoveMonitor discards the current snapshot.
func (t *Tap) RemoveMonitor() {
	t.mu.Lock()
	t.buf = nil
	t.mu.Unlock()
}
