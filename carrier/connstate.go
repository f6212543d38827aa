package carrier

import (
	"sync"

	"github.com/drdanz/yarp-unix-socket/lib/stream"
)

// --------------------------------------------------------------------------
// Connection State
// --------------------------------------------------------------------------

// ConnectionState is a minimal IConnectionState implementation: it owns the
// stream carrying one connection and closes any stream it lets go of.
type ConnectionState struct {
	mu sync.Mutex
	s  stream.ITwoWayStream
}

// NewConnectionState creates a connection state owning s (may be nil).
func NewConnectionState(s stream.ITwoWayStream) *ConnectionState {
	return &ConnectionState{s: s}
}

// Streams implements IConnectionState.
func (c *ConnectionState) Streams() stream.ITwoWayStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

// TakeStreams implements IConnectionState. The previous stream, if any, is
// closed before the new one takes over.
func (c *ConnectionState) TakeStreams(s stream.ITwoWayStream) error {
	c.mu.Lock()
	old := c.s
	c.s = s
	c.mu.Unlock()

	if old != nil && old != s {
		return old.Close()
	}
	return nil
}
