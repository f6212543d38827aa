package stream

// --------------------------------------------------------------------------
// Monitor Tee
// --------------------------------------------------------------------------

// Tee wraps a stream and feeds every transferred chunk into the wrapped
// stream's monitor buffer, so that the latest payload that crossed the
// stream can be inspected through GetMonitor. All other methods pass
// through unchanged.
type Tee struct {
	ITwoWayStream
}

// NewTee wraps s in a monitor-feeding Tee.
func NewTee(s ITwoWayStream) *Tee {
	return &Tee{ITwoWayStream: s}
}

// Read reads from the wrapped stream and snapshots the received chunk.
func (t *Tee) Read(p []byte) (int, error) {
	n, err := t.ITwoWayStream.Read(p)
	if n > 0 {
		t.SetMonitor(p[:n])
	}
	return n, err
}

// Write writes to the wrapped stream and snapshots the sent chunk.
func (t *Tee) Write(p []byte) (int, error) {
	n, err := t.ITwoWayStream.Write(p)
	if n > 0 {
		t.SetMonitor(p[:n])
	}
	return n, err
}
