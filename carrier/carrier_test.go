package carrier

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/drdanz/yarp-unix-socket/lib/stream"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

// closeRecorder is an ITwoWayStream that only records being closed.
type closeRecorder struct {
	stream.ITwoWayStream
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

// fakeCarrier is a minimal ICarrier that records which handshake half ran.
type fakeCarrier struct {
	name      string
	header    [HeaderSize]byte
	supported bool
	responded bool
	replied   bool
}

func (f *fakeCarrier) Name() string { return f.name }

func (f *fakeCarrier) Header() []byte {
	h := make([]byte, HeaderSize)
	copy(h, f.header[:])
	return h
}

func (f *fakeCarrier) CheckHeader(h []byte) bool {
	return len(h) == HeaderSize && bytes.Equal(h, f.header[:])
}

func (f *fakeCarrier) RequireAck() bool       { return false }
func (f *fakeCarrier) IsConnectionless() bool { return false }
func (f *fakeCarrier) CanEscape() bool        { return true }

func (f *fakeCarrier) Supported(IConnectionState) bool { return f.supported }

func (f *fakeCarrier) RespondToHeader(context.Context, IConnectionState) error {
	f.responded = true
	return nil
}

func (f *fakeCarrier) ExpectReplyToHeader(context.Context, IConnectionState) error {
	f.replied = true
	return nil
}

func newFakeCarrier(name, header string, supported bool) *fakeCarrier {
	f := &fakeCarrier{name: name, supported: supported}
	copy(f.header[:], header)
	return f
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestConnectionState(t *testing.T) {
	c := NewConnectionState(nil)
	if c.Streams() != nil {
		t.Errorf("expected a fresh state to be detached")
	}

	s1 := &closeRecorder{}
	if err := c.TakeStreams(s1); err != nil {
		t.Fatalf("taking the first stream failed: %v", err)
	}
	if c.Streams() != stream.ITwoWayStream(s1) {
		t.Errorf("expected the state to hold the taken stream")
	}
	if s1.closed {
		t.Errorf("taking a stream must not close it")
	}

	s2 := &closeRecorder{}
	if err := c.TakeStreams(s2); err != nil {
		t.Fatalf("replacing the stream failed: %v", err)
	}
	if !s1.closed {
		t.Errorf("expected the replaced stream to be closed")
	}
	if s2.closed {
		t.Errorf("the replacement stream must stay open")
	}

	if err := c.TakeStreams(nil); err != nil {
		t.Fatalf("detaching failed: %v", err)
	}
	if !s2.closed {
		t.Errorf("expected detaching to close the held stream")
	}
	if c.Streams() != nil {
		t.Errorf("expected the state to be detached")
	}

	// detaching twice is a no-op
	if err := c.TakeStreams(nil); err != nil {
		t.Errorf("detaching a detached state failed: %v", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	alpha := newFakeCarrier("alpha", "ALPHA___", true)
	beta := newFakeCarrier("beta", "BETA____", true)

	if err := reg.Register(func() ICarrier { return alpha }); err != nil {
		t.Fatalf("registering alpha failed: %v", err)
	}
	if err := reg.Register(func() ICarrier { return beta }); err != nil {
		t.Fatalf("registering beta failed: %v", err)
	}
	if err := reg.Register(func() ICarrier { return alpha }); err == nil {
		t.Errorf("expected duplicate registration to fail")
	}

	c, err := reg.Find("alpha")
	if err != nil || c.Name() != "alpha" {
		t.Errorf("Find(alpha) returned (%v, %v)", c, err)
	}
	if _, err := reg.Find("unknown"); err == nil {
		t.Errorf("expected Find on unknown name to fail")
	}

	c, err = reg.FindByHeader([]byte("BETA____"))
	if err != nil || c.Name() != "beta" {
		t.Errorf("FindByHeader(beta) returned (%v, %v)", c, err)
	}
	if _, err := reg.FindByHeader([]byte("short")); err == nil {
		t.Errorf("expected FindByHeader on malformed header to fail")
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("expected sorted names [alpha beta], got %v", names)
	}
}

func TestHandshake(t *testing.T) {
	ca, cb := net.Pipe()
	senderState := NewConnectionState(stream.NewConnStream(ca))
	receiverState := NewConnectionState(stream.NewConnStream(cb))
	defer func() {
		_ = senderState.TakeStreams(nil)
		_ = receiverState.TakeStreams(nil)
	}()

	fc := newFakeCarrier("fake", "FAKE0001", true)
	reg := NewRegistry()
	if err := reg.Register(func() ICarrier { return fc }); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- Initiate(context.Background(), fc, senderState)
	}()

	chosen, err := Accept(context.Background(), reg, receiverState)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if err := <-sendErr; err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	if chosen.Name() != "fake" {
		t.Errorf("accept chose carrier %q, expected %q", chosen.Name(), "fake")
	}
	if !fc.replied || !fc.responded {
		t.Errorf("expected both handshake halves to run (sender %t, receiver %t)", fc.replied, fc.responded)
	}
}

func TestInitiateChecksSupport(t *testing.T) {
	ca, cb := net.Pipe()
	state := NewConnectionState(stream.NewConnStream(ca))
	defer func() {
		_ = state.TakeStreams(nil)
		_ = cb.Close()
	}()

	fc := newFakeCarrier("fake", "FAKE0001", false)
	if err := Initiate(context.Background(), fc, state); err == nil {
		t.Errorf("expected initiate to fail on an unsupported connection")
	}

	if err := Initiate(context.Background(), fc, NewConnectionState(nil)); err == nil {
		t.Errorf("expected initiate to fail on a detached connection")
	}
}

func TestAcceptRejectsUnknownHeader(t *testing.T) {
	ca, cb := net.Pipe()
	receiverState := NewConnectionState(stream.NewConnStream(cb))
	defer func() {
		_ = receiverState.TakeStreams(nil)
		_ = ca.Close()
	}()

	go func() {
		_, _ = ca.Write([]byte("garbage!"))
	}()

	if _, err := Accept(context.Background(), NewRegistry(), receiverState); err == nil {
		t.Errorf("expected accept to reject an unrecognised header")
	}
}
