package unixsock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drdanz/yarp-unix-socket/lib/clock"
	"github.com/drdanz/yarp-unix-socket/lib/contact"
	"github.com/drdanz/yarp-unix-socket/lib/stream"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("stream/unixsock")

// CarrierName is the name of the carrier protocol this transport belongs to.
const CarrierName = "unix_stream"

// Protocol constants of the rendezvous and cancellation protocol. The retry
// counts and delays are worst-case bounds: both protocols finish as soon as
// the other side reacts, which is normally on the first round.
const (
	// connectAttempts is how often a connector dials before giving up
	connectAttempts = 5
	// connectRetryDelay is the pause between dial attempts
	connectRetryDelay = 10 * time.Millisecond
	// wakeAttempts is how often a cancellation claimant nudges the blocked
	// call before giving up on the acknowledgement
	wakeAttempts = 3
	// wakeRetryDelay is the longest a claimant waits for the blocked call
	// to come back per round
	wakeRetryDelay = 250 * time.Millisecond
)

// --------------------------------------------------------------------------
// Lifecycle States
// --------------------------------------------------------------------------

// streamState tracks the lifecycle of a stream. Transitions only ever move
// forward: idle -> open -> interrupting -> closed (open may be skipped when
// a stream is cancelled before its rendezvous finishes, interrupting when
// nothing claims a cancellation).
type streamState uint32

const (
	stateIdle         streamState = iota // created, rendezvous not finished
	stateOpen                            // connected, I/O permitted
	stateInterrupting                    // a cancellation claimant is running
	stateClosed                          // no further reads, teardown pending or done
)

// String implements the Stringer interface for streamState.
func (s streamState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateOpen:
		return "open"
	case stateInterrupting:
		return "interrupting"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// --------------------------------------------------------------------------
// Role Hooks (dependency injection for the two stream variants)
// --------------------------------------------------------------------------

// roleHooks is the role-specific part of a stream: which handles to nudge
// when a cancellation needs to release a blocked call, and which handles to
// drop on teardown besides the data connection.
type roleHooks interface {
	// wakeHandles expires the deadlines of every handle a blocked call of
	// this role may currently sit in
	wakeHandles()
	// closeHandles tears down the role's extra handles and, if this role
	// owns the address entry, removes it
	closeHandles() error
}

// --------------------------------------------------------------------------
// Shared Stream Core
// --------------------------------------------------------------------------

// twoWayStream is the core shared by ListenerStream and ConnectorStream. It
// owns the data connection, the lifecycle state machine and the
// cancellation protocol; the variants contribute the rendezvous (Open) and
// their role hooks.
type twoWayStream struct {
	stream.Tap

	address string
	role    stream.Role
	clk     clock.IClock
	hooks   roleHooks

	mu       sync.Mutex
	state    streamState
	intrDone chan struct{} // non-nil while a claimant runs, closed on completion
	conn     *net.UnixConn // data connection, nil before open / after teardown
	blocked  int           // goroutines currently inside a blocking accept or read
	local    contact.Contact
	remote   contact.Contact

	// pinged (cap 1, non-blocking) each time a blocked call returns
	unblocked chan struct{}

	// health flag: false after peer EOF, fatal write error or cancellation
	happy atomic.Bool
}

func newTwoWayStream(address string, role stream.Role, clk clock.IClock) twoWayStream {
	s := twoWayStream{
		address:   address,
		role:      role,
		clk:       clk,
		unblocked: make(chan struct{}, 1),
	}
	s.happy.Store(true)
	return s
}

// Address returns the endpoint address the stream was created for.
func (s *twoWayStream) Address() string {
	return s.address
}

// Role returns which side of the rendezvous this stream takes.
func (s *twoWayStream) Role() stream.Role {
	return s.role
}

// --------------------------------------------------------------------------
// I/O Path
// --------------------------------------------------------------------------

// Read performs one blocking read on the data connection. See the contract
// notes on ITwoWayStream: a read races a concurrent cancellation, and the
// cancellation wins.
func (s *twoWayStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.state != stateOpen || !s.happy.Load() {
		state := s.state
		s.mu.Unlock()
		return 0, stream.NewError(stream.ErrCClosed, fmt.Sprintf("read on %s stream", state))
	}
	conn := s.conn
	s.blocked++
	s.mu.Unlock()

	n, err := conn.Read(p)

	s.exitBlocking()

	// A cancellation that claimed the stream while the read was in flight
	// wins over whatever the read returned.
	if s.interrupted() {
		s.happy.Store(false)
		return 0, stream.NewError(stream.ErrCInterrupted, "read cancelled")
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			// orderly shutdown by the peer
			s.happy.Store(false)
			metricPeerEOFs.Inc()
			return 0, io.EOF
		}
		// Transient read errors do not downgrade the stream's health; the
		// caller decides whether to retry.
		Logger.Errorf("read on %s failed: %v", s.address, err)
		metricIOErrors.Inc()
		return 0, stream.NewError(stream.ErrCIO, fmt.Sprintf("read: %v", err))
	}

	metricBytesRead.Add(n)
	return n, nil
}

// Write performs one blocking write on the data connection. Write is gated
// on handle validity, not on the interrupt state: handles stay writable
// until teardown drops them.
func (s *twoWayStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		// Writing on a stream whose handles are gone tears the rest down.
		_ = s.Close()
		return 0, stream.NewError(stream.ErrCClosed, "write on closed stream")
	}
	if len(p) == 0 {
		return 0, nil
	}

	n, err := conn.Write(p)
	if err != nil {
		Logger.Errorf("write on %s failed: %v", s.address, err)
		metricIOErrors.Inc()

		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			// The peer is just not draining; the stream stays up.
			return n, stream.NewError(stream.ErrCIO, fmt.Sprintf("write timed out: %v", err))
		}
		_ = s.Close()
		return n, stream.NewError(stream.ErrCIO, fmt.Sprintf("write: %v", err))
	}

	metricBytesWritten.Add(n)
	return n, nil
}

// Flush implements ITwoWayStream. The kernel owns all buffering for this
// transport, so there is nothing to flush.
func (s *twoWayStream) Flush() error { return nil }

// Reset implements ITwoWayStream. There is no protocol state to reset.
func (s *twoWayStream) Reset() error { return nil }

// BeginPacket implements ITwoWayStream. The transport has no packet framing.
func (s *twoWayStream) BeginPacket() error { return nil }

// EndPacket implements ITwoWayStream. The transport has no packet framing.
func (s *twoWayStream) EndPacket() error { return nil }

// IsOK reports the health flag only; it says nothing about whether the
// stream has been closed.
func (s *twoWayStream) IsOK() bool {
	return s.happy.Load()
}

// --------------------------------------------------------------------------
// Cancellation Protocol
// --------------------------------------------------------------------------

// Interrupt cancels any blocking call the stream currently sits in and
// closes the stream for further reads. Exactly one concurrent caller claims
// the wake protocol; the others block until the claimant has finished, so
// that teardown never overlaps a wake in flight. Safe from any goroutine.
func (s *twoWayStream) Interrupt() {
	s.mu.Lock()
	for s.state == stateInterrupting {
		done := s.intrDone
		s.mu.Unlock()
		<-done
		s.mu.Lock()
	}
	if s.state == stateClosed || !s.happy.Load() {
		// nothing left to wake
		s.mu.Unlock()
		return
	}

	// claim
	s.state = stateInterrupting
	done := make(chan struct{})
	s.intrDone = done
	s.mu.Unlock()

	Logger.Debugf("interrupting %s stream on %s", s.role, s.address)
	metricInterrupts.Inc()
	s.drainBlocked()

	s.mu.Lock()
	s.state = stateClosed
	s.intrDone = nil
	s.mu.Unlock()
	close(done)
}

// drainBlocked runs the wake protocol: expire the deadlines of every handle
// a blocked call may sit in, then wait for the call to acknowledge its
// return. Each round is bounded by wakeRetryDelay, and the loop gives up
// after wakeAttempts rounds even if an acknowledgement never arrives.
func (s *twoWayStream) drainBlocked() {
	for attempt := 0; attempt < wakeAttempts; attempt++ {
		metricWakeRounds.Inc()
		s.hooks.wakeHandles()
		if s.quiescent() {
			return
		}
		select {
		case <-s.unblocked:
		case <-s.clk.After(wakeRetryDelay):
		}
		if s.quiescent() {
			return
		}
	}
	Logger.Warningf("gave up waking blocked call on %s after %d rounds", s.address, wakeAttempts)
}

// quiescent reports whether the claimant may finish: no goroutine remains
// inside a blocking call, or the stream went unusable (which releases them
// on their way out).
func (s *twoWayStream) quiescent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked == 0 || !s.happy.Load()
}

// wakeConn expires the read deadline of the data connection, releasing a
// blocked read. The write deadline is left alone: writes stay legal until
// teardown.
func (s *twoWayStream) wakeConn() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.SetReadDeadline(time.Now())
	}
}

// exitBlocking records that a blocking call returned and pings a waiting
// claimant.
func (s *twoWayStream) exitBlocking() {
	s.mu.Lock()
	s.blocked--
	s.mu.Unlock()
	select {
	case s.unblocked <- struct{}{}:
	default:
	}
}

// interrupted reports whether a cancellation has claimed the stream (or
// already completed) since the caller entered its blocking call.
func (s *twoWayStream) interrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateInterrupting || s.state == stateClosed
}

// --------------------------------------------------------------------------
// Teardown
// --------------------------------------------------------------------------

// Close interrupts the stream, waits for any in-flight cancellation to
// fully complete and then tears the handles down. It is idempotent and safe
// from any goroutine. Close also cleans up the partial state of a failed or
// cancelled Open.
func (s *twoWayStream) Close() error {
	// Wake anything blocked first; Interrupt waits for a concurrent
	// claimant before returning.
	s.Interrupt()

	s.mu.Lock()
	for s.state == stateInterrupting {
		// A late claimant still owns the stream: force its wake loop to
		// give up, then wait it out before touching the handles.
		s.happy.Store(false)
		done := s.intrDone
		s.mu.Unlock()
		<-done
		s.mu.Lock()
	}
	s.state = stateClosed
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	if herr := s.hooks.closeHandles(); herr != nil && err == nil {
		err = herr
	}
	s.happy.Store(false)

	if err != nil {
		Logger.Errorf("closing %s stream on %s: %v", s.role, s.address, err)
	}
	return err
}

// --------------------------------------------------------------------------
// Rendezvous Helpers (used by the role variants)
// --------------------------------------------------------------------------

// adoptConn publishes the data connection established by a rendezvous. If a
// cancellation claimed the stream in the meantime, the connection is
// discarded and the open reported as cancelled.
func (s *twoWayStream) adoptConn(conn *net.UnixConn) error {
	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		_ = conn.Close()
		s.happy.Store(false)
		return stream.NewError(stream.ErrCInterrupted, fmt.Sprintf("open of %s cancelled", s.address))
	}
	s.conn = conn
	s.state = stateOpen
	s.mu.Unlock()

	// Default contacts for standalone use; a negotiator overwrites them
	// with the real endpoint identities after the handshake.
	if !s.GetLocalAddress().Valid() {
		s.SetLocalAddress(contact.Contact{Name: s.address, Carrier: CarrierName, Host: "localhost"})
	}
	if !s.GetRemoteAddress().Valid() {
		s.SetRemoteAddress(contact.Contact{Name: s.address, Carrier: CarrierName, Host: "localhost"})
	}
	return nil
}

// requireIdle returns an error if the rendezvous has already run.
func (s *twoWayStream) requireIdle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateIdle {
		return stream.NewError(stream.ErrCOpenFailed, fmt.Sprintf("open on %s stream", s.state))
	}
	return nil
}

// --------------------------------------------------------------------------
// Contacts
// --------------------------------------------------------------------------

func (s *twoWayStream) GetLocalAddress() contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

func (s *twoWayStream) SetLocalAddress(c contact.Contact) {
	s.mu.Lock()
	s.local = c
	s.mu.Unlock()
}

func (s *twoWayStream) GetRemoteAddress() contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

func (s *twoWayStream) SetRemoteAddress(c contact.Contact) {
	s.mu.Lock()
	s.remote = c
	s.mu.Unlock()
}

// --------------------------------------------------------------------------
// Convenience Factory
// --------------------------------------------------------------------------

// Open creates the stream variant for role on address, opens it and hands
// it back as a plain ITwoWayStream. On failure the partial stream is closed
// before returning.
func Open(ctx context.Context, address string, role stream.Role) (stream.ITwoWayStream, error) {
	switch role {
	case stream.RoleListener:
		s := NewListenerStream(address)
		if err := s.Open(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case stream.RoleConnector:
		s := NewConnectorStream(address)
		if err := s.Open(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, stream.NewError(stream.ErrCOpenFailed, fmt.Sprintf("unknown role %s", role))
	}
}
