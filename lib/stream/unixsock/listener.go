package unixsock

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/drdanz/yarp-unix-socket/lib/clock"
	"github.com/drdanz/yarp-unix-socket/lib/stream"
)

// ListenerStream is the passive side of the rendezvous: it owns the
// endpoint address, accepts exactly one peer and removes the address entry
// again when it closes. A second pending connection in the backlog is
// abandoned on close.
type ListenerStream struct {
	twoWayStream

	lnMu sync.Mutex
	ln   *net.UnixListener
}

// NewListenerStream creates a listener stream for address using the system
// clock. The stream is inert until Open is called.
func NewListenerStream(address string) *ListenerStream {
	return NewListenerStreamWithClock(address, clock.System())
}

// NewListenerStreamWithClock creates a listener stream with a caller-chosen
// clock for the cancellation protocol's bounded waits.
func NewListenerStreamWithClock(address string, clk clock.IClock) *ListenerStream {
	s := &ListenerStream{twoWayStream: newTwoWayStream(address, stream.RoleListener, clk)}
	s.hooks = s
	return s
}

// Open binds the endpoint address and blocks until exactly one peer has
// connected. A stale filesystem entry from a previous owner is removed
// before binding. On failure the partial state (a bound but unaccepted
// listener) is left for Close to clean up. Open can be cancelled through
// ctx or a concurrent Interrupt/Close.
func (s *ListenerStream) Open(ctx context.Context) error {
	addr, err := ResolveAddress(s.address)
	if err != nil {
		metricOpenFailures.Inc()
		return err
	}
	if err := s.requireIdle(); err != nil {
		return err
	}

	// The previous owner may have died without cleaning up; a stale entry
	// would make the bind fail.
	if err := removeEntry(s.address); err != nil {
		metricOpenFailures.Inc()
		return stream.NewError(stream.ErrCOpenFailed, fmt.Sprintf("remove stale socket %s: %v", s.address, err))
	}

	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		metricOpenFailures.Inc()
		return stream.NewError(stream.ErrCOpenFailed, fmt.Sprintf("bind %s: %v", s.address, err))
	}
	// Removing the address entry is Close's job, exactly once, on this side
	// only.
	ln.SetUnlinkOnClose(false)

	s.lnMu.Lock()
	s.ln = ln
	s.lnMu.Unlock()

	// A cancellation that ran before the listener existed had nothing to
	// wake; it must not leave us blocking in an accept nobody will nudge.
	if s.interrupted() {
		_ = s.closeHandles()
		s.happy.Store(false)
		return stream.NewError(stream.ErrCInterrupted, fmt.Sprintf("open of %s cancelled", s.address))
	}

	stop := context.AfterFunc(ctx, s.Interrupt)
	defer stop()

	s.mu.Lock()
	s.blocked++
	s.mu.Unlock()

	conn, aerr := ln.AcceptUnix()

	s.exitBlocking()

	if aerr != nil {
		if s.interrupted() || ctx.Err() != nil {
			s.happy.Store(false)
			return stream.NewError(stream.ErrCInterrupted, fmt.Sprintf("accept on %s cancelled", s.address))
		}
		metricOpenFailures.Inc()
		return stream.NewError(stream.ErrCOpenFailed, fmt.Sprintf("accept on %s: %v", s.address, aerr))
	}

	if err := s.adoptConn(conn); err != nil {
		return err
	}

	metricListenerOpens.Inc()
	Logger.Infof("listener stream on %s accepted its peer", s.address)
	return nil
}

// --------------------------------------------------------------------------
// Role Hooks (docu see roleHooks)
// --------------------------------------------------------------------------

func (s *ListenerStream) wakeHandles() {
	s.lnMu.Lock()
	ln := s.ln
	s.lnMu.Unlock()
	if ln != nil {
		_ = ln.SetDeadline(time.Now())
	}
	s.wakeConn()
}

func (s *ListenerStream) closeHandles() error {
	s.lnMu.Lock()
	ln := s.ln
	s.ln = nil
	s.lnMu.Unlock()

	if ln == nil {
		return nil
	}
	err := ln.Close()
	// The listener created the entry, the listener removes it.
	if rerr := removeEntry(s.address); rerr != nil && err == nil {
		err = rerr
	}
	return err
}
