package stream

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drdanz/yarp-unix-socket/lib/contact"
)

// --------------------------------------------------------------------------
// net.Conn Adapter
// --------------------------------------------------------------------------

// ConnStream adapts an established net.Conn to the ITwoWayStream contract.
// Connections start out on a ConnStream before a carrier swaps in a
// specialised stream during the handshake.
//
// The adapter treats every read or write failure as fatal for the stream's
// health; transports with finer-grained rules implement the contract
// themselves.
type ConnStream struct {
	Tap

	conn      net.Conn
	closed    atomic.Bool // no further reads permitted
	happy     atomic.Bool // health flag
	closeOnce sync.Once

	addrMu sync.Mutex
	local  contact.Contact
	remote contact.Contact
}

// NewConnStream wraps conn. The local and remote contacts are initialised
// from the connection's addresses and may be overwritten by the negotiator.
func NewConnStream(conn net.Conn) *ConnStream {
	s := &ConnStream{
		conn:   conn,
		local:  contact.FromNetAddr(conn.LocalAddr()),
		remote: contact.FromNetAddr(conn.RemoteAddr()),
	}
	s.happy.Store(true)
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see stream.ITwoWayStream)
// --------------------------------------------------------------------------

func (s *ConnStream) Read(p []byte) (int, error) {
	if s.closed.Load() || !s.happy.Load() {
		return 0, NewError(ErrCClosed, "read on closed stream")
	}

	n, err := s.conn.Read(p)

	// A cancellation that claimed the stream while the read was in flight
	// wins over whatever the read returned.
	if s.closed.Load() {
		s.happy.Store(false)
		return 0, NewError(ErrCInterrupted, "read cancelled")
	}
	if err != nil {
		s.happy.Store(false)
		if errors.Is(err, io.EOF) {
			return n, io.EOF
		}
		return n, NewError(ErrCIO, fmt.Sprintf("read: %v", err))
	}
	return n, nil
}

func (s *ConnStream) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, NewError(ErrCClosed, "write on closed stream")
	}
	if len(p) == 0 {
		return 0, nil
	}

	n, err := s.conn.Write(p)
	if err != nil {
		s.happy.Store(false)
		return n, NewError(ErrCIO, fmt.Sprintf("write: %v", err))
	}
	return n, nil
}

func (s *ConnStream) Flush() error       { return nil }
func (s *ConnStream) Reset() error       { return nil }
func (s *ConnStream) BeginPacket() error { return nil }
func (s *ConnStream) EndPacket() error   { return nil }

func (s *ConnStream) IsOK() bool {
	return s.happy.Load()
}

func (s *ConnStream) Interrupt() {
	if s.closed.CompareAndSwap(false, true) {
		// Expiring the deadline releases a blocked read or write without
		// touching the connection itself.
		_ = s.conn.SetDeadline(time.Now())
	}
}

func (s *ConnStream) Close() error {
	s.Interrupt()
	s.happy.Store(false)

	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func (s *ConnStream) GetLocalAddress() contact.Contact {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	return s.local
}

func (s *ConnStream) SetLocalAddress(c contact.Contact) {
	s.addrMu.Lock()
	s.local = c
	s.addrMu.Unlock()
}

func (s *ConnStream) GetRemoteAddress() contact.Contact {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	return s.remote
}

func (s *ConnStream) SetRemoteAddress(c contact.Contact) {
	s.addrMu.Lock()
	s.remote = c
	s.addrMu.Unlock()
}
