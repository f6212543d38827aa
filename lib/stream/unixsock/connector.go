package unixsock

import (
	"context"
	"fmt"
	"net"

	"github.com/drdanz/yarp-unix-socket/lib/clock"
	"github.com/drdanz/yarp-unix-socket/lib/stream"
)

// ConnectorStream is the active side of the rendezvous: it dials an
// endpoint address owned by a listener. It never creates or removes the
// address entry.
type ConnectorStream struct {
	twoWayStream
}

// NewConnectorStream creates a connector stream for address using the
// system clock. The stream is inert until Open is called.
func NewConnectorStream(address string) *ConnectorStream {
	return NewConnectorStreamWithClock(address, clock.System())
}

// NewConnectorStreamWithClock creates a connector stream with a
// caller-chosen clock for the dial retry pacing.
func NewConnectorStreamWithClock(address string, clk clock.IClock) *ConnectorStream {
	s := &ConnectorStream{twoWayStream: newTwoWayStream(address, stream.RoleConnector, clk)}
	s.hooks = s
	return s
}

// Open dials the endpoint address. The listener may still be setting up, so
// a failed dial is retried a fixed number of times with a short pause in
// between before the open fails for good. Open can be cancelled through ctx
// or a concurrent Interrupt/Close.
func (s *ConnectorStream) Open(ctx context.Context) error {
	addr, err := ResolveAddress(s.address)
	if err != nil {
		metricOpenFailures.Inc()
		return err
	}
	if err := s.requireIdle(); err != nil {
		return err
	}

	var conn *net.UnixConn
	var derr error
	for i := 0; i < connectAttempts; i++ {
		conn, derr = net.DialUnix("unix", nil, addr)
		if derr == nil {
			break
		}
		select {
		case <-ctx.Done():
			s.happy.Store(false)
			return stream.NewError(stream.ErrCInterrupted, fmt.Sprintf("dial %s cancelled: %v", s.address, ctx.Err()))
		case <-s.clk.After(connectRetryDelay):
		}
	}
	if derr != nil {
		metricOpenFailures.Inc()
		Logger.Errorf("could not connect to %s after %d attempts: %v", s.address, connectAttempts, derr)
		return stream.NewError(stream.ErrCOpenFailed, fmt.Sprintf("dial %s: %v", s.address, derr))
	}

	if err := s.adoptConn(conn); err != nil {
		return err
	}

	metricConnectorOpens.Inc()
	Logger.Infof("connector stream reached its listener on %s", s.address)
	return nil
}

// --------------------------------------------------------------------------
// Role Hooks (docu see roleHooks)
// --------------------------------------------------------------------------

func (s *ConnectorStream) wakeHandles() {
	s.wakeConn()
}

func (s *ConnectorStream) closeHandles() error {
	// The data connection is the connector's only handle, and the shared
	// teardown already dropped it. The address entry belongs to the
	// listener and is never touched here.
	return nil
}
