// Package unix implements the unix_stream carrier: a connection negotiated
// over any transport is upgraded to a unix domain socket pair when both
// ends live on the same host. The rendezvous path is derived from the port
// numbers of the original connection, so both ends arrive at it without
// further coordination.
package unix

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/drdanz/yarp-unix-socket/carrier"
	"github.com/drdanz/yarp-unix-socket/carrier/common"
	"github.com/drdanz/yarp-unix-socket/lib/contact"
	"github.com/drdanz/yarp-unix-socket/lib/stream"
	"github.com/drdanz/yarp-unix-socket/lib/stream/unixsock"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("carrier/unix")

// headerCode is the recognition code of the unix_stream carrier.
var headerCode = [...]byte{'U', 'N', 'I', 'X', '_', 'S', 'T', 'R'}

// Carrier upgrades a negotiated connection to a unix socket stream pair.
type Carrier struct {
	socketDir string
}

// NewCarrier creates a unix carrier placing rendezvous sockets in the
// default socket directory.
func NewCarrier() *Carrier {
	return NewCarrierWithDir(common.DefaultSocketDir)
}

// NewCarrierWithDir creates a unix carrier placing rendezvous sockets in
// dir. Both ends of a connection must use the same directory.
func NewCarrierWithDir(dir string) *Carrier {
	return &Carrier{socketDir: dir}
}

// Factory creates carriers with the default socket directory, for use with
// carrier.Registry.
func Factory() carrier.ICarrier {
	return NewCarrier()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see carrier.ICarrier)
// --------------------------------------------------------------------------

func (c *Carrier) Name() string {
	return unixsock.CarrierName
}

func (c *Carrier) Header() []byte {
	header := make([]byte, carrier.HeaderSize)
	copy(header, headerCode[:])
	return header
}

func (c *Carrier) CheckHeader(header []byte) bool {
	if len(header) != carrier.HeaderSize {
		return false
	}
	return bytes.Equal(header, headerCode[:])
}

func (c *Carrier) RequireAck() bool {
	return false
}

func (c *Carrier) IsConnectionless() bool {
	return false
}

func (c *Carrier) CanEscape() bool {
	return true
}

// Supported reports whether both connection ends live on the same host; the
// rendezvous socket cannot span machines.
func (c *Carrier) Supported(state carrier.IConnectionState) bool {
	s := state.Streams()
	if s == nil {
		return false
	}
	local := s.GetLocalAddress()
	remote := s.GetRemoteAddress()
	if local.Host != remote.Host {
		Logger.Errorf("the ports are on different machines (%s vs %s), unix socket not supported", local.Host, remote.Host)
		return false
	}
	return true
}

func (c *Carrier) RespondToHeader(ctx context.Context, state carrier.IConnectionState) error {
	// this side is the receiver
	return c.becomeUnixSocket(ctx, state, false)
}

func (c *Carrier) ExpectReplyToHeader(ctx context.Context, state carrier.IConnectionState) error {
	// this side is the sender
	return c.becomeUnixSocket(ctx, state, true)
}

// --------------------------------------------------------------------------
// Upgrade
// --------------------------------------------------------------------------

// SocketPath derives the rendezvous socket path from the two connection
// ends. Sender and receiver order the ports differently so that both
// arrive at the same path.
func (c *Carrier) SocketPath(local, remote contact.Contact, sender bool) string {
	if sender {
		return filepath.Join(c.socketDir, fmt.Sprintf("yarp-%d_%d.sock", remote.Port, local.Port))
	}
	return filepath.Join(c.socketDir, fmt.Sprintf("yarp-%d_%d.sock", local.Port, remote.Port))
}

// becomeUnixSocket swaps the connection's stream for a unix socket stream:
// the receiver owns the rendezvous path, the sender connects to it. The
// previous stream is released first so its resources are free while the
// rendezvous runs.
func (c *Carrier) becomeUnixSocket(ctx context.Context, state carrier.IConnectionState, sender bool) error {
	cur := state.Streams()
	if cur == nil {
		return fmt.Errorf("%s upgrade: connection is detached", c.Name())
	}
	local := cur.GetLocalAddress()
	remote := cur.GetRemoteAddress()

	// free up the initial transport before the rendezvous
	if err := state.TakeStreams(nil); err != nil {
		Logger.Warningf("releasing the initial stream: %v", err)
	}

	path := c.SocketPath(local, remote, sender)
	role := stream.RoleListener
	if sender {
		role = stream.RoleConnector
	}

	s, err := unixsock.Open(ctx, path, role)
	if err != nil {
		return fmt.Errorf("%s upgrade on %s: %w", c.Name(), path, err)
	}

	// the upgraded stream keeps the connection's original identities
	s.SetLocalAddress(local.WithCarrier(c.Name()))
	s.SetRemoteAddress(remote.WithCarrier(c.Name()))

	Logger.Infof("connection %s -> %s upgraded to %s on %s", local, remote, c.Name(), path)
	return state.TakeStreams(s)
}
