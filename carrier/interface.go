package carrier

import (
	"context"

	"github.com/drdanz/yarp-unix-socket/lib/stream"
)

// HeaderSize is the length of the recognition code a sender transmits to
// identify its carrier protocol.
const HeaderSize = 8

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// ICarrier is one connection-type plugin. A carrier recognises its
// connections by an eight-byte code and upgrades both ends of an
// established link to its own transport during the connection handshake.
type ICarrier interface {
	// Name returns the unique name of the carrier protocol
	Name() string

	// Header returns the recognition code the sending side transmits first
	// (always HeaderSize bytes)
	Header() []byte

	// CheckHeader reports whether header is this carrier's recognition code
	CheckHeader(header []byte) bool

	// RequireAck reports whether every payload must be acknowledged
	RequireAck() bool

	// IsConnectionless reports whether the carrier runs over a datagram
	// transport
	IsConnectionless() bool

	// CanEscape reports whether payloads may carry administrative escapes
	CanEscape() bool

	// Supported reports whether the carrier can serve the connection
	// currently held by state
	Supported(state IConnectionState) bool

	// RespondToHeader upgrades the receiving side of the connection. It is
	// called after the recognition code arrived and may block until the
	// upgraded link is established.
	RespondToHeader(ctx context.Context, state IConnectionState) error

	// ExpectReplyToHeader upgrades the sending side of the connection. It
	// is called after the recognition code was sent and may block until the
	// upgraded link is established.
	ExpectReplyToHeader(ctx context.Context, state IConnectionState) error
}

// Factory creates a fresh carrier instance. Carriers hold per-connection
// state while upgrading, so the registry hands out a new instance per
// connection.
type Factory func() ICarrier

// IConnectionState is the negotiator's view of one connection: the stream
// currently carrying it. Carriers swap the stream during the handshake.
type IConnectionState interface {
	// Streams returns the stream currently carrying the connection, nil if
	// the connection is detached
	Streams() stream.ITwoWayStream

	// TakeStreams hands the connection a new stream, closing the previous
	// one. TakeStreams(nil) closes and detaches.
	TakeStreams(s stream.ITwoWayStream) error
}
