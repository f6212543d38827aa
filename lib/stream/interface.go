package stream

import (
	"fmt"
	"github.com/drdanz/yarp-unix-socket/lib/contact"
)

// --------------------------------------------------------------------------
// Roles
// --------------------------------------------------------------------------

// Role selects which side of the rendezvous a stream takes.
type Role uint8

const (
	// RoleListener binds the endpoint address and waits for exactly one peer.
	// Only this side ever creates or removes the address entry.
	RoleListener Role = iota
	// RoleConnector dials an endpoint address owned by a listener.
	RoleConnector
)

// String implements the Stringer interface for Role.
func (r Role) String() string {
	switch r {
	case RoleListener:
		return "listener"
	case RoleConnector:
		return "connector"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ITwoWayStream is the duplex byte stream contract every transport of this
// library fulfills. A stream is owned by one goroutine that performs the
// blocking calls (Read, Write); Interrupt and Close may be called from any
// goroutine at any time, including while the owner is blocked.
type ITwoWayStream interface {
	// Read reads up to len(p) bytes into p. It blocks until at least one
	// byte is available, the peer shuts down (io.EOF), the stream is
	// cancelled or an error occurs. On a closed or unusable stream Read
	// returns immediately with ErrCClosed.
	Read(p []byte) (n int, err error)
	// Write writes p to the stream. A write on a stream whose handles are
	// gone triggers Close and returns ErrCClosed. Writing an empty buffer
	// succeeds without side effects.
	Write(p []byte) (n int, err error)
	// Flush is a no-op for unbuffered transports and returns nil.
	Flush() error
	// Reset is a no-op for transports without protocol state and returns nil.
	Reset() error
	// BeginPacket is a no-op for transports without packet framing.
	BeginPacket() error
	// EndPacket is a no-op for transports without packet framing.
	EndPacket() error
	// IsOK reports the stream's health flag only. It goes false when the
	// peer shuts down, a write fails fatally or a cancellation completes.
	IsOK() bool
	// Interrupt cancels any blocking call the stream currently sits in and
	// marks the stream closed for further reads. Exactly one concurrent
	// caller runs the wake protocol; the others block until it has finished.
	Interrupt()
	// Close interrupts, waits for an in-flight cancellation to complete and
	// tears the stream down. It is idempotent and safe from any goroutine.
	Close() error
	// GetLocalAddress returns the contact of the local end.
	GetLocalAddress() contact.Contact
	// SetLocalAddress sets the contact of the local end. This is typically
	// done by the connection negotiator, not by the stream itself.
	SetLocalAddress(c contact.Contact)
	// GetRemoteAddress returns the contact of the remote end.
	GetRemoteAddress() contact.Contact
	// SetRemoteAddress sets the contact of the remote end.
	SetRemoteAddress(c contact.Contact)
	// SetMonitor stores a private copy of data as the current monitor
	// snapshot, replacing any previous one.
	SetMonitor(data []byte)
	// GetMonitor returns a copy of the current monitor snapshot (nil if none
	// is set).
	GetMonitor() []byte
	// RemoveMonitor discards the monitor snapshot.
	RemoveMonitor()
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the custom error type returned by stream operations. It wraps an
// error code (of type ErrCode) and a message.
type Error struct {
	Code ErrCode // The error code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StreamError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new stream Error with the given code and message.
func NewError(code ErrCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// CodeOf extracts the ErrCode from err, or ErrCUnknown if err is not a
// stream Error.
func CodeOf(err error) ErrCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ErrCUnknown
}

// IsInterrupted reports whether err marks a call that was cancelled by
// Interrupt or Close.
func IsInterrupted(err error) bool {
	return CodeOf(err) == ErrCInterrupted
}

// IsClosed reports whether err marks an operation on a closed stream.
func IsClosed(err error) bool {
	return CodeOf(err) == ErrCClosed
}

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type ErrCode uint64

const (
	ErrCUnknown     ErrCode = iota // 0: Not a stream error.
	ErrCOpenFailed                 // 1: The stream could not be established.
	ErrCClosed                     // 2: Operation on a closed or unusable stream.
	ErrCInterrupted                // 3: Blocking call cancelled from another goroutine.
	ErrCIO                         // 4: The underlying transport reported an error.
)

// String implements the Stringer interface for ErrCode.
func (c ErrCode) String() string {
	switch c {
	case ErrCOpenFailed:
		return "OpenFailed"
	case ErrCClosed:
		return "Closed"
	case ErrCInterrupted:
		return "Interrupted"
	case ErrCIO:
		return "IO"
	default:
		return "Unknown"
	}
}
