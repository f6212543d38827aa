// Package stream defines the contract for bidirectional byte streams used as
// connection transports, together with the shared error type and small
// stream adapters. Concrete transports live in subpackages (currently
// unixsock for unix-domain sockets).
//
// The package focuses on:
//   - A single duplex contract (ITwoWayStream) covering data transfer,
//     lifecycle, health reporting and cross-goroutine cancellation
//   - A typed error with stable codes so callers can tell an interrupted
//     call from a closed stream or a plain I/O failure
//   - Adapters that bridge existing connections into the contract
//
// Key Components:
//
//   - ITwoWayStream: The duplex stream interface. Read and Write follow the
//     usual io semantics; Interrupt cancels blocking calls from another
//     goroutine; Close is idempotent and waits for an in-flight cancellation
//     to finish before tearing the stream down.
//
//   - Role: Selects which side of a rendezvous a stream takes (listener or
//     connector). The two sides differ in who owns the endpoint address.
//
//   - Error / ErrCode: The custom error type returned by all stream
//     operations that fail for protocol reasons. Peer shutdown is reported
//     as io.EOF so that ordinary read loops terminate naturally.
//
//   - ConnStream: Adapts an established net.Conn to the contract. This is
//     the stream a connection starts out with before a carrier swaps in a
//     specialised one.
//
//   - Tee: Wraps a stream and feeds every transferred chunk into the
//     wrapped stream's monitor buffer.
package stream
