// Package unixsock implements the ITwoWayStream contract over unix-domain
// stream sockets. It is the local inter-process transport of this library:
// two processes on the same host meet on a socket address, one side binding
// and accepting exactly one peer (ListenerStream), the other side dialing
// with a short retry window (ConnectorStream).
//
// The package focuses on:
//   - A race-free, idempotent cancellation protocol: Interrupt and Close may
//     be called from any goroutine while the owner goroutine is blocked in
//     an accept or read, and unblock it within a bounded time
//   - Strict address-entry ownership: only the listener ever creates or
//     removes the socket's filesystem entry
//   - Health tracking that distinguishes a dead peer (io.EOF, fatal write
//     errors) from transient read errors
//
// Key Components:
//
//   - ListenerStream: The passive side. Open removes a stale address entry,
//     binds, and blocks until exactly one peer has connected. Close removes
//     the address entry again.
//
//   - ConnectorStream: The active side. Open dials the address, retrying a
//     fixed number of times so the listener gets a chance to finish setting
//     up. It never touches the address entry.
//
//   - Open: Convenience factory that builds and opens the variant for a
//     given role.
//
// Cancellation works by expiring the deadlines of whatever handles the
// blocked call sits in and waiting for it to acknowledge; exactly one
// claimant runs this wake protocol at a time, and Close always waits for an
// in-flight claimant before tearing the handles down. Addresses starting
// with '@' select the Linux abstract socket namespace and have no
// filesystem entry.
package unixsock
