/*
Package carrier implements the pluggable connection-type layer on top of the
stream transports.

A carrier is one connection protocol: it recognises its connections by an
eight-byte code sent at the start of a connection and knows how to upgrade
both ends of an established link to its own transport. The package provides
the carrier contract, a concurrent registry of carrier factories and the
handshake glue that runs a negotiation over any ITwoWayStream.

The package focuses on:

  - Carrier Contract: the ICarrier interface with the recognition code
    handling (Header, CheckHeader) and the two upgrade directions
    (RespondToHeader for the receiver, ExpectReplyToHeader for the sender)

  - Connection State: the IConnectionState seam through which a carrier
    swaps the stream carrying a connection, plus a minimal concrete
    implementation that owns and closes streams it lets go of

  - Registry: a concurrent name -> factory map with lookup by protocol name
    or by received recognition code

  - Handshake: Initiate and Accept, the sender and receiver halves of a
    negotiation

Key Components:

  - ICarrier, Factory: the plugin contract (implementations live in
    subpackages, e.g. carrier/unix)

  - Registry: Register, Find, FindByHeader, Names

  - ConnectionState: NewConnectionState, Streams, TakeStreams

  - Initiate / Accept: run one negotiation over the connection's current
    stream
*/
package carrier
