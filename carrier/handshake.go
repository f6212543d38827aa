package carrier

import (
	"context"
	"fmt"
	"io"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("carrier")

// --------------------------------------------------------------------------
// Connection Handshake
// --------------------------------------------------------------------------

// Initiate runs the sending side of the handshake: transmit c's recognition
// code over the connection's current stream, then let the carrier upgrade
// the link. On success the connection's stream is the upgraded one.
func Initiate(ctx context.Context, c ICarrier, state IConnectionState) error {
	s := state.Streams()
	if s == nil {
		return fmt.Errorf("initiate %s: connection is detached", c.Name())
	}
	if !c.Supported(state) {
		return fmt.Errorf("initiate %s: carrier cannot serve this connection", c.Name())
	}

	if _, err := s.Write(c.Header()); err != nil {
		return fmt.Errorf("initiate %s: send header: %w", c.Name(), err)
	}

	Logger.Debugf("sent %s header, upgrading the sending side", c.Name())
	return c.ExpectReplyToHeader(ctx, state)
}

// Accept runs the receiving side of the handshake: read the recognition
// code from the connection's current stream, look up the carrier that
// claims it and let it upgrade the link. Returns the chosen carrier.
func Accept(ctx context.Context, reg *Registry, state IConnectionState) (ICarrier, error) {
	s := state.Streams()
	if s == nil {
		return nil, fmt.Errorf("accept: connection is detached")
	}

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(s, header); err != nil {
		return nil, fmt.Errorf("accept: read header: %w", err)
	}

	c, err := reg.FindByHeader(header)
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}

	Logger.Debugf("recognised %s header, upgrading the receiving side", c.Name())
	if err := c.RespondToHeader(ctx, state); err != nil {
		return nil, err
	}
	return c, nil
}
