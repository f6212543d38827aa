// Package testing provides a reusable conformance test suite for
// ITwoWayStream implementations. Transport packages call
// RunTwoWayStreamTests from their own tests with a factory producing
// connected stream pairs.
package testing

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/drdanz/yarp-unix-socket/lib/stream"
)

// PairFactory creates a connected duplex stream pair plus a cleanup
// function releasing everything the pair holds.
type PairFactory func(t *testing.T) (a, b stream.ITwoWayStream, cleanup func())

// RunTwoWayStreamTests runs the contract test suite every ITwoWayStream
// implementation must pass.
func RunTwoWayStreamTests(t *testing.T, name string, factory PairFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Echo", func(t *testing.T) {
			testEcho(t, factory)
		})

		t.Run("LargeTransfer", func(t *testing.T) {
			testLargeTransfer(t, factory)
		})

		t.Run("EmptyWrite", func(t *testing.T) {
			testEmptyWrite(t, factory)
		})

		t.Run("NoOpOperations", func(t *testing.T) {
			testNoOpOperations(t, factory)
		})

		t.Run("Monitor", func(t *testing.T) {
			testMonitor(t, factory)
		})

		t.Run("PeerClose", func(t *testing.T) {
			testPeerClose(t, factory)
		})

		t.Run("CloseMakesInert", func(t *testing.T) {
			testCloseMakesInert(t, factory)
		})

		t.Run("InterruptUnblocksRead", func(t *testing.T) {
			testInterruptUnblocksRead(t, factory)
		})

		t.Run("CloseUnblocksRead", func(t *testing.T) {
			testCloseUnblocksRead(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// echoOnce writes payload on from and expects it back verbatim on to.
func echoOnce(t *testing.T, from, to stream.ITwoWayStream, payload []byte) {
	t.Helper()

	go func() {
		if _, err := from.Write(payload); err != nil {
			t.Errorf("write failed: %v", err)
		}
	}()

	got := make([]byte, len(payload))
	if _, err := io.ReadFull(to, got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload corrupted: sent %q, got %q", payload, got)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testEcho(t *testing.T, factory PairFactory) {
	a, b, cleanup := factory(t)
	defer cleanup()

	echoOnce(t, a, b, []byte("ping"))
	echoOnce(t, b, a, []byte("pong"))
	echoOnce(t, a, b, []byte{0x00, 0xff, 0x7f, 0x00})
}

func testLargeTransfer(t *testing.T, factory PairFactory) {
	a, b, cleanup := factory(t)
	defer cleanup()

	payload := make([]byte, 1<<20)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	go func() {
		if _, err := a.Write(payload); err != nil {
			t.Errorf("large write failed: %v", err)
		}
	}()

	got := make([]byte, len(payload))
	if _, err := io.ReadFull(b, got); err != nil {
		t.Fatalf("large read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("large payload corrupted in transit")
	}
}

func testEmptyWrite(t *testing.T, factory PairFactory) {
	a, _, cleanup := factory(t)
	defer cleanup()

	n, err := a.Write(nil)
	if n != 0 || err != nil {
		t.Errorf("empty write: expected (0, nil), got (%d, %v)", n, err)
	}

	n, err = a.Write([]byte{})
	if n != 0 || err != nil {
		t.Errorf("empty write: expected (0, nil), got (%d, %v)", n, err)
	}

	if !a.IsOK() {
		t.Errorf("empty write must not affect stream health")
	}
}

func testNoOpOperations(t *testing.T, factory PairFactory) {
	a, _, cleanup := factory(t)
	defer cleanup()

	if err := a.Flush(); err != nil {
		t.Errorf("Flush: %v", err)
	}
	if err := a.Reset(); err != nil {
		t.Errorf("Reset: %v", err)
	}
	if err := a.BeginPacket(); err != nil {
		t.Errorf("BeginPacket: %v", err)
	}
	if err := a.EndPacket(); err != nil {
		t.Errorf("EndPacket: %v", err)
	}
}

func testMonitor(t *testing.T, factory PairFactory) {
	a, _, cleanup := factory(t)
	defer cleanup()

	if got := a.GetMonitor(); got != nil {
		t.Errorf("expected no monitor snapshot initially, got %q", got)
	}

	data := []byte("snapshot")
	a.SetMonitor(data)

	// the snapshot is a private copy
	data[0] = 'X'
	got := a.GetMonitor()
	if !bytes.Equal(got, []byte("snapshot")) {
		t.Errorf("snapshot shares memory with caller data: %q", got)
	}

	// and so is the returned value
	got[0] = 'Y'
	if again := a.GetMonitor(); !bytes.Equal(again, []byte("snapshot")) {
		t.Errorf("GetMonitor should return a copy, got %q after mutation", again)
	}

	a.SetMonitor([]byte("replaced"))
	if got := a.GetMonitor(); !bytes.Equal(got, []byte("replaced")) {
		t.Errorf("SetMonitor should replace the snapshot, got %q", got)
	}

	a.RemoveMonitor()
	if got := a.GetMonitor(); got != nil {
		t.Errorf("expected no snapshot after RemoveMonitor, got %q", got)
	}
}

func testPeerClose(t *testing.T, factory PairFactory) {
	a, b, cleanup := factory(t)
	defer cleanup()

	if err := b.Close(); err != nil {
		t.Fatalf("peer close failed: %v", err)
	}

	buf := make([]byte, 16)
	if _, err := a.Read(buf); err == nil {
		t.Fatalf("expected read to fail after the peer closed")
	}
	if a.IsOK() {
		t.Errorf("stream should not be ok after the peer closed")
	}
}

func testCloseMakesInert(t *testing.T, factory PairFactory) {
	a, _, cleanup := factory(t)
	defer cleanup()

	if err := a.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if a.IsOK() {
		t.Errorf("stream should not be ok after close")
	}

	buf := make([]byte, 16)
	if _, err := a.Read(buf); !stream.IsClosed(err) {
		t.Errorf("expected ErrCClosed from read on closed stream, got %v", err)
	}
	if _, err := a.Write([]byte("x")); !stream.IsClosed(err) {
		t.Errorf("expected ErrCClosed from write on closed stream, got %v", err)
	}

	// closing again is a no-op
	if err := a.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func testInterruptUnblocksRead(t *testing.T, factory PairFactory) {
	a, _, cleanup := factory(t)
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 16)
		_, err := a.Read(buf)
		errCh <- err
	}()

	// let the reader block
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	a.Interrupt()

	select {
	case err := <-errCh:
		if err == nil {
			t.Errorf("expected the cancelled read to fail")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("interrupt did not release the blocked read")
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v, expected bounded latency", elapsed)
	}
}

func testCloseUnblocksRead(t *testing.T, factory PairFactory) {
	a, _, cleanup := factory(t)
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 16)
		_, err := a.Read(buf)
		errCh <- err
	}()

	// let the reader block
	time.Sleep(50 * time.Millisecond)

	if err := a.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Errorf("expected the read to fail once the stream closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("close did not release the blocked read")
	}

	if a.IsOK() {
		t.Errorf("stream should not be ok after close")
	}
}
