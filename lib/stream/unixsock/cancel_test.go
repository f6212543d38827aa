package unixsock

import (
	"context"
	"github.com/drdanz/yarp-unix-socket/lib/clock"
	"github.com/drdanz/yarp-unix-socket/lib/stream"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingHooks wraps a stream's role hooks and counts wake rounds.
type countingHooks struct {
	inner roleHooks
	wakes atomic.Int32
}

func (h *countingHooks) wakeHandles() {
	h.wakes.Add(1)
	h.inner.wakeHandles()
}

func (h *countingHooks) closeHandles() error {
	return h.inner.closeHandles()
}

// TestInterruptSingleClaimant checks that concurrent Interrupt callers elect
// exactly one claimant: the total number of wake rounds never exceeds what a
// single claimant may spend, no matter how many goroutines race.
func TestInterruptSingleClaimant(t *testing.T) {
	_, cs, cleanup := newStreamPair(t)
	defer cleanup()

	hooks := &countingHooks{inner: cs.hooks}
	cs.hooks = hooks

	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 16)
		_, err := cs.Read(buf)
		readErr <- err
	}()

	// let the reader block
	time.Sleep(50 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cs.Interrupt()
		}()
	}
	wg.Wait()

	select {
	case err := <-readErr:
		if !stream.IsInterrupted(err) {
			t.Errorf("expected ErrCInterrupted from the cancelled read, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("interrupt did not release the blocked read")
	}

	if got := hooks.wakes.Load(); got < 1 || got > wakeAttempts {
		t.Errorf("expected 1..%d wake rounds from a single claimant, got %d", wakeAttempts, got)
	}
}

func TestInterruptDuringAccept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accept.sock")
	ls := NewListenerStream(path)

	openErr := make(chan error, 1)
	go func() { openErr <- ls.Open(context.Background()) }()

	// let the listener block in accept
	time.Sleep(50 * time.Millisecond)
	ls.Interrupt()

	select {
	case err := <-openErr:
		if !stream.IsInterrupted(err) {
			t.Errorf("expected ErrCInterrupted from the cancelled open, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("interrupt did not release the pending accept")
	}

	if ls.IsOK() {
		t.Errorf("cancelled open must leave the stream unhealthy")
	}
	if err := ls.Close(); err != nil {
		t.Errorf("close after cancelled open failed: %v", err)
	}
}

func TestContextCancelDuringAccept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accept.sock")
	ls := NewListenerStream(path)

	ctx, cancel := context.WithCancel(context.Background())
	openErr := make(chan error, 1)
	go func() { openErr <- ls.Open(ctx) }()

	// let the listener block in accept
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-openErr:
		if !stream.IsInterrupted(err) {
			t.Errorf("expected ErrCInterrupted from the cancelled open, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("context cancellation did not release the pending accept")
	}

	if err := ls.Close(); err != nil {
		t.Errorf("close after cancelled open failed: %v", err)
	}
}

// TestConnectorRetriesDial checks the rendezvous pacing: a connector without
// a listener dials the full number of attempts with the fixed pause in
// between before giving up.
func TestConnectorRetriesDial(t *testing.T) {
	clk := clock.NewManual(time.Now())
	cs := NewConnectorStreamWithClock(filepath.Join(t.TempDir(), "nobody.sock"), clk)

	err := cs.Open(context.Background())
	if stream.CodeOf(err) != stream.ErrCOpenFailed {
		t.Fatalf("expected ErrCOpenFailed without a listener, got %v", err)
	}

	delays := clk.Delays()
	if len(delays) != connectAttempts {
		t.Errorf("expected %d paced retries, got %d", connectAttempts, len(delays))
	}
	for i, d := range delays {
		if d != connectRetryDelay {
			t.Errorf("retry %d: expected pause of %v, got %v", i, connectRetryDelay, d)
		}
	}
}

func TestConnectorDialCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cs := NewConnectorStream(filepath.Join(t.TempDir(), "nobody.sock"))
	err := cs.Open(ctx)
	if !stream.IsInterrupted(err) {
		t.Errorf("expected ErrCInterrupted from cancelled dial, got %v", err)
	}
	if cs.IsOK() {
		t.Errorf("cancelled open must leave the stream unhealthy")
	}
}

func TestInterruptAfterCloseReturnsImmediately(t *testing.T) {
	ls, _, cleanup := newStreamPair(t)
	defer cleanup()

	if err := ls.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		ls.Interrupt()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("interrupt after close must not block")
	}
}
