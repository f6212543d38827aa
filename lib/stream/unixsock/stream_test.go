package unixsock

import (
	"bytes"
	"context"
	"errors"
	"github.com/drdanz/yarp-unix-socket/lib/stream"
	streamtesting "github.com/drdanz/yarp-unix-socket/lib/stream/testing"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
)

// newStreamPairAt opens a connected listener/connector pair on path.
func newStreamPairAt(t *testing.T, path string) (*ListenerStream, *ConnectorStream, func()) {
	t.Helper()

	ls := NewListenerStream(path)
	cs := NewConnectorStream(path)

	lerr := make(chan error, 1)
	go func() { lerr <- ls.Open(context.Background()) }()

	if err := cs.Open(context.Background()); err != nil {
		_ = ls.Close()
		t.Fatalf("connector open failed: %v", err)
	}
	if err := <-lerr; err != nil {
		_ = cs.Close()
		t.Fatalf("listener open failed: %v", err)
	}

	return ls, cs, func() {
		_ = cs.Close()
		_ = ls.Close()
	}
}

func newStreamPair(t *testing.T) (*ListenerStream, *ConnectorStream, func()) {
	t.Helper()
	return newStreamPairAt(t, filepath.Join(t.TempDir(), "pair.sock"))
}

func Test(t *testing.T) {
	streamtesting.RunTwoWayStreamTests(t, "UnixSocketStream", func(t *testing.T) (a, b stream.ITwoWayStream, cleanup func()) {
		return newStreamPair(t)
	})
}

func TestOpenTwiceFails(t *testing.T) {
	ls, cs, cleanup := newStreamPair(t)
	defer cleanup()

	if err := ls.Open(context.Background()); stream.CodeOf(err) != stream.ErrCOpenFailed {
		t.Errorf("expected ErrCOpenFailed from second listener open, got %v", err)
	}
	if err := cs.Open(context.Background()); stream.CodeOf(err) != stream.ErrCOpenFailed {
		t.Errorf("expected ErrCOpenFailed from second connector open, got %v", err)
	}
}

func TestCloseBeforeOpenPoisonsStream(t *testing.T) {
	ls := NewListenerStream(filepath.Join(t.TempDir(), "early.sock"))
	if err := ls.Close(); err != nil {
		t.Fatalf("close before open failed: %v", err)
	}
	if err := ls.Open(context.Background()); stream.CodeOf(err) != stream.ErrCOpenFailed {
		t.Errorf("expected ErrCOpenFailed from open after close, got %v", err)
	}
}

func TestEmptyAddressRejected(t *testing.T) {
	if err := NewListenerStream("").Open(context.Background()); stream.CodeOf(err) != stream.ErrCOpenFailed {
		t.Errorf("expected ErrCOpenFailed for empty listener address, got %v", err)
	}
	if err := NewConnectorStream("").Open(context.Background()); stream.CodeOf(err) != stream.ErrCOpenFailed {
		t.Errorf("expected ErrCOpenFailed for empty connector address, got %v", err)
	}
}

func TestPeerCloseReadsEOF(t *testing.T) {
	ls, cs, cleanup := newStreamPair(t)
	defer cleanup()

	if err := cs.Close(); err != nil {
		t.Fatalf("peer close failed: %v", err)
	}

	buf := make([]byte, 8)
	if _, err := ls.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after orderly peer shutdown, got %v", err)
	}
	if ls.IsOK() {
		t.Errorf("peer EOF must clear the health flag")
	}

	// once unhealthy, further reads report the stream closed
	if _, err := ls.Read(buf); !stream.IsClosed(err) {
		t.Errorf("expected ErrCClosed from read on unhealthy stream, got %v", err)
	}
}

// TestEndToEndPingThenListenerClose walks one full session: rendezvous,
// a payload from the connector to the listener, then a listener-side close
// that the connector's next read observes.
func TestEndToEndPingThenListenerClose(t *testing.T) {
	ls, cs, cleanup := newStreamPair(t)
	defer cleanup()

	go func() {
		if _, err := cs.Write([]byte("PING")); err != nil {
			t.Errorf("write failed: %v", err)
		}
	}()

	buf := make([]byte, 4)
	if n, err := io.ReadFull(ls, buf); err != nil || n != 4 {
		t.Fatalf("expected to read 4 bytes, got (%d, %v)", n, err)
	}
	if !bytes.Equal(buf, []byte("PING")) {
		t.Errorf("payload corrupted: %q", buf)
	}

	if err := ls.Close(); err != nil {
		t.Fatalf("listener close failed: %v", err)
	}

	if _, err := cs.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF on the connector after the listener closed, got %v", err)
	}
	if cs.IsOK() {
		t.Errorf("peer shutdown must clear the connector's health flag")
	}
}

func TestWriteAfterPeerGoneClosesStream(t *testing.T) {
	ls, cs, cleanup := newStreamPair(t)
	defer cleanup()

	if err := cs.Close(); err != nil {
		t.Fatalf("peer close failed: %v", err)
	}

	// the first write after the peer vanished may still land in the kernel
	// buffer; the broken pipe shows up shortly after
	payload := bytes.Repeat([]byte("x"), 1024)
	var werr error
	for i := 0; i < 50; i++ {
		if _, werr = ls.Write(payload); werr != nil {
			break
		}
	}

	if werr == nil {
		t.Fatalf("expected writes to a closed peer to fail eventually")
	}
	if stream.CodeOf(werr) != stream.ErrCIO {
		t.Errorf("expected ErrCIO from broken pipe, got %v", werr)
	}
	if ls.IsOK() {
		t.Errorf("fatal write error must clear the health flag")
	}
	if _, err := ls.Read(make([]byte, 8)); !stream.IsClosed(err) {
		t.Errorf("fatal write error must close the stream, read got %v", err)
	}
}

func TestAbstractAddress(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("abstract socket namespace is linux-only")
	}

	address := AbstractPrefix + "yusock-test-" + strconv.Itoa(os.Getpid())
	ls, cs, cleanup := newStreamPairAt(t, address)
	defer cleanup()

	go func() {
		if _, err := cs.Write([]byte("ping")); err != nil {
			t.Errorf("write over abstract socket failed: %v", err)
		}
	}()
	buf := make([]byte, 4)
	if _, err := io.ReadFull(ls, buf); err != nil {
		t.Fatalf("read over abstract socket failed: %v", err)
	}
	if !bytes.Equal(buf, []byte("ping")) {
		t.Errorf("payload corrupted over abstract socket: %q", buf)
	}

	// abstract addresses never touch the filesystem
	if _, err := os.Stat(address); !os.IsNotExist(err) {
		t.Errorf("expected no filesystem entry for abstract address, stat returned %v", err)
	}
}

func TestOpenFactory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factory.sock")

	type result struct {
		s   stream.ITwoWayStream
		err error
	}
	lch := make(chan result, 1)
	go func() {
		s, err := Open(context.Background(), path, stream.RoleListener)
		lch <- result{s, err}
	}()

	cs, err := Open(context.Background(), path, stream.RoleConnector)
	if err != nil {
		t.Fatalf("factory connector open failed: %v", err)
	}
	defer func() { _ = cs.Close() }()

	lres := <-lch
	if lres.err != nil {
		t.Fatalf("factory listener open failed: %v", lres.err)
	}
	defer func() { _ = lres.s.Close() }()

	go func() {
		if _, err := cs.Write([]byte("hi")); err != nil {
			t.Errorf("write failed: %v", err)
		}
	}()
	buf := make([]byte, 2)
	if _, err := io.ReadFull(lres.s, buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(buf, []byte("hi")) {
		t.Errorf("payload corrupted: %q", buf)
	}

	if _, err := Open(context.Background(), path, stream.Role(99)); stream.CodeOf(err) != stream.ErrCOpenFailed {
		t.Errorf("expected ErrCOpenFailed for unknown role, got %v", err)
	}
}
