package stream_test

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/drdanz/yarp-unix-socket/lib/stream"
)

func TestTeeRecordsReads(t *testing.T) {
	ca, cb := net.Pipe()
	tee := stream.NewTee(stream.NewConnStream(ca))
	peer := stream.NewConnStream(cb)
	defer func() {
		_ = tee.Close()
		_ = peer.Close()
	}()

	go func() {
		if _, err := peer.Write([]byte("hello")); err != nil {
			t.Errorf("peer write failed: %v", err)
		}
	}()

	buf := make([]byte, 5)
	if _, err := io.ReadFull(tee, buf); err != nil {
		t.Fatalf("read through tee failed: %v", err)
	}
	if got := tee.GetMonitor(); !bytes.Equal(got, []byte("hello")) {
		t.Errorf("expected monitor snapshot %q, got %q", "hello", got)
	}
}

func TestTeeRecordsWrites(t *testing.T) {
	ca, cb := net.Pipe()
	tee := stream.NewTee(stream.NewConnStream(ca))
	peer := stream.NewConnStream(cb)
	defer func() {
		_ = tee.Close()
		_ = peer.Close()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 5)
		if _, err := io.ReadFull(peer, buf); err != nil {
			t.Errorf("peer read failed: %v", err)
		}
	}()

	if _, err := tee.Write([]byte("world")); err != nil {
		t.Fatalf("write through tee failed: %v", err)
	}
	<-done

	if got := tee.GetMonitor(); !bytes.Equal(got, []byte("world")) {
		t.Errorf("expected monitor snapshot %q, got %q", "world", got)
	}

	// the snapshot is a copy, not a view into the write buffer
	got := tee.GetMonitor()
	got[0] = 'X'
	if again := tee.GetMonitor(); !bytes.Equal(again, []byte("world")) {
		t.Errorf("monitor snapshot leaked shared memory: %q", again)
	}
}
