package clock

import (
	"testing"
	"time"
)

func TestSystemClock(t *testing.T) {
	clk := System()

	before := clk.Now()
	clk.Sleep(time.Millisecond)
	if !clk.Now().After(before) {
		t.Errorf("system clock did not advance across Sleep")
	}

	select {
	case <-clk.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Errorf("After(1ms) did not fire within a second")
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewManual(start)

	clk.Sleep(10 * time.Millisecond)
	<-clk.After(250 * time.Millisecond)

	if got := clk.Now(); got != start.Add(260*time.Millisecond) {
		t.Errorf("expected clock at start+260ms, got %v", got)
	}

	delays := clk.Delays()
	if len(delays) != 2 || delays[0] != 10*time.Millisecond || delays[1] != 250*time.Millisecond {
		t.Errorf("unexpected recorded delays: %v", delays)
	}
}
