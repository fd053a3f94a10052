package connection

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestStartReadPumpFeedsInbound(t *testing.T) {
	client, server := localPipe(t)
	defer client.Close()

	r := New("pump-1", server)
	StartReadPump(r)

	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %s", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		data, _ := r.DrainInbound(1024)
		if len(data) > 0 {
			if string(data) != "ping" {
				t.Fatalf("expected %q, got %q", "ping", data)
			}
			return true
		}
		return false
	})

	r.Close()
}

func TestStartReadPumpMarksPeerClosedOnEOF(t *testing.T) {
	client, server := localPipe(t)
	defer server.Close()

	r := New("pump-2", server)
	StartReadPump(r)

	client.Close()

	waitFor(t, 2*time.Second, r.IsClosedByPeer)
}

func TestStartReadPumpStopsOnClose(t *testing.T) {
	client, server := localPipe(t)
	defer client.Close()

	r := New("pump-3", server)
	StartReadPump(r)
	r.Close()

	// the pump should observe r.IsClosed() and return without blocking;
	// there is nothing to assert directly beyond this not hanging, so
	// give it a moment then check the record's state is consistent.
	time.Sleep(100 * time.Millisecond)
	if !r.IsClosed() {
		t.Fatalf("expected record to remain closed")
	}
}
