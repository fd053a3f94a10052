package dispatch

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/go-zoox/httunnel/codec"
	"github.com/go-zoox/httunnel/connection"
	"github.com/go-zoox/httunnel/registry"
)

const testSessionKey = "s3cr3t"

type fakeRequest struct {
	method  string
	headers map[string]string
	body    []byte
}

func (r *fakeRequest) Method() string { return r.method }
func (r *fakeRequest) Header(name string) string {
	return r.headers[name]
}
func (r *fakeRequest) Body() ([]byte, error) { return r.body, nil }

type fakeResponse struct {
	headers map[string]string
	body    []byte
}

func newFakeResponse() *fakeResponse {
	return &fakeResponse{headers: map[string]string{}}
}
func (w *fakeResponse) SetHeader(name, value string) { w.headers[name] = value }
func (w *fakeResponse) Write(body []byte) error {
	w.body = body
	return nil
}

func newTestDispatcher() *Dispatcher {
	d := New(registry.New(), testSessionKey)
	d.ConnectTimeout = time.Second
	return d
}

func authedRequest(cmd, target string) *fakeRequest {
	headers := map[string]string{
		HeaderCookie: codec.Encode(testSessionKey),
		HeaderCmd:    codec.Encode(cmd),
	}
	if target != "" {
		headers[HeaderTarget] = codec.Encode(target)
	}
	return &fakeRequest{method: "GET", headers: headers}
}

// S1: POLL.
func TestScenarioPoll(t *testing.T) {
	d := newTestDispatcher()
	resp := newFakeResponse()

	d.Handle(authedRequest(codec.CmdPoll, ""), resp)

	status, err := codec.Decode(resp.headers[HeaderStatus])
	if err != nil || status != codec.StatusOK {
		t.Fatalf("expected OK status, got %q (err %v)", status, err)
	}
	if string(resp.body) != codec.DecoyBody {
		t.Fatalf("expected decoy body, got %q", resp.body)
	}
}

// S2: CONNECT to a listener that accepts and immediately closes.
func TestScenarioConnectToListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	d := newTestDispatcher()
	resp := newFakeResponse()
	d.Handle(authedRequest(codec.CmdConnect, ln.Addr().String()), resp)

	id, err := codec.Decode(resp.headers[HeaderStatus])
	if err != nil || id == "" {
		t.Fatalf("expected a non-empty id, got %q (err %v)", id, err)
	}

	// give the read pump a moment to observe the peer's close.
	time.Sleep(100 * time.Millisecond)

	readResp := newFakeResponse()
	d.Handle(authedRequest(codec.CmdRead, id), readResp)
	status, _ := codec.Decode(readResp.headers[HeaderStatus])

	if status == codec.StatusClosed {
		return
	}
	if status != codec.StatusOK || len(readResp.body) != 0 {
		t.Fatalf("expected empty OK or CLOSED on first read, got status=%q body=%q", status, readResp.body)
	}

	readResp2 := newFakeResponse()
	d.Handle(authedRequest(codec.CmdRead, id), readResp2)
	status2, _ := codec.Decode(readResp2.headers[HeaderStatus])
	if status2 != codec.StatusClosed {
		t.Fatalf("expected CLOSED eventually, got %q", status2)
	}
}

// S3: FORWARD/READ echo round trip.
func TestScenarioForwardReadEcho(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer ln.Close()

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go io.Copy(c, c)
		}
	}()

	d := newTestDispatcher()
	connectResp := newFakeResponse()
	d.Handle(authedRequest(codec.CmdConnect, ln.Addr().String()), connectResp)
	id, err := codec.Decode(connectResp.headers[HeaderStatus])
	if err != nil || id == "" {
		t.Fatalf("connect failed: %q (err %v)", id, err)
	}

	forwardReq := authedRequest(codec.CmdForward, id)
	forwardReq.body = []byte("hello")
	forwardResp := newFakeResponse()
	d.Handle(forwardReq, forwardResp)
	status, _ := codec.Decode(forwardResp.headers[HeaderStatus])
	if status != codec.StatusOK {
		t.Fatalf("expected forward OK, got %q", status)
	}

	var got []byte
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(got) < len("hello") {
		readResp := newFakeResponse()
		d.Handle(authedRequest(codec.CmdRead, id), readResp)
		got = append(got, readResp.body...)
		if len(got) < len("hello") {
			time.Sleep(20 * time.Millisecond)
		}
	}

	if string(got) != "hello" {
		t.Fatalf("expected echoed %q, got %q", "hello", got)
	}
}

// S4: FORWARD with an unknown id.
func TestScenarioBadID(t *testing.T) {
	d := newTestDispatcher()
	resp := newFakeResponse()

	d.Handle(authedRequest(codec.CmdForward, "nosuchid"), resp)

	status, err := codec.Decode(resp.headers[HeaderStatus])
	if err != nil || status != codec.StatusFail {
		t.Fatalf("expected FAIL, got %q (err %v)", status, err)
	}
}

// S5: CONNECT with the wrong cookie never opens a socket.
func TestScenarioAuthFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer ln.Close()

	accepts := make(chan struct{}, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepts <- struct{}{}
			c.Close()
		}
	}()

	d := newTestDispatcher()
	req := authedRequest(codec.CmdConnect, ln.Addr().String())
	req.headers[HeaderCookie] = codec.Encode("wrong-key")

	resp := newFakeResponse()
	d.Handle(req, resp)

	if string(resp.body) != codec.DecoyBody {
		t.Fatalf("expected decoy body on auth failure, got %q", resp.body)
	}
	if _, ok := resp.headers[HeaderStatus]; ok {
		t.Fatalf("expected no X-Status header on auth failure")
	}

	select {
	case <-accepts:
		t.Fatalf("expected no socket to be opened on auth failure")
	case <-time.After(100 * time.Millisecond):
	}
}

// S6: CONNECT to a black-hole address times out.
func TestScenarioConnectTimeout(t *testing.T) {
	d := newTestDispatcher()
	d.ConnectTimeout = time.Second

	resp := newFakeResponse()
	start := time.Now()
	d.Handle(authedRequest(codec.CmdConnect, "203.0.113.1:9"), resp)
	elapsed := time.Since(start)

	status, err := codec.Decode(resp.headers[HeaderStatus])
	if err != nil || status != codec.StatusFail {
		t.Fatalf("expected FAIL, got %q (err %v)", status, err)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("connect took too long: %s", elapsed)
	}
}

// Invariant: idempotent disconnect.
func TestInvariantIdempotentDisconnect(t *testing.T) {
	d := newTestDispatcher()

	first := newFakeResponse()
	d.Handle(authedRequest(codec.CmdDisconnect, "never-allocated"), first)

	second := newFakeResponse()
	d.Handle(authedRequest(codec.CmdDisconnect, "never-allocated"), second)

	if string(first.body) != string(second.body) {
		t.Fatalf("expected identical bodies, got %q vs %q", first.body, second.body)
	}
	// the encoded header values differ per call (random codec padding), so
	// compare what they decode to.
	firstStatus, err1 := codec.Decode(first.headers[HeaderStatus])
	secondStatus, err2 := codec.Decode(second.headers[HeaderStatus])
	if err1 != nil || err2 != nil || firstStatus != secondStatus {
		t.Fatalf("expected identical statuses, got %q vs %q (errs %v, %v)", firstStatus, secondStatus, err1, err2)
	}
}

// Invariant: id uniqueness across many CONNECTs.
func TestInvariantIDUniqueness(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer ln.Close()

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c
		}
	}()

	d := newTestDispatcher()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		resp := newFakeResponse()
		d.Handle(authedRequest(codec.CmdConnect, ln.Addr().String()), resp)
		id, err := codec.Decode(resp.headers[HeaderStatus])
		if err != nil || id == "" {
			t.Fatalf("connect %d failed: %s", i, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id: %s", id)
		}
		seen[id] = true
	}
}

// Invariant: auth gate never grows the registry.
func TestInvariantAuthGateLeavesRegistryUnchanged(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	d := newTestDispatcher()
	req := authedRequest(codec.CmdConnect, ln.Addr().String())
	req.headers[HeaderCookie] = ""

	for i := 0; i < 5; i++ {
		resp := newFakeResponse()
		d.Handle(req, resp)
	}

	count := 0
	d.Registry.ForEach(func(id string, _ *connection.Record) bool {
		count++
		return true
	})
	if count != 0 {
		t.Fatalf("expected registry to remain empty, got %d entries", count)
	}
}
