// Package connection implements the per-tunneled-TCP-connection state
// (spec component B, "connection record") and the background activity
// that keeps its inbound queue fed (spec component D, "read pump").
package connection

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-zoox/datetime"
	"github.com/go-zoox/logger"
	"github.com/go-zoox/retry"
)

// Soft cap on a record's inbound queue and the watermarks the read pump
// uses to apply backpressure (spec §9, first open question: the wire
// protocol does not specify a cap, so this is a local implementation
// choice, not a contract with the client).
const (
	DefaultHighWaterMark = 2 << 20 // 2 MiB
	DefaultLowWaterMark  = 512 << 10
)

// Record is the connection record spec §3 calls "B": socket handle,
// inbound queue, status flags, and last-activity timestamp.
type Record struct {
	ID string

	socket net.Conn

	mu           sync.Mutex
	inbound      [][]byte
	inboundBytes int

	closedByPeer bool
	closed       bool
	lastActivity time.Time
	paused       bool

	highWaterMark int
	lowWaterMark  int
}

// New wraps an already-connected outbound socket in a fresh record. id
// must come from the registry (spec §4.C) so that it stays unique for the
// process lifetime.
func New(id string, socket net.Conn) *Record {
	return &Record{
		ID:            id,
		socket:        socket,
		lastActivity:  time.Now(),
		highWaterMark: DefaultHighWaterMark,
		lowWaterMark:  DefaultLowWaterMark,
	}
}

// Socket exposes the owned net.Conn. Only the read pump should read from
// it; everything else goes through AppendInbound/DrainInbound/WriteOutbound.
func (r *Record) Socket() net.Conn {
	return r.socket
}

// AppendInbound is append-only and must only be called by the record's
// own read pump (spec §3 invariant). It is a no-op once the peer has
// closed, matching "once closed_by_peer is true, the read pump performs
// no further appends".
func (r *Record) AppendInbound(data []byte) {
	if len(data) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closedByPeer {
		return
	}

	r.inbound = append(r.inbound, data)
	r.inboundBytes += len(data)
	r.lastActivity = time.Now()
	if r.inboundBytes >= r.highWaterMark {
		r.paused = true
	}
}

// SetWatermarks overrides the default backpressure thresholds. Must be
// called before the read pump starts appending.
func (r *Record) SetWatermarks(high, low int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highWaterMark = high
	r.lowWaterMark = low
}

// ShouldPause reports whether the read pump should stop issuing new
// socket reads until DrainInbound brings the queue back under the
// low-water mark (spec §9 backpressure).
func (r *Record) ShouldPause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// DrainInbound removes and returns up to max bytes, in the order the read
// pump appended them (spec §5: FIFO delivery). terminal reports the
// half-close condition: nothing left to drain and the peer already
// closed, which the dispatcher turns into the CLOSED response (spec §4.E).
func (r *Record) DrainInbound(max int) (data []byte, terminal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.inbound) > 0 && len(data) < max {
		chunk := r.inbound[0]
		remaining := max - len(data)

		if remaining >= len(chunk) {
			data = append(data, chunk...)
			r.inbound = r.inbound[1:]
		} else {
			data = append(data, chunk[:remaining]...)
			r.inbound[0] = chunk[remaining:]
		}
	}

	r.inboundBytes -= len(data)
	if r.inboundBytes < 0 {
		r.inboundBytes = 0
	}
	if r.paused && r.inboundBytes <= r.lowWaterMark {
		r.paused = false
	}

	if len(data) > 0 {
		r.lastActivity = time.Now()
	}

	terminal = len(data) == 0 && r.closedByPeer
	return data, terminal
}

// WriteOutbound performs a full write to the socket, retrying short
// writes within the call (spec §4.B, §7 "transient I/O... retried within
// a single request"), and returns an error on socket failure.
func (r *Record) WriteOutbound(data []byte) error {
	if r.IsClosed() {
		return fmt.Errorf("connection %s is closed", r.ID)
	}

	written := 0
	err := retry.Retry(func() error {
		n, werr := r.socket.Write(data[written:])
		written += n
		if werr != nil {
			return werr
		}
		if written < len(data) {
			return fmt.Errorf("short write on connection %s: %d/%d", r.ID, written, len(data))
		}
		return nil
	}, 3)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.lastActivity = time.Now()
	r.mu.Unlock()
	return nil
}

// MarkPeerClosed is set by the read pump on EOF or a fatal read error.
func (r *Record) MarkPeerClosed() {
	r.mu.Lock()
	r.closedByPeer = true
	r.mu.Unlock()
}

func (r *Record) IsClosedByPeer() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closedByPeer
}

// Close shuts down the read half of the socket first so the pump's
// blocking read returns on its own (spec §9: "read pump termination"),
// then closes the socket outright. Safe to call more than once.
func (r *Record) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	if tcp, ok := r.socket.(*net.TCPConn); ok {
		_ = tcp.CloseRead()
	}
	_ = r.socket.Close()

	logger.Debugf("[connection: %s] closed", r.ID)
}

func (r *Record) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// LastActivity is the monotonic-enough timestamp the idle janitor
// compares against its ceiling (spec §9, second open question).
func (r *Record) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

// IdleFor renders how long the record has sat idle as a human-readable
// string, for diagnostics.
func (r *Record) IdleFor() string {
	return datetime.FromTime(r.LastActivity()).Ago()
}
