package connection

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/go-zoox/logger"
)

// DefaultReadBufferSize is the scratch buffer size suggested by spec §4.D
// (8-64 KiB).
const DefaultReadBufferSize = 32 * 1024

// readDeadline is the soft per-read deadline spec §5 asks for, so the
// pump can notice Close() promptly even on an otherwise idle socket.
// Timing out a read is never treated as an error.
const readDeadline = 3 * time.Second

// pauseBackoff is how long the pump sleeps while backpressure has it
// paused, before checking again.
const pauseBackoff = 50 * time.Millisecond

// StartReadPump launches the background activity spec §4.D calls "D" for
// r: it reads from the owned socket and appends into r's inbound queue
// until EOF, a fatal error, or r.Close() shuts the read half down. It
// never touches the registry, only its own record (spec §4.D).
func StartReadPump(r *Record) {
	go func() {
		buf := make([]byte, DefaultReadBufferSize)

		for {
			if r.IsClosed() {
				return
			}

			if r.ShouldPause() {
				time.Sleep(pauseBackoff)
				continue
			}

			_ = r.socket.SetReadDeadline(time.Now().Add(readDeadline))

			n, err := r.socket.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				r.AppendInbound(chunk)
			}

			if err == nil {
				continue
			}

			if isTimeout(err) {
				continue
			}

			if errors.Is(err, io.EOF) {
				logger.Debugf("[connection: %s] peer closed connection", r.ID)
			} else {
				logger.Debugf("[connection: %s] read pump stopping: %s", r.ID, err)
			}

			r.MarkPeerClosed()
			return
		}
	}()
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
