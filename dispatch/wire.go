package dispatch

import "time"

// Fixed on-wire header names (spec §6). The names themselves carry no
// protocol meaning beyond routing; everything they carry is codec-encoded.
const (
	HeaderCookie = "Cookie"
	HeaderCmd    = "X-Cmd"
	HeaderTarget = "X-Target"
	HeaderStatus = "X-Status"
	// HeaderError is a supplemented diagnostic channel (not in the base
	// wire protocol): it carries a short, codec-encoded human-readable
	// reason alongside X-STATUS=FAIL, useful for operator-side debugging
	// without touching the client/server contract in §6.
	HeaderError = "X-Error"
)

// DefaultReadCap bounds a single READ response body (spec §4.E).
const DefaultReadCap = 512 << 10

// DefaultConnectTimeout bounds CONNECT's outbound dial (spec §4.E).
const DefaultConnectTimeout = 10 * time.Second
