// Package dispatch implements the command dispatcher (spec component E):
// authentication, verb routing, and response composition for the five
// tunnel verbs. It depends only on a narrow request/response interface so
// the HTTP front end (spec component F, external) can be swapped without
// touching this package.
package dispatch

import (
	"net"
	"time"

	"github.com/go-zoox/logger"

	"github.com/go-zoox/httunnel/codec"
	"github.com/go-zoox/httunnel/registry"
)

// Request is the narrow read side of the HTTP front end's contract
// (spec §4.F): method, case-insensitive header lookup, and a full-body
// reader.
type Request interface {
	Method() string
	Header(name string) string
	Body() ([]byte, error)
}

// ResponseWriter is the narrow write side of the same contract: set
// response headers, then write the body exactly once.
type ResponseWriter interface {
	SetHeader(name, value string)
	Write(body []byte) error
}

// Dispatcher holds everything E needs to route a request: the session
// key it authenticates against, the registry it consults for C, and the
// tunables spec §4.E/§9 leave to the implementation.
type Dispatcher struct {
	Registry       *registry.Registry
	SessionKey     string
	ConnectTimeout time.Duration
	ReadCap        int
}

// New builds a Dispatcher with spec-suggested defaults (10s connect
// timeout, 512 KiB read cap); callers may overwrite the fields afterwards.
func New(reg *registry.Registry, sessionKey string) *Dispatcher {
	return &Dispatcher{
		Registry:       reg,
		SessionKey:     sessionKey,
		ConnectTimeout: DefaultConnectTimeout,
		ReadCap:        DefaultReadCap,
	}
}

// Handle is the dispatcher's single entry point (spec §4.E): it
// authenticates, extracts the verb and target, and routes to one of the
// five verb handlers. Every branch ends in a 200 response carrying the
// decoy body, or the drained bytes for a READ on a known id; nothing here
// ever signals a non-200 outcome (spec §7).
func (d *Dispatcher) Handle(req Request, resp ResponseWriter) {
	if !d.authenticate(req) {
		logger.Debugf("[dispatch] auth failed")
		d.decoy(resp)
		return
	}

	cmdToken, err := codec.Decode(req.Header(HeaderCmd))
	if err != nil {
		d.fail(resp, "bad command encoding")
		return
	}

	// POLL carries no target; every other verb requires one (spec §4.E:
	// "missing target" is a BadCommand, observable as FAIL).
	if cmdToken == codec.CmdPoll {
		d.handlePoll(resp)
		return
	}

	targetToken, err := codec.Decode(req.Header(HeaderTarget))
	if err != nil {
		d.fail(resp, "missing or bad target")
		return
	}

	switch cmdToken {
	case codec.CmdConnect:
		d.handleConnect(targetToken, resp)
	case codec.CmdDisconnect:
		d.handleDisconnect(targetToken, resp)
	case codec.CmdForward:
		d.handleForward(targetToken, req, resp)
	case codec.CmdRead:
		d.handleRead(targetToken, resp)
	default:
		d.fail(resp, "unknown command")
	}
}

// authenticate implements spec §4.E: the cookie must decode to exactly
// the configured session key.
func (d *Dispatcher) authenticate(req Request) bool {
	cookie := req.Header(HeaderCookie)
	if cookie == "" {
		return false
	}
	decoded, err := codec.Decode(cookie)
	if err != nil {
		return false
	}
	return decoded == d.SessionKey
}

func (d *Dispatcher) handleConnect(target string, resp ResponseWriter) {
	conn, err := net.DialTimeout("tcp", target, d.ConnectTimeout)
	if err != nil {
		logger.Debugf("[dispatch] connect %s failed: %s", target, err)
		d.fail(resp, "connect failed")
		return
	}

	id, _ := d.Registry.Create(conn)
	logger.Debugf("[dispatch] connected %s -> %s", id, target)

	resp.SetHeader(HeaderStatus, codec.Encode(id))
	_ = resp.Write([]byte(codec.DecoyBody))
}

func (d *Dispatcher) handleDisconnect(id string, resp ResponseWriter) {
	d.Registry.Remove(id)
	d.ok(resp)
}

func (d *Dispatcher) handleForward(id string, req Request, resp ResponseWriter) {
	record, err := d.Registry.Lookup(id)
	if err != nil {
		d.fail(resp, "unknown connection")
		return
	}

	body, err := req.Body()
	if err != nil {
		d.fail(resp, "bad body")
		return
	}

	if err := record.WriteOutbound(body); err != nil {
		logger.Debugf("[dispatch] forward %s failed: %s", id, err)
		d.Registry.Remove(id)
		d.fail(resp, "write failed")
		return
	}

	d.ok(resp)
}

func (d *Dispatcher) handleRead(id string, resp ResponseWriter) {
	record, err := d.Registry.Lookup(id)
	if err != nil {
		d.fail(resp, "unknown connection")
		return
	}

	data, terminal := record.DrainInbound(d.ReadCap)
	if len(data) == 0 && terminal {
		d.Registry.Remove(id)
		resp.SetHeader(HeaderStatus, codec.Encode(codec.StatusClosed))
		_ = resp.Write(nil)
		return
	}

	resp.SetHeader(HeaderStatus, codec.Encode(codec.StatusOK))
	_ = resp.Write(data)
}

func (d *Dispatcher) handlePoll(resp ResponseWriter) {
	d.ok(resp)
}

func (d *Dispatcher) ok(resp ResponseWriter) {
	resp.SetHeader(HeaderStatus, codec.Encode(codec.StatusOK))
	_ = resp.Write([]byte(codec.DecoyBody))
}

func (d *Dispatcher) fail(resp ResponseWriter, reason string) {
	resp.SetHeader(HeaderStatus, codec.Encode(codec.StatusFail))
	resp.SetHeader(HeaderError, codec.Encode(reason))
	_ = resp.Write([]byte(codec.DecoyBody))
}

func (d *Dispatcher) decoy(resp ResponseWriter) {
	_ = resp.Write([]byte(codec.DecoyBody))
}
