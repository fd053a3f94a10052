// Package server implements the HTTP front end (spec component F,
// external contract): it accepts GET/POST requests, adapts them to
// dispatch.Request/dispatch.ResponseWriter, and hands them to the
// dispatcher.
package server

import (
	"fmt"
	"io"

	"github.com/go-zoox/logger"
	"github.com/go-zoox/ratelimit"
	"github.com/go-zoox/zoox"
	zd "github.com/go-zoox/zoox/defaults"
	"github.com/google/uuid"

	"github.com/go-zoox/httunnel/dispatch"
)

// Path is the single fixed endpoint every verb is multiplexed through.
// A reGeorg-style tunnel deliberately exposes one innocuous-looking path
// rather than one route per verb.
const Path = "/tunnel"

type Server struct {
	Dispatcher *dispatch.Dispatcher

	// RateLimit bounds requests per remote address; zero disables it.
	RateLimit       int64
	RateLimitWindow string
}

func New(d *dispatch.Dispatcher) *Server {
	return &Server{
		Dispatcher:      d,
		RateLimit:       120,
		RateLimitWindow: "1m",
	}
}

// Run binds to 0.0.0.0:port and blocks serving requests (spec §6 CLI
// contract: bind on 0.0.0.0, exit non-zero on bind failure).
func (s *Server) Run(port int) error {
	core := zd.Default()

	if s.RateLimit > 0 {
		limiter, err := ratelimit.New(&ratelimit.Config{
			Max:    s.RateLimit,
			Window: s.RateLimitWindow,
		})
		if err != nil {
			return fmt.Errorf("failed to build rate limiter: %v", err)
		}
		core.Use(func(ctx *zoox.Context) {
			key := ctx.Request.RemoteAddr
			if !limiter.Allow(key) {
				ctx.Status(429)
				return
			}
			ctx.Next()
		})
	}

	core.Use(func(ctx *zoox.Context) {
		requestID := uuid.NewString()
		logger.Debugf("[server][%s] %s %s", requestID, ctx.Request.Method, ctx.Request.URL.Path)
		ctx.Next()
	})

	handler := func(ctx *zoox.Context) {
		s.Dispatcher.Handle(&contextRequest{ctx: ctx}, &contextResponse{ctx: ctx})
	}

	core.Get(Path, handler)
	core.Post(Path, handler)

	logger.Info("[server] listening on 0.0.0.0:%d", port)
	return core.Run(fmt.Sprintf("0.0.0.0:%d", port))
}

// contextRequest adapts *zoox.Context to dispatch.Request.
type contextRequest struct {
	ctx *zoox.Context
}

func (r *contextRequest) Method() string { return r.ctx.Request.Method }
func (r *contextRequest) Header(name string) string {
	return r.ctx.Request.Header.Get(name)
}
func (r *contextRequest) Body() ([]byte, error) {
	defer r.ctx.Request.Body.Close()
	return io.ReadAll(r.ctx.Request.Body)
}

// contextResponse adapts *zoox.Context to dispatch.ResponseWriter.
type contextResponse struct {
	ctx *zoox.Context
}

func (w *contextResponse) SetHeader(name, value string) {
	w.ctx.Writer.Header().Set(name, value)
}

func (w *contextResponse) Write(body []byte) error {
	w.ctx.Status(200)
	_, err := w.ctx.Writer.Write(body)
	return err
}
