// Package httpserver builds the process http.Server. Handler timeouts are
// enforced per-route by the middleware chain; the limits here only bound
// slow or stalled clients.
package httpserver

import (
	"net/http"
	"time"
)

const (
	// readHeaderTimeout caps how long a client may dribble request headers.
	readHeaderTimeout = 5 * time.Second
	// idleTimeout bounds keep-alive connections from agent tooling that
	// polls submission status.
	idleTimeout = 2 * time.Minute
)

// New builds the server for the given listen address and router.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}
