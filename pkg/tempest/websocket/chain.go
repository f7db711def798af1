package websocket

import "github.com/tempestws/tempest/pkg/tempest/httpwire"

// HandshakeRequest is what a server-side Interceptor inspects before
// the upgrade completes: the parsed request line/headers plus the
// already-validated Sec-WebSocket-Key.
type HandshakeRequest struct {
	Path    string
	Headers *httpwire.Header
	Key     string
}

// Handler decides whether an upgrade may proceed. Returning a non-nil
// error aborts the handshake with that error surfaced to Upgrade's
// caller (e.g. reject on a failed origin or auth check).
type Handler func(req *HandshakeRequest) error

// Interceptor wraps a Handler to add cross-cutting handshake checks —
// origin validation, auth, rate limiting — composed the same way the
// teacher's core.Middleware wraps route handlers.
type Interceptor func(Handler) Handler

// Chain composes interceptors around a base handler, applying them in
// the order given (the first interceptor in the slice is outermost),
// mirroring ChainLink.Use's reverse-order wrap so call order matches
// registration order.
func Chain(base Handler, interceptors ...Interceptor) Handler {
	h := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		h = interceptors[i](h)
	}
	return h
}
