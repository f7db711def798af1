// Package transport is the thin TCP/TLS boundary the WebSocket
// connectors (C12) sit on top of: accept/dial a net.Conn and hand it
// to the handshake layer. It deliberately carries none of the
// teacher's HTTP connection pooling, multiplexing, or protocol
// negotiation — that belongs to http11/http2/http3, which this module
// does not implement (see DESIGN.md).
package transport

import (
	"context"
	"crypto/tls"
	"net"
)

// Listener accepts plain or TLS connections for a WebSocket server.
// The caller supplies its own *tls.Config (certificate provisioning is
// an external collaborator per spec.md §6.3 — this package never reads
// or manages TLS state beyond wrapping the listener).
type Listener struct {
	ln        net.Listener
	tlsConfig *tls.Config
}

// Listen opens a TCP listener on addr. When tlsConfig is non-nil,
// accepted connections are wrapped with tls.Server.
func Listen(addr string, tlsConfig *tls.Config) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, tlsConfig: tlsConfig}, nil
}

// Accept blocks for the next inbound connection.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	if l.tlsConfig != nil {
		return tls.Server(conn, l.tlsConfig), nil
	}
	return conn, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Dial connects to addr, optionally over TLS when tlsConfig is
// non-nil. The returned net.Conn is ready for the HTTP upgrade
// handshake (C12's client path).
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
	return conn, nil
}
