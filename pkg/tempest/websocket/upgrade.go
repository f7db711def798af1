package websocket

import (
	"bufio"
	"io"
	"time"

	"github.com/tempestws/tempest/pkg/tempest/httpwire"
)

// Upgrader is the server half of C12: given a fresh transport
// connection, it parses the HTTP request (C7), runs handshake
// validation (C8), and on success constructs a Connection with the
// negotiated parameters. Grounded on the teacher's websocket.Upgrader,
// rebuilt over httpwire/net's Hijacker-free bufio path instead of
// net/http, since this module's C7 sits below net/http entirely.
type Upgrader struct {
	// Subprotocols lists the sub-protocols this server supports. The
	// first client-requested sub-protocol found here is selected; the
	// order of this list does not affect the choice.
	Subprotocols []string

	// AllowPerMessageDeflate enables negotiating RFC 7692 compression
	// when the client also advertises it.
	AllowPerMessageDeflate bool

	// Interceptors run after handshake validation, before subprotocol/
	// extension negotiation and before the 101 response is written,
	// letting a caller reject an upgrade (e.g. on Origin or auth).
	Interceptors []Interceptor

	// Config is the base per-connection configuration; SubProtocol and
	// the Deflate* fields are overwritten with the negotiated values.
	Config Config
}

// Upgrade performs the server-side opening handshake over conn.
// conn is closed by the caller on error; on success, ownership of
// conn's lifecycle passes to the returned *Conn.
func (u *Upgrader) Upgrade(conn io.ReadWriteCloser) (*Conn, error) {
	br := bufio.NewReader(conn)

	line, err := br.ReadString('\n')
	if err != nil {
		return nil, err
	}
	rl, err := httpwire.ParseRequestLine(line)
	if err != nil {
		writeErrorResponse(conn, 400, "Bad Request")
		return nil, err
	}

	h, err := httpwire.ReadHeaderBlock(br)
	if err != nil {
		writeErrorResponse(conn, 400, "Bad Request")
		return nil, err
	}

	key, err := ValidateServerRequest(rl.Method, h)
	if err != nil {
		if err == ErrUnsupportedVersion {
			writeVersionRejection(conn)
		} else {
			writeErrorResponse(conn, 400, "Bad Request")
		}
		return nil, err
	}

	req := &HandshakeRequest{Path: rl.Path, Headers: h, Key: key}
	accept := Chain(func(*HandshakeRequest) error { return nil }, u.Interceptors...)
	if err := accept(req); err != nil {
		writeErrorResponse(conn, 403, "Forbidden")
		return nil, err
	}

	subproto := NegotiateSubprotocol(RequestedSubprotocols(h), u.Subprotocols)
	deflateOK, noCtx := NegotiateServerExtensions(h, u.AllowPerMessageDeflate)

	var resp httpwire.Header
	resp.Add("Upgrade", "websocket")
	resp.Add("Connection", "Upgrade")
	resp.Add("Sec-WebSocket-Accept", ComputeAcceptKey(key))
	if subproto != "" {
		resp.Add("Sec-WebSocket-Protocol", subproto)
	}
	if deflateOK {
		resp.Add("Sec-WebSocket-Extensions", deflateExtensionToken(noCtx))
	}

	bw := bufio.NewWriter(conn)
	if err := httpwire.WriteStatusHead(bw, "HTTP/1.1", 101, "Switching Protocols", &resp); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}

	cfg := u.Config
	cfg.SubProtocol = subproto
	cfg.DeflateEnabled = deflateOK
	cfg.DeflateNoContextTakeover = noCtx
	if cfg.CloseHandshakeTimeout == 0 {
		cfg.CloseHandshakeTimeout = 5 * time.Second
	}

	transport := &bufferedConn{r: br, Writer: conn, Closer: conn}
	return newConn(transport, true, cfg), nil
}

func deflateExtensionToken(noContextTakeover bool) string {
	if noContextTakeover {
		return "permessage-deflate; client_no_context_takeover; server_no_context_takeover"
	}
	return "permessage-deflate"
}

func writeErrorResponse(conn io.Writer, code int, reason string) {
	bw := bufio.NewWriter(conn)
	var h httpwire.Header
	h.Add("Connection", "close")
	_ = httpwire.WriteStatusHead(bw, "HTTP/1.1", code, reason, &h)
	_ = bw.Flush()
}

func writeVersionRejection(conn io.Writer) {
	bw := bufio.NewWriter(conn)
	var h httpwire.Header
	h.Add("Sec-WebSocket-Version", "13")
	h.Add("Connection", "close")
	_ = httpwire.WriteStatusHead(bw, "HTTP/1.1", 426, "Upgrade Required", &h)
	_ = bw.Flush()
}
