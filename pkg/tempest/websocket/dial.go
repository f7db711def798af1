package websocket

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tempestws/tempest/pkg/tempest/httpwire"
)

// DialOptions configures the client half of C12.
type DialOptions struct {
	Host         string // value of the Host header
	Path         string // request path, defaults to "/"
	Subprotocols []string
	AllowPerMessageDeflate bool
	ExtraHeaders *httpwire.Header
	Config       Config
}

// Dial performs the client-side opening handshake over an
// already-connected transport (opened externally, per spec.md §4.12:
// "open transport (configured externally)"). On success it returns the
// Connection and the negotiated HandshakeResult.
func Dial(conn io.ReadWriteCloser, opts DialOptions) (*Conn, *HandshakeResult, error) {
	path := opts.Path
	if path == "" {
		path = "/"
	}

	key, err := GenerateClientKey()
	if err != nil {
		return nil, nil, err
	}

	var req httpwire.Header
	req.Add("Host", opts.Host)
	req.Add("Upgrade", "websocket")
	req.Add("Connection", "Upgrade")
	req.Add("Sec-WebSocket-Key", key)
	req.Add("Sec-WebSocket-Version", "13")
	if len(opts.Subprotocols) > 0 {
		req.Add("Sec-WebSocket-Protocol", strings.Join(opts.Subprotocols, ", "))
	}
	if opts.AllowPerMessageDeflate {
		req.Add("Sec-WebSocket-Extensions", "permessage-deflate; client_no_context_takeover; server_no_context_takeover")
	}
	if opts.ExtraHeaders != nil {
		opts.ExtraHeaders.VisitAll(func(name, value string) { req.Add(name, value) })
	}

	bw := bufio.NewWriter(conn)
	if err := httpwire.WriteRequestHead(bw, "GET", path, "HTTP/1.1", &req); err != nil {
		return nil, nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, nil, err
	}

	br := bufio.NewReader(conn)
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, nil, err
	}
	sl, err := httpwire.ParseStatusLine(line)
	if err != nil {
		return nil, nil, fmt.Errorf("websocket: invalid status line: %w", err)
	}

	respHeaders, err := httpwire.ReadHeaderBlock(br)
	if err != nil {
		return nil, nil, err
	}

	result, err := ValidateClientResponse(key, sl.Code, respHeaders)
	if err != nil {
		return nil, nil, err
	}

	cfg := opts.Config
	cfg.SubProtocol = result.Subprotocol
	cfg.DeflateEnabled = result.Deflate
	cfg.DeflateNoContextTakeover = result.NoContextTakeover
	if cfg.CloseHandshakeTimeout == 0 {
		cfg.CloseHandshakeTimeout = 5 * time.Second
	}

	transport := &bufferedConn{r: br, Writer: conn, Closer: conn}
	return newConn(transport, false, cfg), result, nil
}
