package websocket

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/tempestws/tempest/pkg/tempest/httpwire"
)

// ComputeAcceptKey derives Sec-WebSocket-Accept from a client's
// Sec-WebSocket-Key per RFC 6455 §1.3: base64(sha1(key + GUID)).
// Lifted near-verbatim from the teacher's protocol.ComputeAcceptKey.
func ComputeAcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// GenerateClientKey returns a fresh, random 16-byte Sec-WebSocket-Key,
// base64-encoded, for a client handshake request.
func GenerateClientKey() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}

// HandshakeResult carries what the handshake negotiated: the client's
// accepted subprotocol (if any) and whether permessage-deflate was
// agreed.
type HandshakeResult struct {
	Subprotocol       string
	Deflate           bool
	NoContextTakeover bool
}

// ValidateServerRequest checks an incoming request's headers against
// RFC 6455 §4.2.1 and returns the Sec-WebSocket-Key to echo into
// Sec-WebSocket-Accept. Grounded on the teacher's Upgrader.Upgrade
// validation sequence, generalized from net/http.Header lookups to
// httpwire.Header's HasToken/Get.
func ValidateServerRequest(method string, h *httpwire.Header) (key string, err error) {
	if method != "GET" {
		return "", ErrNotWebSocketUpgrade
	}
	if !h.HasToken("Connection", "upgrade") {
		return "", ErrNotWebSocketUpgrade
	}
	if !h.HasToken("Upgrade", "websocket") {
		return "", ErrNotWebSocketUpgrade
	}
	// A client advertising a version newer than 13 is still accepted
	// and answered at 13, rather than rejected with 426: only a version
	// older than 13 is genuinely unsupported.
	version, convErr := strconv.Atoi(h.Get("Sec-WebSocket-Version"))
	if convErr != nil || version < 13 {
		return "", ErrUnsupportedVersion
	}
	key = h.Get("Sec-WebSocket-Key")
	if key == "" {
		return "", ErrBadWebSocketKey
	}
	if raw, decErr := base64.StdEncoding.DecodeString(key); decErr != nil || len(raw) != 16 {
		return "", ErrBadWebSocketKey
	}
	return key, nil
}

// NegotiateSubprotocol returns the first subprotocol the client
// requested that the server also supports, preserving the client's
// preference order, or "" if none match. Token comparison is
// case-insensitive, since subprotocol names are opaque ASCII tokens
// with no case-sensitivity requirement. Adapted from the teacher's
// selectSubprotocol.
func NegotiateSubprotocol(requested []string, supported []string) string {
	for _, want := range requested {
		for _, have := range supported {
			if strings.EqualFold(want, have) {
				return want
			}
		}
	}
	return ""
}

// RequestedSubprotocols splits a Sec-WebSocket-Protocol request header
// into its comma-separated tokens, trimmed of surrounding whitespace.
func RequestedSubprotocols(h *httpwire.Header) []string {
	combined := h.Combined("Sec-WebSocket-Protocol")
	if combined == "" {
		return nil
	}
	parts := strings.Split(combined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NegotiateServerExtensions inspects a Sec-WebSocket-Extensions
// request header for permessage-deflate and returns whether to accept
// it, and whether either no_context_takeover parameter was offered (a
// single flag covering both directions).
func NegotiateServerExtensions(h *httpwire.Header, serverSupportsDeflate bool) (accept bool, noContextTakeover bool) {
	if !serverSupportsDeflate {
		return false, false
	}
	ext := h.Combined("Sec-WebSocket-Extensions")
	if !strings.Contains(ext, "permessage-deflate") {
		return false, false
	}
	noContextTakeover = strings.Contains(ext, "client_no_context_takeover") ||
		strings.Contains(ext, "server_no_context_takeover")
	return true, noContextTakeover
}

// ValidateClientResponse checks a server's 101 response against the
// key the client sent, per RFC 6455 §4.1.
func ValidateClientResponse(clientKey string, statusCode int, h *httpwire.Header) (*HandshakeResult, error) {
	if statusCode != 101 {
		return nil, ErrHandshakeRejected
	}
	if !h.HasToken("Upgrade", "websocket") {
		return nil, ErrNotWebSocketUpgrade
	}
	if !h.HasToken("Connection", "upgrade") {
		return nil, ErrNotWebSocketUpgrade
	}
	expected := ComputeAcceptKey(clientKey)
	if h.Get("Sec-WebSocket-Accept") != expected {
		return nil, ErrAcceptMismatch
	}

	res := &HandshakeResult{Subprotocol: h.Get("Sec-WebSocket-Protocol")}
	if ext := h.Combined("Sec-WebSocket-Extensions"); strings.Contains(ext, "permessage-deflate") {
		res.Deflate = true
		res.NoContextTakeover = strings.Contains(ext, "no_context_takeover")
	}
	return res, nil
}
