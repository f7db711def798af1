package websocket

import (
	"testing"

	"github.com/tempestws/tempest/pkg/tempest/httpwire"
)

func TestComputeAcceptKeyRFCExamples(t *testing.T) {
	cases := []struct{ key, want string }{
		{"dGhlIHNhbXBsZSBub25jZQ==", "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="},
		{"x3JJHMbDL1EzLkh9GBhXDw==", "HSmrc0sMlYUkAGmm5OPpG2HaGWk="},
	}
	for _, c := range cases {
		if got := ComputeAcceptKey(c.key); got != c.want {
			t.Errorf("ComputeAcceptKey(%q) = %q, want %q", c.key, got, c.want)
		}
	}
}

func validUpgradeHeaders() *httpwire.Header {
	var h httpwire.Header
	h.Add("Connection", "Upgrade")
	h.Add("Upgrade", "websocket")
	h.Add("Sec-WebSocket-Version", "13")
	h.Add("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return &h
}

func TestValidateServerRequestAccepts(t *testing.T) {
	key, err := ValidateServerRequest("GET", validUpgradeHeaders())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "dGhlIHNhbXBsZSBub25jZQ==" {
		t.Fatalf("got key %q", key)
	}
}

func TestValidateServerRequestRejectsWrongMethod(t *testing.T) {
	if _, err := ValidateServerRequest("POST", validUpgradeHeaders()); err != ErrNotWebSocketUpgrade {
		t.Fatalf("expected ErrNotWebSocketUpgrade, got %v", err)
	}
}

func TestValidateServerRequestRejectsBadVersion(t *testing.T) {
	h := validUpgradeHeaders()
	h.Set("Sec-WebSocket-Version", "8")
	if _, err := ValidateServerRequest("GET", h); err != ErrUnsupportedVersion {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestValidateServerRequestRejectsMissingKey(t *testing.T) {
	h := validUpgradeHeaders()
	h.Del("Sec-WebSocket-Key")
	if _, err := ValidateServerRequest("GET", h); err != ErrBadWebSocketKey {
		t.Fatalf("expected ErrBadWebSocketKey, got %v", err)
	}
}

func TestNegotiateSubprotocolPrefersClientOrder(t *testing.T) {
	got := NegotiateSubprotocol([]string{"chat", "superchat"}, []string{"superchat", "chat"})
	if got != "chat" {
		t.Fatalf("got %q, want chat (first client preference present)", got)
	}
}

func TestValidateClientResponseRoundTrip(t *testing.T) {
	clientKey := "dGhlIHNhbXBsZSBub25jZQ=="
	var h httpwire.Header
	h.Add("Upgrade", "websocket")
	h.Add("Connection", "Upgrade")
	h.Add("Sec-WebSocket-Accept", ComputeAcceptKey(clientKey))

	res, err := ValidateClientResponse(clientKey, 101, &h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Subprotocol != "" || res.Deflate {
		t.Fatalf("unexpected negotiated extras: %+v", res)
	}
}

func TestValidateClientResponseRejectsMismatchedAccept(t *testing.T) {
	var h httpwire.Header
	h.Add("Upgrade", "websocket")
	h.Add("Connection", "Upgrade")
	h.Add("Sec-WebSocket-Accept", "bogus")

	if _, err := ValidateClientResponse("dGhlIHNhbXBsZSBub25jZQ==", 101, &h); err != ErrAcceptMismatch {
		t.Fatalf("expected ErrAcceptMismatch, got %v", err)
	}
}
