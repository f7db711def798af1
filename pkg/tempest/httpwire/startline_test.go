package httpwire

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestParseRequestLine(t *testing.T) {
	rl, err := ParseRequestLine("GET /chat HTTP/1.1\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rl.Method != "GET" || rl.Path != "/chat" || rl.Proto != "HTTP/1.1" {
		t.Fatalf("got %+v", rl)
	}
}

func TestParseRequestLineInvalid(t *testing.T) {
	if _, err := ParseRequestLine("GET HTTP/1.1"); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestParseStatusLine(t *testing.T) {
	sl, err := ParseStatusLine("HTTP/1.1 101 Switching Protocols\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sl.Code != 101 || sl.Reason != "Switching Protocols" || sl.Proto != "HTTP/1.1" {
		t.Fatalf("got %+v", sl)
	}
}

func TestParseStatusLineStrictThreeDigit(t *testing.T) {
	if _, err := ParseStatusLine("HTTP/1.1 10 Bad\r\n"); err == nil {
		t.Fatal("expected error for non-three-digit status code")
	}
	if _, err := ParseStatusLine("HTTP/1.1 10101 Bad\r\n"); err == nil {
		t.Fatal("expected error for non-three-digit status code")
	}
}

func TestReadHeaderBlockFolding(t *testing.T) {
	raw := "Host: example.com\r\n" +
		"X-Long: part-one\r\n" +
		" part-two\r\n" +
		"\tpart-three\r\n" +
		"Sec-WebSocket-Protocol: chat\r\n" +
		"\r\n"

	br := bufio.NewReader(strings.NewReader(raw))
	h, err := ReadHeaderBlock(br)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := h.Get("X-Long"); got != "part-one part-two part-three" {
		t.Fatalf("folded value: got %q", got)
	}
	if got := h.Get("Sec-WebSocket-Protocol"); got != "chat" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteRequestHeadRoundTrip(t *testing.T) {
	var h Header
	h.Add("Host", "example.com:80")
	h.Add("Upgrade", "websocket")

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := WriteRequestHead(w, "GET", "/chat", "HTTP/1.1", &h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w.Flush()

	br := bufio.NewReader(&buf)
	line, _ := br.ReadString('\n')
	rl, err := ParseRequestLine(line)
	if err != nil {
		t.Fatalf("reparse request line: %v", err)
	}
	if rl.Method != "GET" || rl.Path != "/chat" {
		t.Fatalf("got %+v", rl)
	}

	h2, err := ReadHeaderBlock(br)
	if err != nil {
		t.Fatalf("reparse headers: %v", err)
	}
	if h2.Get("Host") != "example.com:80" || h2.Get("Upgrade") != "websocket" {
		t.Fatalf("headers did not round-trip: %+v", h2)
	}
}
