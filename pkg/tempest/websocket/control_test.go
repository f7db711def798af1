package websocket

import (
	"net"
	"testing"
)

func TestParseClosePayloadEmpty(t *testing.T) {
	code, reason, err := parseClosePayload(nil)
	if err != nil || code != 0 || reason != "" {
		t.Fatalf("got code=%d reason=%q err=%v", code, reason, err)
	}
}

func TestParseClosePayloadSingleByteRejected(t *testing.T) {
	if _, _, err := parseClosePayload([]byte{0x03}); err != ErrInvalidClosePayload {
		t.Fatalf("expected ErrInvalidClosePayload, got %v", err)
	}
}

func TestParseClosePayloadCodeAndReason(t *testing.T) {
	payload := append([]byte{0x03, 0xE8}, []byte("done")...) // 1000, "done"
	code, reason, err := parseClosePayload(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if code != CloseNormalClosure || reason != "done" {
		t.Fatalf("got code=%d reason=%q", code, reason)
	}
}

func TestParseClosePayloadUnknownCodeDefaultsToEmpty(t *testing.T) {
	payload := []byte{0x03, 0xED} // 1005, reserved/unknown
	code, reason, err := parseClosePayload(payload)
	if err != nil || code != 0 || reason != "" {
		t.Fatalf("got code=%d reason=%q err=%v, want Empty", code, reason, err)
	}
}

// TestConnSimultaneousClose exercises both sides initiating Close at
// nearly the same time: each must still observe the peer's Close frame
// and land in StateClosed without either side's closeFull hanging past
// its drain timeout. Uses a real TCP loopback rather than net.Pipe:
// net.Pipe is unbuffered, so two concurrent Close writes (each
// blocking until drained) would deadlock before either side reaches
// its read loop.
func TestConnSimultaneousClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			acceptCh <- c
		}
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	serverConn := <-acceptCh
	t.Cleanup(func() {
		clientConn.Close()
		serverConn.Close()
	})

	server := newConn(serverConn, true, DefaultConfig())
	client := newConn(clientConn, false, DefaultConfig())

	serverDone := make(chan error, 1)
	clientDone := make(chan error, 1)

	go func() { serverDone <- server.Close(CloseNormalClosure, "server bye") }()
	go func() { clientDone <- client.Close(CloseGoingAway, "client bye") }()

	if err := <-serverDone; err != nil {
		t.Fatalf("server close: %v", err)
	}
	if err := <-clientDone; err != nil {
		t.Fatalf("client close: %v", err)
	}
	if server.State() != StateClosed || client.State() != StateClosed {
		t.Fatalf("states: server=%v client=%v", server.State(), client.State())
	}
}

func TestReplyPongSkippedDuringCloseHandshake(t *testing.T) {
	server, client := pipeConns(t, DefaultConfig(), DefaultConfig())
	drainRawFrames(client)

	if err := server.CloseOutput(CloseNormalClosure, ""); err != nil {
		t.Fatalf("close output: %v", err)
	}
	if err := server.replyPong([]byte("late")); err != nil {
		t.Fatalf("replyPong should no-op once closeSent, got %v", err)
	}
}
