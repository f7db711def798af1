package websocket

import (
	"io"
	"net"
	"testing"
	"time"
)

func TestKeepAlivePingsOnInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepAliveInterval = 15 * time.Millisecond
	a, b := net.Pipe()
	server := newConn(a, true, cfg)
	defer server.closeTransport()
	defer b.Close()

	pings := make(chan *Frame, 8)
	go func() {
		r := NewFrameReader(b, false)
		for {
			frame, err := r.ReadHeader()
			if err != nil {
				return
			}
			if frame.Length > 0 {
				buf := make([]byte, frame.Length)
				r.ReadPayload(buf)
			}
			if frame.Opcode == OpcodePing {
				pings <- frame
			}
		}
	}()

	select {
	case <-pings:
	case <-time.After(time.Second):
		t.Fatal("expected a keep-alive ping within one second")
	}
}

func TestSendKeepAlivePingSkipsWhenSendBusy(t *testing.T) {
	a, b := net.Pipe()
	server := newConn(a, true, DefaultConfig())
	defer server.closeTransport()
	go io.Copy(io.Discard, b)

	server.sendMu.Lock()
	defer server.sendMu.Unlock()

	// With sendMu already held, the keep-alive coordinator must not
	// block waiting for it.
	done := make(chan struct{})
	go func() {
		server.sendKeepAlivePing()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("sendKeepAlivePing blocked instead of skipping the busy send mutex")
	}
}

func TestKeepAliveStopsOnClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeepAliveInterval = 10 * time.Millisecond
	a, b := net.Pipe()
	server := newConn(a, true, cfg)
	go io.Copy(io.Discard, b)

	server.setState(StateClosed)

	select {
	case <-server.kaDone:
	case <-time.After(time.Second):
		t.Fatal("keep-alive goroutine did not exit after state transitioned to Closed")
	}

	b.Close()
	server.closeTransport()
}
