package websocket

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/flate"
)

func TestDeflateInflateRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{'a'}, 32*1024)

	d, err := NewDeflater(flate.BestSpeed, false)
	if err != nil {
		t.Fatalf("new deflater: %v", err)
	}
	compressed, err := d.Deflate(payload)
	if err != nil {
		t.Fatalf("deflate: %v", err)
	}
	if len(compressed) >= len(payload) {
		t.Fatalf("expected compressed output to shrink a repeating-byte payload, got %d bytes", len(compressed))
	}

	inf := NewInflater(false)
	got, err := inf.Inflate(compressed, 1<<20)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestDeflateNoContextTakeoverResetsWindow(t *testing.T) {
	d, err := NewDeflater(flate.BestSpeed, true)
	if err != nil {
		t.Fatalf("new deflater: %v", err)
	}
	inf := NewInflater(true)

	for i := 0; i < 3; i++ {
		payload := bytes.Repeat([]byte{byte('a' + i)}, 4096)
		compressed, err := d.Deflate(payload)
		if err != nil {
			t.Fatalf("deflate message %d: %v", i, err)
		}
		got, err := inf.Inflate(compressed, 1<<20)
		if err != nil {
			t.Fatalf("inflate message %d: %v", i, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("message %d round trip mismatch", i)
		}
	}
}

func TestInflateRejectsOversizeMessage(t *testing.T) {
	payload := bytes.Repeat([]byte{'z'}, 8192)
	d, err := NewDeflater(flate.BestSpeed, false)
	if err != nil {
		t.Fatalf("new deflater: %v", err)
	}
	compressed, err := d.Deflate(payload)
	if err != nil {
		t.Fatalf("deflate: %v", err)
	}

	inf := NewInflater(false)
	if _, err := inf.Inflate(compressed, 100); err != ErrMessageTooLarge {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}
