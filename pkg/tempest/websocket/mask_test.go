package websocket

import (
	"bytes"
	"testing"
)

func TestMaskUnmaskIsInvolution(t *testing.T) {
	key := [4]byte{0x12, 0x34, 0x56, 0x78}
	original := []byte("the quick brown fox jumps over the lazy dog, 0123456789")

	data := append([]byte(nil), original...)
	maskBytes(data, key, 0)
	if bytes.Equal(data, original) {
		t.Fatal("masking did not change the payload")
	}
	maskBytes(data, key, 0)
	if !bytes.Equal(data, original) {
		t.Fatal("masking twice with the same key/offset did not recover the original payload")
	}
}

func TestMaskOffsetContinuesRotation(t *testing.T) {
	key := [4]byte{0xAA, 0xBB, 0xCC, 0xDD}
	original := []byte("0123456789abcdef0123456789abcdef")

	whole := append([]byte(nil), original...)
	maskBytes(whole, key, 0)

	// Mask the same payload split into two chunks, continuing the
	// rotation at the split point, and confirm it matches the
	// single-shot result.
	split := 10
	chunked := append([]byte(nil), original...)
	maskBytes(chunked[:split], key, 0)
	maskBytes(chunked[split:], key, split)

	if !bytes.Equal(whole, chunked) {
		t.Fatalf("chunked masking diverged from whole-buffer masking:\n got  %x\n want %x", chunked, whole)
	}
}

func TestMaskEmptyPayload(t *testing.T) {
	key := [4]byte{1, 2, 3, 4}
	var data []byte
	maskBytes(data, key, 0) // must not panic
}

func TestMaskShortPayload(t *testing.T) {
	key := [4]byte{0x01, 0x02, 0x03, 0x04}
	original := []byte{0xFF, 0xEE, 0xDD}

	data := append([]byte(nil), original...)
	maskBytes(data, key, 0)
	maskBytes(data, key, 0)
	if !bytes.Equal(data, original) {
		t.Fatal("short payload did not round-trip")
	}
}
