package bufpool

import "testing"

func TestGetMessageIsEmpty(t *testing.T) {
	b := GetMessage()
	defer PutMessage(b)

	if len(b.B) != 0 {
		t.Fatalf("expected empty buffer, got length %d", len(b.B))
	}
}

func TestMessagePoolReuse(t *testing.T) {
	b := GetMessage()
	b.Write([]byte("hello world"))
	PutMessage(b)

	b2 := GetMessage()
	defer PutMessage(b2)

	if len(b2.B) != 0 {
		t.Fatalf("expected reset buffer from pool, got length %d", len(b2.B))
	}
}

func TestHeaderScratchSize(t *testing.T) {
	buf := GetHeaderScratch()
	defer PutHeaderScratch(buf)

	if len(*buf) != MaxFrameHeaderSize {
		t.Fatalf("expected %d bytes, got %d", MaxFrameHeaderSize, len(*buf))
	}
}

func TestMaskKeyScratchSize(t *testing.T) {
	buf := GetMaskKeyScratch()
	defer PutMaskKeyScratch(buf)

	if len(*buf) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(*buf))
	}
}
