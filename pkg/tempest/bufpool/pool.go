// Package bufpool centralizes the small, fixed-size scratch buffers and
// the growable receive sinks the WebSocket core allocates on every frame.
//
// Growable buffers (receive sinks, payload scratch) are backed by
// bytebufferpool, which tracks a running average of checked-in sizes and
// grows its pooled buffers toward it — a better fit than a fixed set of
// sync.Pool size classes when message sizes vary per connection. The
// fixed 4- and 14-byte buffers used for mask keys and frame headers are
// too small and too stable in size to benefit from that, so they stay on
// plain sync.Pool, as does the fixed-size read chunk.
package bufpool

import (
	"sync"

	"github.com/valyala/bytebufferpool"
)

// Messages is the shared pool for receive sinks and payload scratch
// buffers. It is safe for concurrent use.
var Messages bytebufferpool.Pool

// GetMessage returns a zero-length, pooled ByteBuffer.
func GetMessage() *bytebufferpool.ByteBuffer {
	return Messages.Get()
}

// PutMessage returns a ByteBuffer to the pool. The buffer must not be
// used again after this call.
func PutMessage(b *bytebufferpool.ByteBuffer) {
	Messages.Put(b)
}

var headerPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, MaxFrameHeaderSize)
		return &b
	},
}

// MaxFrameHeaderSize is the largest a WebSocket frame header (plus mask
// key) can be: 2 bytes base + 8 bytes extended length + 4 bytes mask key.
const MaxFrameHeaderSize = 14

// GetHeaderScratch returns a pooled 14-byte scratch buffer for frame
// header parsing/encoding.
func GetHeaderScratch() *[]byte {
	return headerPool.Get().(*[]byte)
}

// PutHeaderScratch returns a header scratch buffer to the pool.
func PutHeaderScratch(buf *[]byte) {
	if buf != nil {
		headerPool.Put(buf)
	}
}

// ReadChunkSize is the scratch buffer size readFramePayload drains a
// frame's payload through, so each individual payload read is bounded
// by this size; the destination buffer still grows to hold the whole
// payload.
const ReadChunkSize = 32 * 1024

var readChunkPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, ReadChunkSize)
		return &b
	},
}

// GetReadChunk returns a pooled ReadChunkSize-byte scratch buffer.
func GetReadChunk() *[]byte {
	return readChunkPool.Get().(*[]byte)
}

// PutReadChunk returns a read-chunk scratch buffer to the pool.
func PutReadChunk(buf *[]byte) {
	if buf != nil {
		readChunkPool.Put(buf)
	}
}

var maskKeyPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 4)
		return &b
	},
}

// GetMaskKeyScratch returns a pooled 4-byte scratch buffer for generating
// or reading a masking key.
func GetMaskKeyScratch() *[]byte {
	return maskKeyPool.Get().(*[]byte)
}

// PutMaskKeyScratch returns a mask-key scratch buffer to the pool.
func PutMaskKeyScratch(buf *[]byte) {
	if buf != nil {
		maskKeyPool.Put(buf)
	}
}
