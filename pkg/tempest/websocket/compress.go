package websocket

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// deflateTail is the 4-byte DEFLATE sync-flush marker RFC 7692 §7.2.1
// says a compressor may omit from the wire and a decompressor must
// re-append before reading, so the final stored block isn't mistaken
// for the stream's end.
var deflateTail = []byte{0x00, 0x00, 0xff, 0xff}

// Deflater compresses outgoing message payloads under the
// permessage-deflate extension (RFC 7692). Grounded on the nats-server
// reference's wsCreateFrameAndPayload: a pooled *flate.Writer, Flush
// after every message, and trimming the trailing sync-flush marker
// before handing the bytes to the frame writer. Swapped from stdlib
// compress/flate to github.com/klauspost/compress/flate, the drop-in
// faster implementation the teacher's go.mod already pulls in.
type Deflater struct {
	noContextTakeover bool
	w                 *flate.Writer
	buf               bytes.Buffer
}

// NewDeflater constructs a Deflater at the given compression level
// (flate.HuffmanOnly..flate.BestCompression). When noContextTakeover is
// true the compression window is reset after every message instead of
// carried forward, per the client_no_context_takeover /
// server_no_context_takeover extension parameters.
func NewDeflater(level int, noContextTakeover bool) (*Deflater, error) {
	d := &Deflater{noContextTakeover: noContextTakeover}
	w, err := flate.NewWriter(&d.buf, level)
	if err != nil {
		return nil, err
	}
	d.w = w
	return d, nil
}

// Deflate compresses payload and returns the frame-ready bytes (with
// the trailing 00 00 FF FF marker already stripped). The returned
// slice is only valid until the next call to Deflate.
func (d *Deflater) Deflate(payload []byte) ([]byte, error) {
	d.buf.Reset()
	if d.noContextTakeover {
		d.w.Reset(&d.buf)
	}
	if _, err := d.w.Write(payload); err != nil {
		return nil, err
	}
	if err := d.w.Flush(); err != nil {
		return nil, err
	}

	out := d.buf.Bytes()
	if bytes.HasSuffix(out, deflateTail) {
		out = out[:len(out)-len(deflateTail)]
	}
	return out, nil
}

// maxWindowSize is DEFLATE's maximum sliding-window size (RFC 1951
// §2.2): the most history a back-reference can ever reach into.
const maxWindowSize = 32768

// Inflater decompresses incoming message payloads under
// permessage-deflate. The reassembled, still-mask-stripped payload
// from the assembler is fed in whole (this engine does not stream
// decompression across fragments).
//
// Each message is still decoded through a fresh *bytes.Reader wrapping
// just that message's bytes, so the underlying flate.Reader is Reset
// between messages regardless of context_takeover — there is no way
// to keep handing it a single message's bytes without eventually
// terminating that Read with a clean EOF (see the final-block comment
// on Inflate below), and once a flate.Reader has returned EOF it must
// be Reset to read anything further. What context_takeover controls is
// what that Reset carries forward: when negotiated, window holds the
// trailing up-to-32KiB of every message decompressed so far on this
// connection and is passed to Reset as a preset dictionary, so
// back-references the peer's compressor made into prior messages
// still resolve; no_context_takeover instead resets to an empty
// dictionary every time, matching the compressor discarding its window
// between messages.
type Inflater struct {
	noContextTakeover bool
	r                 io.ReadCloser
	window            []byte
}

// NewInflater constructs an Inflater.
func NewInflater(noContextTakeover bool) *Inflater {
	return &Inflater{noContextTakeover: noContextTakeover}
}

// Inflate decompresses a compressed message payload, re-appending the
// sync-flush tail marker (plus a terminating empty stored block) so
// the flate reader does not report an unexpected EOF at the end of the
// final block, per RFC 7692 §7.2.2.
func (inf *Inflater) Inflate(payload []byte, maxSize int) ([]byte, error) {
	full := make([]byte, 0, len(payload)+len(deflateTail)+5)
	full = append(full, payload...)
	full = append(full, deflateTail...)
	full = append(full, 0x01, 0x00, 0x00, 0xff, 0xff)

	src := bytes.NewReader(full)
	if inf.r == nil {
		inf.r = flate.NewReaderDict(src, inf.window)
	} else if resetter, ok := inf.r.(flate.Resetter); ok {
		if err := resetter.Reset(src, inf.window); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	var limited io.Reader = inf.r
	if maxSize > 0 {
		limited = io.LimitReader(inf.r, int64(maxSize)+1)
	}
	n, err := io.Copy(&out, limited)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && n > int64(maxSize) {
		return nil, ErrMessageTooLarge
	}

	if inf.noContextTakeover {
		inf.r = nil
		inf.window = nil
	} else {
		inf.window = slideWindow(inf.window, out.Bytes())
	}

	return out.Bytes(), nil
}

// slideWindow appends next to prev and trims to at most the trailing
// maxWindowSize bytes, the history a future Reset can draw on.
func slideWindow(prev, next []byte) []byte {
	total := len(prev) + len(next)
	start := 0
	if total > maxWindowSize {
		start = total - maxWindowSize
	}
	merged := make([]byte, total-start)
	if start < len(prev) {
		n := copy(merged, prev[start:])
		copy(merged[n:], next)
	} else {
		copy(merged, next[start-len(prev):])
	}
	return merged
}
