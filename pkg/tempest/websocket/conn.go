package websocket

import (
	"crypto/rand"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/tempestws/tempest/pkg/tempest/bufpool"
)

// Config holds the per-connection parameters a Connector (C12) resolves
// during the handshake and hands to NewConn. Field names and defaults
// mirror spec.md §6.5; DefaultConfig gives the zero-config behavior
// (no keep-alive, no compression).
type Config struct {
	// KeepAliveInterval, when non-zero, enables the coordinator in
	// keepalive.go. Zero disables keep-alive entirely.
	KeepAliveInterval time.Duration

	// IncludeExceptionInCloseResponse controls whether an internal
	// error's text is folded into the Close reason sent to the peer.
	IncludeExceptionInCloseResponse bool

	// SubProtocol is the negotiated sub-protocol, already resolved by
	// the connector; empty means none negotiated.
	SubProtocol string

	// Deflate negotiation, resolved by the connector (C12) during the
	// handshake and passed through unchanged for the connection's
	// lifetime — §4.8 negotiates this once, up front.
	DeflateEnabled            bool
	DeflateNoContextTakeover  bool
	DeflateCompressionLevel   int

	// CloseHandshakeTimeout bounds how long a local full Close waits
	// for the peer's acknowledging Close frame (spec.md §5, default 5s).
	CloseHandshakeTimeout time.Duration

	// MaxMessageSize bounds an assembled message's total byte count
	// (post-inflate); 0 means unbounded.
	MaxMessageSize int
}

// DefaultConfig returns the zero-config connection behavior: no
// keep-alive, no compression, a 5-second close handshake timeout.
func DefaultConfig() Config {
	return Config{
		CloseHandshakeTimeout:   5 * time.Second,
		DeflateCompressionLevel: 6,
	}
}

// Conn is a single WebSocket connection: one FrameReader/FrameWriter
// pair over a transport, a send mutex serializing C4 invocations with
// the control-frame state machine, and an optional keep-alive
// coordinator. Grounded on the teacher's websocket.Conn field
// layout (conn.go), generalized from net.Conn to an io.ReadWriteCloser
// transport and reworked around spec.md's explicit state machine
// instead of the teacher's single closeOnce guard.
type Conn struct {
	transport io.ReadWriteCloser
	isServer  bool

	fr *FrameReader
	fw *FrameWriter

	// sendMu serializes every write to the wire: user sends, Pong
	// replies, and Close frames (spec.md §5's "at most one outbound
	// writer at a time").
	sendMu sync.Mutex

	stateMu        sync.Mutex
	state          State
	closeSent      bool
	closeReceived  bool
	peerCloseCode  uint16
	peerCloseRsn   string

	subProtocol string
	config      Config

	deflater *Deflater
	inflater *Inflater

	// fragmenting tracks an in-progress outbound message started by a
	// Send call with endOfMessage=false; fragmentOpcode is the opcode
	// that call supplied (later fragments are written as Continuation
	// regardless of the opcode passed to them). fragmentRaw buffers the
	// message's raw bytes across fragments when compression is active,
	// since DEFLATE cannot be split into independent per-fragment
	// streams and reassembled by concatenation.
	fragmenting    bool
	fragmentOpcode byte
	fragmentRaw    []byte

	lastActivity atomic.Int64 // unix nanos, updated by the reader on every frame

	kaStop chan struct{}
	kaDone chan struct{}
}

// newConn constructs a Conn over an already-upgraded transport. Called
// by the server (Upgrade) and client (Dial) connectors once the HTTP
// handshake has completed.
func newConn(transport io.ReadWriteCloser, isServer bool, cfg Config) *Conn {
	c := &Conn{
		transport:   transport,
		isServer:    isServer,
		fr:          NewFrameReader(transport, isServer),
		fw:          NewFrameWriter(transport),
		state:       StateOpen,
		subProtocol: cfg.SubProtocol,
		config:      cfg,
	}
	c.lastActivity.Store(time.Now().UnixNano())

	if cfg.DeflateEnabled {
		c.inflater = NewInflater(cfg.DeflateNoContextTakeover)
		if d, err := NewDeflater(cfg.DeflateCompressionLevel, cfg.DeflateNoContextTakeover); err == nil {
			c.deflater = d
		}
	}

	if cfg.KeepAliveInterval > 0 {
		c.startKeepAlive(cfg.KeepAliveInterval)
	}

	return c
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// SubProtocol returns the negotiated sub-protocol, or "" if none.
func (c *Conn) SubProtocol() string {
	return c.subProtocol
}

func (c *Conn) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
	if s == StateClosed || s == StateAborted {
		c.stopKeepAlive()
	}
}

func (c *Conn) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// bufferedConn combines a bufio.Reader left over from parsing the
// handshake (which may already contain bytes of the first frame) with
// the raw connection's Write/Close, so no buffered byte is dropped
// when the frame layer takes over after the upgrade.
type bufferedConn struct {
	r io.Reader
	io.Writer
	io.Closer
}

func (b *bufferedConn) Read(p []byte) (int, error) { return b.r.Read(p) }

// clientMaskKey generates a fresh masking key for an outbound client
// frame. Servers never mask (RFC 6455 §5.1).
func clientMaskKey() ([4]byte, error) {
	var key [4]byte
	_, err := rand.Read(key[:])
	return key, err
}

// Send writes opcode/payload as a message, optionally split across
// multiple wire frames. opcode (Text or Binary) is only meaningful on
// the first call of a message; call again with endOfMessage=false to
// keep the message open, and the next call is written as a
// Continuation frame regardless of the opcode it's given. The final
// call must pass endOfMessage=true (the common case is a single call
// with endOfMessage=true, an unfragmented message).
//
// Sending while the connection is not Open fails with ErrInvalidState
// ("Sending any data frame in CloseSent or later fails with
// InvalidState").
//
// When permessage-deflate is negotiated, fragments are buffered here
// and compressed as a single unit once the message completes: DEFLATE
// cannot be split into independent per-fragment streams that the
// assembler's single inflate-at-Fin can later reassemble by
// concatenation, so a compressed message is still written as one wire
// frame even if the caller supplied it across several Send calls.
func (c *Conn) Send(opcode byte, payload []byte, endOfMessage bool) error {
	if s := c.State(); s != StateOpen {
		return ErrInvalidState
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	first := !c.fragmenting
	if first {
		c.fragmentOpcode = opcode
	}

	if c.deflater != nil {
		c.fragmentRaw = append(c.fragmentRaw, payload...)
		if !endOfMessage {
			c.fragmenting = true
			return nil
		}
		c.fragmenting = false
		raw := c.fragmentRaw
		c.fragmentRaw = nil

		out := raw
		if len(raw) > 0 {
			compressed, err := c.deflater.Deflate(raw)
			if err != nil {
				return err
			}
			out = compressed
		}
		return c.writeDataFrame(c.fragmentOpcode, out, true, true)
	}

	c.fragmenting = !endOfMessage
	frameOpcode := c.fragmentOpcode
	if !first {
		frameOpcode = OpcodeContinuation
	}
	return c.writeDataFrame(frameOpcode, payload, endOfMessage, false)
}

// writeDataFrame masks (for a client) and writes a single data frame
// under sendMu, which the caller already holds.
func (c *Conn) writeDataFrame(opcode byte, payload []byte, fin, rsv1 bool) error {
	out := payload
	var maskKey *[4]byte
	if !c.isServer {
		key, err := clientMaskKey()
		if err != nil {
			return err
		}
		maskKey = &key
		// The writer masks in place; give it a scratch copy so the
		// caller's (or deflater's) buffer is never mutated.
		out = append([]byte(nil), out...)
	}

	if err := c.fw.WriteFrame(opcode, fin, rsv1, out, maskKey); err != nil {
		c.setState(StateAborted)
		return err
	}
	return nil
}

// ReceiveResult is what Receive returns for one assembled message or
// surfaced Close.
type ReceiveResult struct {
	Opcode      byte
	EndOfMsg    bool
	ByteCount   int
	CloseStatus uint16
	CloseReason string
}

// Receive assembles and returns the next complete message, writing
// payload bytes into sink (a growable bytebufferpool.ByteBuffer). Ping
// and Pong handling is internal (spec.md §4.9/§4.10); a received Close
// surfaces as a ReceiveResult with Opcode == OpcodeClose.
func (c *Conn) Receive(sink *bytebufferpool.ByteBuffer) (ReceiveResult, error) {
	return c.assembleMessage(sink)
}

// Close performs the full (two-way) close handshake: send Close,
// drain and discard data frames until the peer's Close arrives or
// CloseHandshakeTimeout elapses, then transition to Closed.
func (c *Conn) Close(status uint16, reason string) error {
	return c.closeFull(status, reason)
}

// CloseOutput sends a Close frame and transitions to CloseSent without
// waiting for the peer's acknowledgment (a one-way half-close).
func (c *Conn) CloseOutput(status uint16, reason string) error {
	return c.closeOutput(status, reason)
}

// closeTransport releases the frame reader's pooled scratch buffer and
// closes the transport directly, without any close handshake.
func (c *Conn) closeTransport() error {
	c.fr.Close()
	return c.transport.Close()
}
