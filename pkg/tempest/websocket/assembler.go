package websocket

import (
	"io"

	"github.com/valyala/bytebufferpool"

	"github.com/tempestws/tempest/pkg/tempest/bufpool"
)

// assembleMessage implements the message assembler (spec.md §4.9): it
// owns the read half of the connection, dispatches control frames to
// the control-frame state machine inline, and reassembles a
// fragmented data message into sink. It returns once a full message
// (or a surfaced Close) is available.
func (c *Conn) assembleMessage(sink *bytebufferpool.ByteBuffer) (ReceiveResult, error) {
	sink.Reset()

	var (
		haveMessage bool
		msgOpcode   byte
		compressed  bool
		raw         []byte // accumulated raw (possibly still-compressed) fragment bytes
	)

	chunk := bufpool.GetMessage()
	defer bufpool.PutMessage(chunk)

	for {
		frame, err := c.fr.ReadHeader()
		if err != nil {
			return c.handleReadError(err)
		}
		c.touch()

		if frame.IsControl() {
			var payload []byte
			if frame.Length > 0 {
				payload = make([]byte, frame.Length)
				if _, _, err := c.fr.ReadPayload(payload); err != nil {
					return c.handleReadError(err)
				}
			}

			result, surfaced, err := c.handleControlFrame(frame.Opcode, payload)
			if err != nil {
				return ReceiveResult{}, err
			}
			if surfaced {
				return result, nil
			}
			continue
		}

		if !haveMessage {
			if frame.Opcode == OpcodeContinuation {
				c.protocolAbort()
				return ReceiveResult{}, ErrUnexpectedContinuation
			}
			haveMessage = true
			msgOpcode = frame.Opcode
			compressed = frame.RSV1
		} else if frame.Opcode != OpcodeContinuation {
			c.protocolAbort()
			return ReceiveResult{}, ErrInterleavedData
		}

		chunk.Reset()
		if err := c.readFramePayload(frame, chunk); err != nil {
			return ReceiveResult{}, err
		}
		raw = append(raw, chunk.B...)

		if c.config.MaxMessageSize > 0 && len(raw) > c.config.MaxMessageSize && !compressed {
			c.protocolAbort()
			return ReceiveResult{}, ErrMessageTooLarge
		}

		if frame.Fin {
			var final []byte
			if compressed {
				if c.inflater == nil {
					c.protocolAbort()
					return ReceiveResult{}, ErrReservedBitsSet
				}
				final, err = c.inflater.Inflate(raw, c.config.MaxMessageSize)
				if err != nil {
					c.protocolAbort()
					return ReceiveResult{}, err
				}
			} else {
				final = raw
			}
			sink.Reset()
			sink.Write(final)
			return ReceiveResult{Opcode: msgOpcode, EndOfMsg: true, ByteCount: len(final)}, nil
		}
	}
}

// readFramePayload drains a data frame's payload (chunked through a
// pooled scratch buffer so large frames don't require one giant
// allocation per ReadPayload call) into dst.
func (c *Conn) readFramePayload(frame *Frame, dst *bytebufferpool.ByteBuffer) error {
	if frame.Length == 0 {
		return nil
	}
	scratch := bufpool.GetReadChunk()
	defer bufpool.PutReadChunk(scratch)
	buf := *scratch

	for {
		n, done, err := c.fr.ReadPayload(buf)
		if err != nil {
			return err
		}
		dst.Write(buf[:n])
		if done {
			return nil
		}
	}
}

// handleReadError classifies a transport error from the read half:
// a clean EOF with no bytes consumed mid-frame is TransportClosed and
// moves the connection to Closed; anything else moves it to Aborted.
func (c *Conn) handleReadError(err error) (ReceiveResult, error) {
	if err == io.EOF {
		c.setState(StateClosed)
		return ReceiveResult{}, ErrTransportClosed
	}
	c.setState(StateAborted)
	return ReceiveResult{}, err
}

func (c *Conn) protocolAbort() {
	c.setState(StateAborted)
	// Best effort: tell the peer why, if the wire is still writable.
	c.sendMu.Lock()
	_ = c.fw.WriteClose(CloseProtocolError, "", c.outboundMaskKey())
	c.sendMu.Unlock()
}

// outboundMaskKey returns a fresh mask key for the connection's own
// control-frame writes (Pong, Ping, Close) when acting as a client, or
// nil when acting as a server.
func (c *Conn) outboundMaskKey() *[4]byte {
	if c.isServer {
		return nil
	}
	key, err := clientMaskKey()
	if err != nil {
		return nil
	}
	return &key
}
