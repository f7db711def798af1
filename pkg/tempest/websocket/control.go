package websocket

import "time"

// handleControlFrame implements the control-frame state machine
// (spec.md §4.10) for one already-header-and-payload-read control
// frame. It returns (result, surfaced, err): surfaced is true only for
// a Close frame, which the assembler returns to the application as a
// ReceiveResult; Ping/Pong handling is purely internal.
func (c *Conn) handleControlFrame(opcode byte, payload []byte) (ReceiveResult, bool, error) {
	switch opcode {
	case OpcodePing:
		return ReceiveResult{}, false, c.replyPong(payload)

	case OpcodePong:
		// lastActivity already updated by the caller's touch(); no
		// further bookkeeping is observable at this layer.
		return ReceiveResult{}, false, nil

	case OpcodeClose:
		return c.onCloseFrame(payload)

	default:
		return ReceiveResult{}, false, ErrInvalidOpcode
	}
}

// replyPong answers a Ping with a Pong carrying the identical payload,
// unless the connection is already in a close handshake (spec.md
// §4.10: "enqueued ahead of any pending user send only if not already
// in a close handshake").
func (c *Conn) replyPong(payload []byte) error {
	c.stateMu.Lock()
	inCloseHandshake := c.closeSent
	c.stateMu.Unlock()
	if inCloseHandshake {
		return nil
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.fw.WritePong(payload, c.outboundMaskKey()); err != nil {
		c.setState(StateAborted)
		return err
	}
	return nil
}

// parseClosePayload extracts the status code and reason from a Close
// frame payload per RFC 6455 §7.1.6: empty payload means no status
// was provided; a single byte is malformed; two or more bytes are a
// big-endian status code followed by a UTF-8 reason. An unrecognized
// code is not treated as a protocol error: it is reported back as
// Empty (code 0, no reason), since the reason text carried alongside
// it is still worth keeping off the wire but not worth failing the
// handshake over.
func parseClosePayload(payload []byte) (code uint16, reason string, err error) {
	switch {
	case len(payload) == 0:
		return 0, "", nil
	case len(payload) == 1:
		return 0, "", ErrInvalidClosePayload
	default:
		code = uint16(payload[0])<<8 | uint16(payload[1])
		if !isValidCloseCode(code) {
			return 0, "", nil
		}
		return code, string(payload[2:]), nil
	}
}

// onCloseFrame handles a peer-initiated Close: it always surfaces to
// the application, and either completes an in-progress local close
// (if closeSent was already true) or initiates the server's side of
// the handshake by echoing a Close frame back.
func (c *Conn) onCloseFrame(payload []byte) (ReceiveResult, bool, error) {
	code, reason, err := parseClosePayload(payload)
	if err != nil {
		c.protocolAbort()
		return ReceiveResult{}, false, err
	}

	c.stateMu.Lock()
	alreadySent := c.closeSent
	c.closeReceived = true
	c.peerCloseCode = code
	c.peerCloseRsn = reason
	c.stateMu.Unlock()

	if !alreadySent {
		c.sendMu.Lock()
		echoCode := code
		if echoCode == 0 {
			echoCode = CloseNormalClosure
		}
		_ = c.fw.WriteClose(echoCode, "", c.outboundMaskKey())
		c.sendMu.Unlock()
	}

	c.setState(StateClosed)
	return ReceiveResult{Opcode: OpcodeClose, EndOfMsg: true, CloseStatus: code, CloseReason: reason}, true, nil
}

// sendCloseFrame writes a Close frame under the send mutex.
func (c *Conn) sendCloseFrame(status uint16, reason string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.fw.WriteClose(status, reason, c.outboundMaskKey()); err != nil {
		c.setState(StateAborted)
		return err
	}
	return nil
}

// closeOutput sends a Close frame and half-closes the send direction
// without waiting for the peer's acknowledging Close.
func (c *Conn) closeOutput(status uint16, reason string) error {
	if err := c.sendCloseFrame(status, reason); err != nil {
		return err
	}
	c.stateMu.Lock()
	c.closeSent = true
	c.state = StateCloseSent
	c.stateMu.Unlock()
	return nil
}

// deadlineSetter is implemented by transports (e.g. net.Conn) that
// support read deadlines; closeFull uses one, when available, to bound
// the drain loop below.
type deadlineSetter interface {
	SetReadDeadline(time.Time) error
}

// closeFull performs the full, two-way close handshake: send Close,
// then drain and discard incoming data frames until the peer's Close
// frame arrives or CloseHandshakeTimeout elapses (spec.md §4.10).
func (c *Conn) closeFull(status uint16, reason string) error {
	if err := c.sendCloseFrame(status, reason); err != nil {
		return err
	}
	c.stateMu.Lock()
	c.closeSent = true
	c.state = StateCloseSent
	c.stateMu.Unlock()

	timeout := c.config.CloseHandshakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	if ds, ok := c.transport.(deadlineSetter); ok {
		_ = ds.SetReadDeadline(time.Now().Add(timeout))
		defer ds.SetReadDeadline(time.Time{})
	}

	for {
		frame, err := c.fr.ReadHeader()
		if err != nil {
			// Timeout or peer EOF during the drain: the handshake
			// completes regardless of the peer's response.
			c.setState(StateClosed)
			return nil
		}

		if frame.IsControl() {
			var payload []byte
			if frame.Length > 0 {
				payload = make([]byte, frame.Length)
				if _, _, err := c.fr.ReadPayload(payload); err != nil {
					c.setState(StateClosed)
					return nil
				}
			}
			if frame.Opcode == OpcodeClose {
				code, reason, _ := parseClosePayload(payload)
				c.stateMu.Lock()
				c.closeReceived = true
				c.peerCloseCode = code
				c.peerCloseRsn = reason
				c.stateMu.Unlock()
				c.setState(StateClosed)
				return nil
			}
			// Ping/Pong seen during the drain: answer pings, ignore pongs.
			if frame.Opcode == OpcodePing {
				_ = c.replyPong(payload)
			}
			continue
		}

		// Data frame received while draining: discard its payload.
		if frame.Length > 0 {
			discard := make([]byte, frame.Length)
			if _, _, err := c.fr.ReadPayload(discard); err != nil {
				c.setState(StateClosed)
				return nil
			}
		}
	}
}
