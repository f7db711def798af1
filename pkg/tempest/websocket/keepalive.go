package websocket

import (
	"time"
)

// startKeepAlive launches the coordinator goroutine (spec.md §4.11):
// every interval it issues a Ping, and if no frame has been observed
// for 2*interval the connection is aborted as a dead peer. Grounded on
// the teacher's http2.Connection.idleTimeoutChecker select-loop
// pattern, generalized from a context.Done channel to an explicit
// stop channel since Conn has no ambient context.
func (c *Conn) startKeepAlive(interval time.Duration) {
	c.kaStop = make(chan struct{})
	c.kaDone = make(chan struct{})
	go c.keepAliveLoop(interval)
}

func (c *Conn) keepAliveLoop(interval time.Duration) {
	defer close(c.kaDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadPeerTimeout := 2 * interval

	for {
		select {
		case <-c.kaStop:
			return
		case <-ticker.C:
			if c.State() != StateOpen {
				continue
			}

			elapsed := time.Since(time.Unix(0, c.lastActivity.Load()))
			if elapsed > deadPeerTimeout {
				c.abortDeadPeer()
				return
			}

			c.sendKeepAlivePing()
		}
	}
}

// sendKeepAlivePing issues a Ping without blocking: if the send mutex
// is already held by an in-flight Send or the Close-frame path, the
// coordinator skips this tick rather than stalling behind it (spec.md
// §4.11: "quiescent while a send or receive is in progress to avoid
// contending for the send mutex").
func (c *Conn) sendKeepAlivePing() {
	if !c.sendMu.TryLock() {
		return
	}
	defer c.sendMu.Unlock()

	if err := c.fw.WritePing([]byte("keepalive"), c.outboundMaskKey()); err != nil {
		c.setState(StateAborted)
	}
}

func (c *Conn) abortDeadPeer() {
	c.setState(StateAborted)
	c.stopKeepAlive()
}

// stopKeepAlive signals the coordinator goroutine to exit. Safe to
// call more than once and safe to call when keep-alive was never
// started.
func (c *Conn) stopKeepAlive() {
	if c.kaStop == nil {
		return
	}
	select {
	case <-c.kaStop:
		// already stopped
	default:
		close(c.kaStop)
	}
}
