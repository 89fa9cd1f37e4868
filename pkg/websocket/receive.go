package websocket

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// staticBufferSize is the inbound staging buffer's fixed size. A message
// that fits within it never allocates; one that doesn't grows into a
// one-shot heap buffer for the rest of its fragments (see reassembly.append).
const staticBufferSize = 64 * 1024

// reassembly tracks an in-progress fragmented message across BasicRead
// calls. static is the fast path; once a message's accumulated bytes exceed
// its capacity, Go's own slice growth (via append) moves buf onto the heap
// and grows it as further fragments arrive, and buf is reset back onto
// static when the message is delivered.
type reassembly struct {
	active bool
	opcode opcode
	static [staticBufferSize]byte
	buf    []byte
}

func (r *reassembly) reset() {
	r.active = false
	r.opcode = continuationFrame
	r.buf = r.static[:0]
}

func (r *reassembly) start(op opcode, payload []byte) {
	r.active = true
	r.opcode = op
	r.buf = append(r.static[:0], payload...)
}

func (r *reassembly) append(payload []byte) {
	r.buf = append(r.buf, payload...)
}

// BasicRead drives one read cycle. It either delivers exactly one completed
// logical message to the receive sink, handles one or more interleaved
// control frames with no delivery, or - in non-blocking mode, when nothing
// is available yet - returns immediately with no error and no state change.
//
// Errors from the codec (malformed frame, masked inbound frame, reserved
// bits, unexpected continuation, oversized control frame) set the error,
// attempt a best-effort CLOSE(1002), and transition the connection to
// CLOSED.
func (c *Conn) BasicRead() error {
	if c.state != stateOpen && c.state != stateClosing {
		return errors.New("websocket: connection is not open")
	}

	for {
		f, wouldBlock, err := c.reader.next(c.transport)
		if wouldBlock {
			return nil
		}
		if err != nil {
			if _, ok := err.(protocolError); ok {
				return c.failProtocol(err)
			}
			c.teardown()
			return c.setError(errors.Wrap(err, "transport read failed"))
		}

		delivered, err := c.handleFrame(f)
		if err != nil {
			return err
		}
		if delivered {
			return nil
		}
		if c.state == stateClosed {
			return nil
		}
	}
}

// handleFrame applies one decoded frame to the connection's state, either
// dispatching a control frame out of band, advancing reassembly, or
// delivering a completed message. It reports delivered == true once a
// message has been handed to the receive sink or a CLOSE frame has been
// handled (BasicRead should then return).
func (c *Conn) handleFrame(f frame) (delivered bool, err error) {
	switch f.opcode {
	case connectionCloseFrame:
		c.handleClose(f)
		return true, nil
	case pingFrame:
		c.handlePing(f)
		return false, nil
	case pongFrame:
		if c.pongFn != nil {
			c.pongFn(f.payloadData, len(f.payloadData), len(f.payloadData))
		}
		return false, nil
	case continuationFrame:
		if !c.reassembly.active {
			return false, c.failProtocol(newProtocolError("unexpected continuation frame"))
		}
		c.reassembly.append(f.payloadData)
		if f.fin {
			c.deliver()
			return true, nil
		}
		return false, nil
	case textFrame, binaryFrame:
		if c.reassembly.active {
			return false, c.failProtocol(newProtocolError("expected a continuation frame, got a new data frame"))
		}
		if f.fin {
			c.reassembly.start(f.opcode, f.payloadData)
			c.deliver()
			return true, nil
		}
		c.reassembly.start(f.opcode, f.payloadData)
		return false, nil
	default:
		return false, c.failProtocol(newProtocolError("unexpected opcode %d", f.opcode))
	}
}

func (c *Conn) deliver() {
	if c.receiveFn != nil {
		buf := c.reassembly.buf
		c.receiveFn(buf, len(buf), cap(buf))
	}
	c.reassembly.reset()
}

// handlePing increments the received-ping counter and, once it reaches the
// configured backlog threshold, sends an automatic pong echoing the ping's
// payload and resets the counter.
func (c *Conn) handlePing(f frame) {
	c.pingCount++
	if c.pingCount < c.pingBacklog {
		return
	}
	if err := c.writeControlFrame(pongFrame, f.payloadData); err != nil {
		c.log.Warnf("failed to send automatic pong: %v", err)
		return
	}
	c.pingCount = 0
}

// handleClose implements the CLOSE transitions from the state table: from
// OPEN, echo the close and tear down; from CLOSING (this connection already
// initiated a close), just tear down.
func (c *Conn) handleClose(f frame) {
	statusCode := statusNoStatusRcvd
	reason := []byte{}
	if len(f.payloadData) >= 2 {
		statusCode = binary.BigEndian.Uint16(f.payloadData[0:2])
		reason = f.payloadData[2:]
	}
	c.log.Infof("peer closed the connection: status %d, reason %q", statusCode, reason)

	if c.state == stateOpen {
		_ = c.writeControlFrame(connectionCloseFrame, f.payloadData)
	}
	c.reassembly.reset()
	c.teardown()
}
