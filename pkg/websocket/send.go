package websocket

import "github.com/pkg/errors"

// outboundBufferSize is the outbound staging buffer's fixed size (spec data
// model: "outbound staging buffer, fixed 64 KiB"). A payload that doesn't
// fit, once framing overhead is subtracted, is fragmented across CONT
// frames instead of growing this buffer.
const outboundBufferSize = 64 * 1024

// maxSingleFramePayload is the largest payload that still fits a single
// frame within the outbound staging buffer, after frameHeaderMaxLen's
// worst-case 14 bytes of header and masking key.
const maxSingleFramePayload = outboundBufferSize - frameHeaderMaxLen

// Send sends payload as a single WebSocket TEXT message, fragmenting it
// across CONT frames when it exceeds the outbound staging buffer. It fails
// fast, without touching the transport, unless the connection is OPEN.
func (c *Conn) Send(payload []byte) error {
	return c.SendText(payload)
}

// SendText sends payload as a TEXT message, grounded on the teacher's
// WriteText, generalized to fragment payloads that don't fit the outbound
// staging buffer in one frame (see DESIGN.md).
func (c *Conn) SendText(payload []byte) error {
	return c.sendMessage(textFrame, payload)
}

// SendBinary sends payload as a BINARY message, with the same fragmentation
// behavior as SendText.
func (c *Conn) SendBinary(payload []byte) error {
	return c.sendMessage(binaryFrame, payload)
}

func (c *Conn) sendMessage(op opcode, payload []byte) error {
	if c.state != stateOpen {
		return errors.New("websocket: connection is not open")
	}

	if len(payload) <= maxSingleFramePayload {
		return c.sendFrame(op, true, payload)
	}

	// Fragment: first frame carries the real opcode with FIN=0, every
	// subsequent chunk is a CONT frame, and the last one sets FIN=1. Each
	// frame is independently masked by sendFrame/writeControlFrame's shared
	// maskingKey generation.
	remaining := payload
	first := true
	for len(remaining) > maxSingleFramePayload {
		chunk := remaining[:maxSingleFramePayload]
		remaining = remaining[maxSingleFramePayload:]
		frameOp := continuationFrame
		if first {
			frameOp = op
			first = false
		}
		if err := c.sendFrame(frameOp, false, chunk); err != nil {
			return err
		}
	}
	frameOp := continuationFrame
	if first {
		frameOp = op
	}
	return c.sendFrame(frameOp, true, remaining)
}

func (c *Conn) sendFrame(op opcode, fin bool, payload []byte) error {
	key, err := maskingKey()
	if err != nil {
		return c.setError(err)
	}
	f := frame{
		fin:           fin,
		opcode:        op,
		mask:          true,
		payloadLength: uint64(len(payload)),
		maskingKey:    key,
		payloadData:   payload,
	}
	return c.writeFrame(f)
}
