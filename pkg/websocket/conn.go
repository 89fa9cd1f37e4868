package websocket

import (
	"crypto/rand"
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
)

// state is the connection's position in the OPEN/CLOSING/CLOSED state
// machine: Connect moves CLOSED to OPEN, Close moves OPEN to CLOSING, and a
// received CLOSE frame, a failed write or a protocol violation moves to
// CLOSED.
type state int

const (
	stateClosed state = iota
	stateOpen
	stateClosing
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "OPEN"
	case stateClosing:
		return "CLOSING"
	default:
		return "CLOSED"
	}
}

// SinkFunc receives one delivered message or pong payload. data holds the
// full payload, length is its true length, and capacity is the underlying
// buffer's capacity (which may exceed length once a message has forced a
// one-shot heap reallocation - see reassembly in receive.go). The return
// value is not used by this package; a sink may use it to short-circuit its
// own body via an early return, but no caller branches on it.
type SinkFunc func(data []byte, length int, capacity int) bool

// Conn is one client-side WebSocket connection. It is constructed in the
// CLOSED state and is not safe for concurrent use.
type Conn struct {
	transport Transport

	state     state
	hasError  bool
	lastError string

	nonBlocking bool
	log         Logger

	pingBacklog int
	pingCount   int

	receiveFn SinkFunc
	pongFn    SinkFunc

	reassembly reassembly
	reader     frameReader
}

// NewConn constructs a Conn in the CLOSED state, ready for Connect or
// InterfaceConnect.
func NewConn(opts ...Option) *Conn {
	c := &Conn{
		state:       stateClosed,
		pingBacklog: 1,
		log:         DefaultLogger,
	}
	c.reassembly.reset()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes a WebSocket connection to rawURL ("ws://host[:port]"
// or "wss://host[:port]") and performs the opening handshake against path
// (defaulting to "/"). On success the connection is OPEN. On failure the
// transport (if any was opened) is closed, the error flag and message are
// set, and the connection remains CLOSED.
func (c *Conn) Connect(rawURL, path string) error {
	return c.connect(rawURL, path, dialOptions{})
}

// InterfaceConnect is like Connect, but binds the outbound socket to
// localAddr (and, on Linux, to the named network device) before connecting.
// Either may be empty to skip that part of the binding.
func (c *Conn) InterfaceConnect(rawURL, path, localAddr, device string) error {
	opts := dialOptions{device: device}
	if localAddr != "" {
		addr, err := net.ResolveTCPAddr("tcp", localAddr)
		if err != nil {
			return c.setError(errors.Wrapf(err, "invalid local address %q", localAddr))
		}
		opts.localAddr = addr
	}
	return c.connect(rawURL, path, opts)
}

func (c *Conn) connect(rawURL, path string, opts dialOptions) error {
	u, err := parseURL(rawURL)
	if err != nil {
		return c.setError(err)
	}
	path = normalizePath(path)

	nc, err := dial(u.scheme, u.host, u.port, opts)
	if err != nil {
		return c.setError(errors.Wrap(err, "failed to connect"))
	}
	t := newNetTransport(nc, c.nonBlocking)

	if err := handshake(t, u, path); err != nil {
		t.Close()
		return c.setError(errors.Wrap(err, "WebSocket handshake failed"))
	}

	c.transport = t
	c.state = stateOpen
	c.hasError = false
	c.lastError = ""
	c.pingCount = 0
	c.reassembly.reset()
	c.reader = frameReader{}
	c.log.Infof("connected to %s%s", u.hostHeader(), path)
	return nil
}

// teardown releases the transport and moves the connection to CLOSED. It is
// idempotent.
func (c *Conn) teardown() {
	if c.transport != nil {
		c.transport.Close()
		c.transport = nil
	}
	c.state = stateClosed
}

// Close initiates the closing handshake: it sends a CLOSE frame with
// statusCode and moves the connection to CLOSING, keeping the transport
// open; only a failed send tears it down. Per
// https://datatracker.ietf.org/doc/html/rfc6455#section-7.1.1, a client MAY
// close the TCP connection as soon as it has sent and (if the peer is
// responsive) received a CLOSE frame; this package does not block here
// waiting for the peer's echo, since BasicRead is where that echo is
// observed and the transport torn down (see handleClose).
func (c *Conn) Close(statusCode uint16) error {
	if c.state != stateOpen && c.state != stateClosing {
		return nil
	}
	payload := make([]byte, 2)
	payload[0] = byte(statusCode >> 8)
	payload[1] = byte(statusCode)

	err := c.writeControlFrame(connectionCloseFrame, payload)
	c.state = stateClosing
	if err != nil {
		c.teardown()
		return c.setError(errors.Wrap(err, "failed to send close frame"))
	}
	return nil
}

// SetReceiveFunction installs the sink BasicRead delivers completed
// messages to.
func (c *Conn) SetReceiveFunction(fn SinkFunc) {
	c.receiveFn = fn
}

// SetPongFunction installs the sink BasicRead delivers pong payloads to.
func (c *Conn) SetPongFunction(fn SinkFunc) {
	c.pongFn = fn
}

// SetPingBacklog sets how many received pings accumulate before an
// automatic pong is sent. 1 (the default) responds to every ping; n means
// respond to every n-th ping.
func (c *Conn) SetPingBacklog(n int) {
	if n < 1 {
		n = 1
	}
	c.pingBacklog = n
}

// Ping sends a ping control frame with appData as its payload (at most 125
// bytes).
func (c *Conn) Ping(appData []byte) error {
	return c.sendControl(pingFrame, appData)
}

// Pong sends an unsolicited pong control frame with appData as its payload
// (at most 125 bytes).
func (c *Conn) Pong(appData []byte) error {
	err := c.sendControl(pongFrame, appData)
	if err == nil {
		c.pingCount = 0
	}
	return err
}

func (c *Conn) sendControl(op opcode, appData []byte) error {
	if len(appData) > 125 {
		return errors.New("control frames must have a payload of 0-125 bytes")
	}
	if c.state != stateOpen {
		return errors.New("websocket: connection is not open")
	}
	if err := c.writeControlFrame(op, appData); err != nil {
		return c.setError(err)
	}
	return nil
}

func (c *Conn) writeControlFrame(op opcode, payload []byte) error {
	key, err := maskingKey()
	if err != nil {
		return err
	}
	f := frame{fin: true, opcode: op, mask: true, payloadLength: uint64(len(payload)), maskingKey: key, payloadData: payload}
	return c.writeFrame(f)
}

// writeFrame encodes and writes a single frame, verifying the transport
// returned the expected byte count. A short or failed write transitions the
// connection to CLOSED and records the error.
func (c *Conn) writeFrame(f frame) error {
	b := f.encode()
	n, err := c.transport.Write(b)
	if err != nil {
		c.teardown()
		return c.setError(errors.Wrap(err, "transport write failed"))
	}
	if n != len(b) {
		c.teardown()
		return c.setError(fmt.Errorf("short write: wrote %d of %d bytes", n, len(b)))
	}
	return nil
}

func maskingKey() ([]byte, error) {
	key := make([]byte, 4)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, errors.Wrap(err, "failed to generate frame masking key")
	}
	return key, nil
}

// failProtocol is called when the codec detects a protocol violation while
// reading. Per https://datatracker.ietf.org/doc/html/rfc6455#section-7.1.7
// it attempts a best-effort CLOSE(1002) before tearing down; a failure of
// that best-effort send is ignored.
func (c *Conn) failProtocol(cause error) error {
	c.log.Warnf("closing connection after protocol violation: %v", cause)
	_ = c.writeControlFrame(connectionCloseFrame, []byte{byte(StatusProtocolError >> 8), byte(StatusProtocolError)})
	c.teardown()
	return c.setError(errors.Wrap(cause, "protocol violation"))
}
