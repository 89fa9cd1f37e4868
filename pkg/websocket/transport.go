package websocket

import (
	"crypto/tls"
	"net"
	"time"
)

const dialTimeout = 10 * time.Second

// Transport is the uniform byte-stream capability this package needs from a
// connection: blocking or non-blocking Read, Write, Close, and the local
// address actually bound (useful to confirm interface binding took effect).
// The TLS library itself, DNS resolution and socket binding are treated as
// external collaborators behind this interface; this package only dials and
// configures them.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	LocalAddr() net.Addr
}

// netTransport adapts a net.Conn (plain TCP or TLS) to Transport, masking
// SIGPIPE around every Read and Write so that a peer closing its end of the
// connection mid-write surfaces as an ordinary short write instead of
// terminating the process (see transport_linux.go and transport_other.go).
//
// When nonBlocking is set, Read and Write are given an already-expired
// deadline before each call: whatever is already available completes
// immediately, and a timeout - meaning nothing was ready - is reported back
// to the caller as (0, nil) instead of an error, per this package's
// non-blocking read mode.
type netTransport struct {
	nc          net.Conn
	nonBlocking bool
}

func newNetTransport(nc net.Conn, nonBlocking bool) *netTransport {
	return &netTransport{nc: nc, nonBlocking: nonBlocking}
}

func (t *netTransport) Read(p []byte) (int, error) {
	if t.nonBlocking {
		t.nc.SetReadDeadline(time.Now())
	}
	n, err := sigpipeMasked(func() (int, error) { return t.nc.Read(p) })
	if t.nonBlocking && isTimeout(err) {
		return 0, nil
	}
	return n, err
}

func (t *netTransport) Write(p []byte) (int, error) {
	if t.nonBlocking {
		t.nc.SetWriteDeadline(time.Now())
	}
	n, err := sigpipeMasked(func() (int, error) { return t.nc.Write(p) })
	if t.nonBlocking && isTimeout(err) {
		return 0, nil
	}
	return n, err
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func (t *netTransport) Close() error {
	return t.nc.Close()
}

func (t *netTransport) LocalAddr() net.Addr {
	return t.nc.LocalAddr()
}

// dialOptions carries interface_connect's optional local binding parameters
// through to the net.Dialer.
type dialOptions struct {
	localAddr *net.TCPAddr
	device    string
}

// dial opens the TCP connection (and, for "wss", the TLS handshake on top of
// it) for host:port, applying any local interface binding requested.
func dial(scheme, host, port string, opts dialOptions) (net.Conn, error) {
	d := &net.Dialer{
		Timeout: dialTimeout,
		Control: bindDeviceControl(opts.device),
	}
	if opts.localAddr != nil {
		d.LocalAddr = opts.localAddr
	}

	nc, err := d.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}

	if scheme == "wss" {
		// Configure SNI using the parsed host: required when the server
		// hosts multiple names behind one IP address.
		tc := tls.Client(nc, &tls.Config{ServerName: host})
		if err := tc.Handshake(); err != nil {
			nc.Close()
			return nil, err
		}
		return tc, nil
	}
	return nc, nil
}

// bindDeviceControl, when device is non-empty, returns a net.Dialer.Control
// callback that binds the outbound socket to the named network device
// before connecting (see transport_linux.go / transport_other.go).
