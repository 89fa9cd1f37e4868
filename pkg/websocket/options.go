package websocket

// Option configures a Conn at construction time. This mirrors the
// functional-options shape used elsewhere for session configuration; see
// DESIGN.md.
type Option func(*Conn)

// WithNonBlocking selects the non-blocking read mode: BasicRead returns
// immediately, with no error and no state change, when no data is
// available yet, instead of blocking the calling goroutine.
func WithNonBlocking() Option {
	return func(c *Conn) { c.nonBlocking = true }
}

// WithPingBacklog sets the initial ping backlog threshold (see
// SetPingBacklog). The default is 1: respond to every ping.
func WithPingBacklog(n int) Option {
	return func(c *Conn) { c.pingBacklog = n }
}

// WithLogger overrides the package default logger for this connection.
func WithLogger(l Logger) Option {
	return func(c *Conn) { c.log = l }
}
