package websocket

// maxErrorMessageLen bounds the last-error buffer, consistent with this
// package's data model of "a single boolean flag plus a bounded
// human-readable message" rather than an arbitrary error chain.
const maxErrorMessageLen = 256

// setError records err as the connection's last error and raises the error
// flag. It returns err unchanged so call sites can `return c.setError(err)`.
func (c *Conn) setError(err error) error {
	c.hasError = true
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	c.lastError = msg
	return err
}

// IsOpen reports whether the connection is currently usable for Send and
// BasicRead.
func (c *Conn) IsOpen() bool {
	return c.state == stateOpen
}

// Status reports whether an error has been recorded since the last
// successful Connect/InterfaceConnect or Clear.
func (c *Conn) Status() bool {
	return c.hasError
}

// GetErrorMessage returns the most recently recorded error message, or ""
// if none has been recorded.
func (c *Conn) GetErrorMessage() string {
	return c.lastError
}

// Clear resets the error flag, but only while the connection is OPEN. A
// CLOSED connection can only be cleared by a new successful Connect or
// InterfaceConnect; there is no way to resurrect it otherwise.
func (c *Conn) Clear() {
	if c.state == stateOpen {
		c.hasError = false
		c.lastError = ""
	}
}
