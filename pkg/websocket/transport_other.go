//go:build !linux

package websocket

import (
	"errors"
	"syscall"
)

// sigpipeMasked is a no-op outside Linux: the explicit pthread signal-mask
// dance in transport_linux.go relies on a Sigset_t bit layout this package
// only special-cases for Linux. On Windows there is no SIGPIPE to mask; on
// other unix systems a short or failed write still surfaces normally through
// fn's return value, it just isn't guaranteed to have been shielded from
// terminating the process via SIGPIPE.
func sigpipeMasked(fn func() (int, error)) (int, error) {
	return fn()
}

// bindDeviceControl only supports binding to a named network device on
// Linux; elsewhere interface_connect can still bind to a local address, just
// not a specific device name.
func bindDeviceControl(device string) func(network, address string, c syscall.RawConn) error {
	if device == "" {
		return nil
	}
	return func(string, string, syscall.RawConn) error {
		return errors.New("binding to a named network device is only supported on linux")
	}
}
