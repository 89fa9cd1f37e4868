//go:build linux

package websocket

import (
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// sigpipeMasked blocks SIGPIPE on the calling OS thread for the duration of
// fn, restoring the thread's previous signal mask on every exit path. This
// keeps a write to a peer that has already closed its end of the connection
// from raising SIGPIPE and terminating the process; the failed write instead
// surfaces to fn's caller as an ordinary short or zero return.
//
// goroutines can migrate between OS threads between Go statements, so the
// thread is pinned with LockOSThread for exactly as long as the mask is
// installed.
func sigpipeMasked(fn func() (int, error)) (int, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var oldset unix.Sigset_t // explicitly zeroed: PthreadSigmask only writes bits it knows
	var block unix.Sigset_t
	const sigpipe = uint64(unix.SIGPIPE)
	block.Val[(sigpipe-1)/64] |= 1 << ((sigpipe - 1) % 64)

	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &block, &oldset); err != nil {
		return fn()
	}
	defer unix.PthreadSigmask(unix.SIG_SETMASK, &oldset, nil)

	return fn()
}

// bindDeviceControl binds the outbound socket to a named network device
// (SO_BINDTODEVICE) before connecting, for interface_connect.
func bindDeviceControl(device string) func(network, address string, c syscall.RawConn) error {
	if device == "" {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var bindErr error
		if err := c.Control(func(fd uintptr) {
			bindErr = unix.BindToDevice(int(fd), device)
		}); err != nil {
			return err
		}
		return bindErr
	}
}
