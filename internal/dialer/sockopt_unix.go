//go:build unix

package dialer

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/frankli0324/go-centra/internal/http"
)

// control returns a [net.Dialer.Control] applying the socket level
// options of o, or nil if there are none.
func control(o http.ConnOptions) func(network, address string, c syscall.RawConn) error {
	if !o.ReuseAddr && o.RecvBuffer == 0 && o.SendBuffer == 0 {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var serr error
		err := c.Control(func(fd uintptr) {
			if o.ReuseAddr {
				if serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); serr != nil {
					return
				}
			}
			if o.RecvBuffer > 0 {
				if serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, o.RecvBuffer); serr != nil {
					return
				}
			}
			if o.SendBuffer > 0 {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, o.SendBuffer)
			}
		})
		if err != nil {
			return err
		}
		return serr
	}
}
