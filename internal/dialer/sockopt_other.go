//go:build !unix

package dialer

import (
	"errors"
	"syscall"

	"github.com/frankli0324/go-centra/internal/http"
)

var errSockopt = errors.New("socket options are not supported on this platform")

func control(o http.ConnOptions) func(network, address string, c syscall.RawConn) error {
	if !o.ReuseAddr && o.RecvBuffer == 0 && o.SendBuffer == 0 {
		return nil
	}
	return func(string, string, syscall.RawConn) error {
		return errSockopt
	}
}
