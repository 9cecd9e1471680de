package internal

import (
	"context"
	"crypto/tls"

	"github.com/frankli0324/go-centra/internal/dialer"
	"github.com/frankli0324/go-centra/internal/http"
)

// UseProxy routes every request through proxy (http, https, socks5 or
// socks5h URL). It reports false if no *CoreDialer is in the chain.
func (c *Client) UseProxy(proxy string) (ok bool) {
	c.UseDialer(func(d dialer.Dialer) dialer.Dialer {
		if cd := dialer.Core(d); cd != nil {
			cd.GetProxy = func(context.Context, *http.PreparedRequest) (string, error) {
				return proxy, nil
			}
			ok = true
		}
		return d
	})
	return
}

// InsecureSkipVerify disables certificate verification for every request.
func (c *Client) InsecureSkipVerify() (ok bool) {
	c.UseDialer(func(d dialer.Dialer) dialer.Dialer {
		if cd := dialer.Core(d); cd != nil {
			if cd.TLSConfig == nil {
				cd.TLSConfig = &tls.Config{}
			}
			cd.TLSConfig.InsecureSkipVerify = true
			ok = true
		}
		return d
	})
	return
}
