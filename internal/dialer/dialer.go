package dialer

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/frankli0324/go-centra/internal/http"
)

// Dialers handle pretty much everything related to the actual connection,
// including setting a proxy for each request, setting resolvers, etc.
type Dialer interface {
	// Dial returns a connection the request can be written to. For https
	// the returned connection has already completed the TLS handshake.
	Dial(ctx context.Context, r *http.PreparedRequest) (net.Conn, error)
	Unwrap() Dialer
}

type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use

	GetProxy    func(ctx context.Context, r *http.PreparedRequest) (string, error)
	ProxyConfig *ProxyConfig
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		TLSConfig:     d.TLSConfig.Clone(),
		GetProxy:      d.GetProxy,
		ProxyConfig:   d.ProxyConfig.Clone(),
	}
}

func (d *CoreDialer) Unwrap() Dialer {
	return nil
}

// Core walks the chain of wrapped dialers down to the *CoreDialer, if any.
func Core(d Dialer) *CoreDialer {
	for d != nil {
		if cd, ok := d.(*CoreDialer); ok {
			return cd
		}
		d = d.Unwrap()
	}
	return nil
}
