package dialer

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"

	"github.com/frankli0324/go-centra/internal/http"
)

var schemes = map[string]string{
	"http": "80", "https": "443",
	"socks": "1080", "socks5": "1080", "socks5h": "1080",
}

var zeroDialer net.Dialer
var customDnsDialer = net.Dialer{
	Resolver: &customServerResolver,
}

// hostPort splits the authority of u, filling in the default port of its scheme
func hostPort(u *url.URL) (addr, port string) {
	addr, port = u.Host, schemes[u.Scheme]
	if add, prt, err := net.SplitHostPort(addr); err == nil {
		addr, port = add, prt
	}
	return addr, port
}

func (d *CoreDialer) Dial(ctx context.Context, r *http.PreparedRequest) (net.Conn, error) {
	addr, port := hostPort(r.U)

	conn, err := d.tryDialProxy(ctx, r)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		conn, err = d.dialDirect(ctx, r.Conn, addr, port)
		if err != nil {
			return nil, err
		}
	}
	if r.U.Scheme == "https" {
		c, err := d.handshake(ctx, conn, r)
		if err != nil {
			conn.Close()
			return nil, err
		}
		conn = c
	}
	return conn, nil
}

func (d *CoreDialer) dialDirect(ctx context.Context, opts http.ConnOptions, addr, port string) (net.Conn, error) {
	// as of now net.Dialer could handle current DNS configurations
	network, dialer, dialctx, dst := "tcp", zeroDialer, ctx, net.JoinHostPort(addr, port)

	cfg := d.ResolveConfig
	if cfg.network() == "ip4" {
		network = "tcp4"
	} else if cfg.network() == "ip6" {
		network = "tcp6"
	}
	if static, ok := cfg.static(addr); ok {
		dst = net.JoinHostPort(static, port)
	}
	if dns := cfg.server(); dns != "" {
		dialctx = dnsServerCtx{dialctx, dns}
		dialer = customDnsDialer
	}
	if opts.LocalAddr != "" {
		local, err := net.ResolveTCPAddr(network, net.JoinHostPort(opts.LocalAddr, "0"))
		if err != nil {
			return nil, err
		}
		dialer.LocalAddr = local
	}
	dialer.Control = control(opts)

	return dialer.DialContext(dialctx, network, dst)
}

func (d *CoreDialer) handshake(ctx context.Context, conn net.Conn, r *http.PreparedRequest) (net.Conn, error) {
	config := d.TLSConfig.Clone()
	if config == nil {
		config = &tls.Config{}
	}
	config.ServerName = r.U.Hostname()
	if r.Conn.ServerName != "" {
		config.ServerName = r.Conn.ServerName
	}
	if r.Conn.InsecureSkipVerify {
		config.InsecureSkipVerify = true
	}
	config.NextProtos = []string{"http/1.1"} // h2 is never spoken
	c := tls.Client(conn, config)
	if err := c.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
