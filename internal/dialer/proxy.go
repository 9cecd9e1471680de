package dialer

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/url"

	"golang.org/x/net/proxy"

	"github.com/frankli0324/go-centra/internal/http"
	"github.com/frankli0324/go-centra/internal/transport"
)

type ProxyConfig struct {
	TLSConfig *tls.Config // the [*tls.Config] to use with proxy, if nil, *[CoreDialer.TLSConfig] will be used

	// ResolveLocally resolves the target before CONNECT. socks5 and socks
	// proxies always resolve locally, socks5h never does.
	ResolveLocally bool
	ResolveConfig  *ResolveConfig // overrides the resolver config for dialer for proxy
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}

var (
	h1Transport = transport.HTTP1{}
)

func (d *CoreDialer) tryDialProxy(ctx context.Context, r *http.PreparedRequest) (net.Conn, error) {
	if d.GetProxy != nil {
		p, perr := d.GetProxy(ctx, r)
		if perr != nil {
			return nil, perr
		}
		if p != "" {
			proxyU, perr := url.Parse(p)
			if perr != nil {
				return nil, perr
			}
			return d.DialContextOverProxy(ctx, r.U, proxyU)
		}
	}
	return nil, nil
}

// resolveTarget resolves addr locally when local is set or the proxy
// config asks for it, addr is returned untouched otherwise.
func (d *CoreDialer) resolveTarget(ctx context.Context, addr string, local bool) (string, error) {
	var proxyDNS *ResolveConfig
	if d.ProxyConfig != nil {
		local = local || d.ProxyConfig.ResolveLocally
		proxyDNS = d.ProxyConfig.ResolveConfig
	}
	if !local {
		return addr, nil
	}
	dnsCfg := proxyDNS.Merge(d.ResolveConfig)
	if res, ok := dnsCfg.static(addr); ok {
		return res, nil
	}
	if net.ParseIP(addr) != nil {
		return addr, nil
	}
	ips, err := d.lookup(ctx, dnsCfg, addr)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("no address found for %s", addr)
	}
	return ips[rand.Intn(len(ips))].String(), nil
}

// DialContextOverProxy creates a connection over http/socks proxy.
// This part of logic may be reused when wrapping *[CoreDialer] into
// a new custom [Dialer]
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, remote, proxyU *url.URL) (net.Conn, error) {
	addr, port := hostPort(remote)
	switch proxyU.Scheme {
	case "http", "https":
	case "socks5", "socks5h", "socks":
		return d.dialSocks(ctx, addr, port, proxyU)
	default:
		return nil, errors.New("unsupported proxy scheme:" + proxyU.Scheme)
	}
	proxyAddr, proxyPort := hostPort(proxyU)

	conn, err := zeroDialer.DialContext(ctx, "tcp", net.JoinHostPort(proxyAddr, proxyPort))
	if err != nil {
		return nil, err
	}

	if proxyU.Scheme == "https" {
		var tlsCfg *tls.Config
		if d.ProxyConfig != nil {
			tlsCfg = d.ProxyConfig.TLSConfig.Clone()
		}
		if tlsCfg == nil {
			tlsCfg = d.TLSConfig.Clone()
		}
		if tlsCfg == nil {
			tlsCfg = &tls.Config{}
		}
		if tlsCfg.ServerName == "" {
			tlsCfg.ServerName = proxyU.Hostname()
		}
		c := tls.Client(conn, tlsCfg)
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		conn = c
	}

	if addr, err = d.resolveTarget(ctx, addr, false); err != nil {
		conn.Close()
		return nil, err
	}

	connReq := &http.PreparedRequest{
		Method:        "CONNECT",
		HeaderHost:    remote.Host,
		SetHost:       true,
		U:             &url.URL{Path: net.JoinHostPort(addr, port)},
		Header:        http.Header{},
		ContentLength: -1,
		GetBody:       func() (io.ReadCloser, error) { return http.NoBody, nil },
	}
	if u := proxyU.User; u != nil {
		pass, _ := u.Password()
		auth := u.Username() + ":" + pass
		connReq.Header["proxy-authorization"] = []string{"Basic " + base64.StdEncoding.EncodeToString([]byte(auth))}
	}
	if err := h1Transport.Write(conn, connReq); err != nil {
		conn.Close()
		return nil, err
	}
	resp, err := h1Transport.Read(conn, connReq)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if resp.StatusCode != 200 {
		s, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		conn.Close()
		return nil, fmt.Errorf("proxy server returned error. status:%d, body:%s", resp.StatusCode, string(s))
	}
	return conn, nil
}

func (d *CoreDialer) dialSocks(ctx context.Context, addr, port string, proxyU *url.URL) (net.Conn, error) {
	pu := *proxyU
	proxyAddr, proxyPort := hostPort(proxyU)
	pu.Host = net.JoinHostPort(proxyAddr, proxyPort)
	// socks5 and socks resolve here, socks5h leaves it to the proxy
	if pu.Scheme != "socks5h" {
		var err error
		if addr, err = d.resolveTarget(ctx, addr, true); err != nil {
			return nil, err
		}
	}
	// the dialer sends host names as they are, resolution already happened
	pu.Scheme = "socks5"
	pd, err := proxy.FromURL(&pu, &zeroDialer)
	if err != nil {
		return nil, err
	}
	target := net.JoinHostPort(addr, port)
	if cd, ok := pd.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", target)
	}
	return pd.Dial("tcp", target)
}
