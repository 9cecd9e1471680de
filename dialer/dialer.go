package dialer

import (
	"github.com/frankli0324/go-centra/internal/dialer"
)

// Dialers are responsible for creating the connections requests are written
// to and responses are read from, e.g. a raw TCP connection, wrapped in TLS
// for https targets.
//
// A Dialer MUST NOT hold active connection states: every request gets a
// fresh connection that is closed once its response is consumed. It SHOULD
// hold the connection related configs like [ProxyConfig] or *[crypto/tls.Config].
type Dialer = dialer.Dialer

// CoreDialer is the default implementation of the [Dialer] interface. It would
// be used by a zero value [centra.Client].
//
// Per request settings set with Request.Option (localAddress, servername,
// insecureSkipVerify, reuseAddr, recvBuffer, sendBuffer) are applied on top
// of its configuration.
type CoreDialer = dialer.CoreDialer

// ProxyConfig tunes how requests are sent through the proxy returned by
// CoreDialer.GetProxy. http and https proxies are used with CONNECT,
// socks5 and socks5h proxies are supported as well: socks5 resolves the
// target locally with the dialer's ResolveConfig, socks5h lets the proxy
// resolve it.
type ProxyConfig = dialer.ProxyConfig

// we need a dedicated resolver for two scenarios:
//
//  1. Resolve remote address locally in proxied requests
//  2. to customize the DNS server used for resolving hostname
//
// the standard library didn't provide a intuitive way of
// setting DNS server addresses since it only follows the
// system configuration (e.g. /etc/resolv.conf), leaving us only
// one option of using [net.Resolver.Dial] hook with a Go Resolver.
//
// this part of code tries to take advantage of that
// only option as far as possible to provide a relativly
// intuitive configuration API.
type ResolveConfig = dialer.ResolveConfig

// Core finds the *CoreDialer a chain of wrapping dialers ends with.
func Core(d Dialer) *CoreDialer {
	return dialer.Core(d)
}
