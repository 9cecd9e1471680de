package dialer

import (
	"context"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-centra/internal/http"
)

func TestResolveConfigMerge(t *testing.T) {
	var nilCfg *ResolveConfig
	assert.Nil(t, nilCfg.Merge(nil))

	fallback := &ResolveConfig{
		CustomDNSServer: "8.8.8.8:53",
		Network:         "ip4",
		StaticHosts:     map[string]string{"a": "1.1.1.1", "b": "2.2.2.2"},
	}
	own := &ResolveConfig{StaticHosts: map[string]string{"b": "3.3.3.3"}}

	m := own.Merge(fallback)
	assert.Equal(t, "8.8.8.8:53", m.CustomDNSServer)
	assert.Equal(t, "ip4", m.Network)
	assert.Equal(t, map[string]string{"a": "1.1.1.1", "b": "3.3.3.3"}, m.StaticHosts)
	// neither side is modified
	assert.Equal(t, "2.2.2.2", fallback.StaticHosts["b"])
	assert.Len(t, own.StaticHosts, 1)

	assert.Equal(t, fallback, nilCfg.Merge(fallback))
	assert.NotSame(t, fallback, nilCfg.Merge(fallback))
	assert.Equal(t, own, own.Merge(nil))
}

func TestResolveConfigDefaults(t *testing.T) {
	var c *ResolveConfig
	assert.Equal(t, "ip", c.network())
	assert.Equal(t, "", c.server())
	_, ok := c.static("x")
	assert.False(t, ok)
}

func TestCoreDialerClone(t *testing.T) {
	d := &CoreDialer{
		ResolveConfig: &ResolveConfig{StaticHosts: map[string]string{"a": "1.1.1.1"}},
		ProxyConfig:   &ProxyConfig{ResolveLocally: true},
	}
	cp := d.Clone()
	cp.ResolveConfig.StaticHosts["a"] = "2.2.2.2"
	cp.ProxyConfig.ResolveLocally = false
	assert.Equal(t, "1.1.1.1", d.ResolveConfig.StaticHosts["a"])
	assert.True(t, d.ProxyConfig.ResolveLocally)
	assert.Nil(t, cp.TLSConfig)
}

type wrapper struct{ next Dialer }

func (w wrapper) Dial(ctx context.Context, r *http.PreparedRequest) (net.Conn, error) {
	return w.next.Dial(ctx, r)
}
func (w wrapper) Unwrap() Dialer { return w.next }

func TestCore(t *testing.T) {
	cd := &CoreDialer{}
	assert.Same(t, cd, Core(cd))
	assert.Same(t, cd, Core(wrapper{wrapper{cd}}))
	assert.Nil(t, Core(wrapper{nil}))
	assert.Nil(t, Core(nil))
}

func TestHostPort(t *testing.T) {
	tests := []struct {
		raw        string
		addr, port string
	}{
		{"http://example.com", "example.com", "80"},
		{"https://example.com", "example.com", "443"},
		{"https://example.com:8443", "example.com", "8443"},
		{"http://[::1]:81", "::1", "81"},
		{"socks5://proxy", "proxy", "1080"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		require.NoError(t, err)
		addr, port := hostPort(u)
		assert.Equal(t, tt.addr, addr, tt.raw)
		assert.Equal(t, tt.port, port, tt.raw)
	}
}

func TestDialStatic(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	accepted := make(chan struct{})
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
			close(accepted)
		}
	}()
	_, port, _ := net.SplitHostPort(ln.Addr().String())

	d := &CoreDialer{ResolveConfig: &ResolveConfig{StaticHosts: map[string]string{"centra.test": "127.0.0.1"}}}
	u, _ := url.Parse("http://centra.test:" + port)
	conn, err := d.Dial(context.Background(), &http.PreparedRequest{U: u})
	require.NoError(t, err)
	conn.Close()
	<-accepted
}

func TestControl(t *testing.T) {
	assert.Nil(t, control(http.ConnOptions{}))
	assert.Nil(t, control(http.ConnOptions{LocalAddr: "127.0.0.1", ServerName: "x"}))
	assert.NotNil(t, control(http.ConnOptions{ReuseAddr: true}))
	assert.NotNil(t, control(http.ConnOptions{RecvBuffer: 1024}))
}

func TestUnsupportedProxyScheme(t *testing.T) {
	d := &CoreDialer{}
	remote, _ := url.Parse("http://example.com")
	p, _ := url.Parse("ftp://proxy")
	_, err := d.DialContextOverProxy(context.Background(), remote, p)
	assert.Error(t, err)
}
