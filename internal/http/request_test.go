package http

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPath(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{"parent segment", "http://localhost/test", "../updates", "/updates"},
		{"absolute replaces", "http://localhost/a/b", "/c", "/c"},
		{"relative joins", "http://localhost/a/b", "c", "/a/b/c"},
		{"trailing slash kept", "http://localhost/a", "b/", "/a/b/"},
		{"empty base", "http://localhost", "x", "/x"},
		{"cannot climb above root", "http://localhost/a", "../../x", "/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRequest(nil, tt.base).Path(tt.path)
			assert.Equal(t, tt.want, r.URL.Path)
		})
	}
}

func TestRequestQuery(t *testing.T) {
	r := NewRequest(nil, "http://localhost/p?a=1&keep=yes").
		Query("a", "2").
		Queries(map[string]string{"b": "3", "c": "x y"})

	q := r.URL.Query()
	assert.Equal(t, []string{"2"}, q["a"])
	assert.Equal(t, "3", q.Get("b"))
	assert.Equal(t, "x y", q.Get("c"))
	assert.Equal(t, "yes", q.Get("keep"))
}

func TestRequestHeaderCaseInsensitive(t *testing.T) {
	r := NewRequest(nil, "http://localhost/").
		Header("Hey", "1").
		Headers(map[string]string{"HEY": "2", "Test": "testing"}).
		Header("test", "last")

	assert.Equal(t, []string{"2"}, r.header["hey"])
	assert.Equal(t, []string{"last"}, r.header["test"])
	assert.Len(t, r.header, 2)
}

func TestRequestBodyEncoding(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
		enc  []Encoding
		want Encoding
	}{
		{"map defaults to json", map[string]string{"hey": "hi"}, nil, EncodingJSON},
		{"struct defaults to json", struct{ A int }{1}, nil, EncodingJSON},
		{"bytes are raw", []byte("x"), nil, EncodingRaw},
		{"string is raw", "x", nil, EncodingRaw},
		{"reader is raw", strings.NewReader("x"), nil, EncodingRaw},
		{"explicit form", map[string]string{"a": "b"}, []Encoding{"FORM"}, EncodingForm},
		{"explicit raw wins", map[string]string{}, []Encoding{EncodingRaw}, EncodingRaw},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRequest(nil, "http://localhost/").Body(tt.data, tt.enc...)
			assert.Equal(t, tt.want, r.encoding)
		})
	}
}

func TestRequestDefaults(t *testing.T) {
	r := NewRequest(nil, "http://localhost/")
	assert.Equal(t, "GET", r.Method)
	assert.False(t, r.streaming)
	assert.Zero(t, r.timeout)

	r = NewRequest(nil, "http://localhost/", "POST").Timeout(time.Second).Stream().FollowRedirects(2).Compress().MaxBuffer(10)
	assert.Equal(t, "POST", r.Method)
	assert.True(t, r.streaming)
	assert.True(t, r.compress)
	assert.Equal(t, time.Second, r.timeout)
	assert.Equal(t, 2, r.redirects)
	assert.EqualValues(t, 10, r.maxBuffer)
}

func TestNewRequestURLCopies(t *testing.T) {
	u, err := url.Parse("http://localhost/a")
	require.NoError(t, err)
	NewRequestURL(nil, u).Path("/b")
	assert.Equal(t, "/a", u.Path)
}

func TestRequestSendUnbound(t *testing.T) {
	_, err := NewRequest(nil, "http://localhost/").Send(context.Background())
	var cerr *ConfigError
	assert.True(t, errors.As(err, &cerr))
}

func TestRequestRedirect(t *testing.T) {
	r := NewRequest(nil, "http://a.example/start", "POST").
		Header("Cookie", "session=1").
		Header("Authorization", "Bearer x").
		Header("Content-Type", "text/plain").
		Header("Host", "a.example").
		Body("payload").
		Timeout(time.Second).
		Stream().
		FollowRedirects(3).
		Option("path", "/elsewhere").
		Option("localAddress", "127.0.0.1")

	same, _ := url.Parse("http://a.example/next")
	next := r.Redirect(same)
	assert.Equal(t, "GET", next.Method)
	assert.Nil(t, next.body)
	assert.Equal(t, "session=1", next.header.Get("cookie"))
	assert.Equal(t, []string{"Bearer x"}, next.header["authorization"])
	assert.NotContains(t, next.header, "content-type")
	assert.Equal(t, []string{"a.example"}, next.header["host"])
	assert.True(t, next.streaming)
	assert.Equal(t, time.Second, next.timeout)
	assert.Equal(t, 3, next.redirects)
	assert.NotContains(t, next.options, "path")
	assert.Equal(t, "127.0.0.1", next.options["localAddress"])

	other, _ := url.Parse("http://b.example/next")
	next = r.Redirect(other)
	assert.NotContains(t, next.header, "host")
	assert.Equal(t, []string{"session=1"}, next.header["cookie"])
}
