// Package centra is a small HTTP/1.1 client built around a chainable request
// builder:
//
//	resp, err := centra.New("https://example.com/api", "POST").
//		Header("authorization", token).
//		Body(map[string]string{"hey": "hi"}).
//		Timeout(5 * time.Second).
//		Send(ctx)
//
// Responses are buffered by default. With [Request.Stream] Send returns as
// soon as the headers arrive and the body follows as [Event]s.
package centra

import (
	"net/http"
	"net/url"

	"github.com/frankli0324/go-centra/internal"
	ihttp "github.com/frankli0324/go-centra/internal/http"
)

type Header = http.Header
type Client = internal.Client
type Handler = internal.Handler
type Middleware = internal.Middleware

type Request = ihttp.Request
type PreparedRequest = ihttp.PreparedRequest
type Response = ihttp.Response
type Event = ihttp.Event
type EventKind = ihttp.EventKind
type Encoding = ihttp.Encoding
type ConfigError = ihttp.ConfigError

const (
	EventData  = ihttp.EventData
	EventError = ihttp.EventError
	EventEnd   = ihttp.EventEnd

	EncodingRaw  = ihttp.EncodingRaw
	EncodingJSON = ihttp.EncodingJSON
	EncodingForm = ihttp.EncodingForm
)

var (
	ErrBadScheme        = ihttp.ErrBadScheme
	ErrBadEncoding      = ihttp.ErrBadEncoding
	ErrInvalidHeader    = ihttp.ErrInvalidHeader
	ErrBadOption        = ihttp.ErrBadOption
	ErrTimeout          = ihttp.ErrTimeout
	ErrBufferLimit      = ihttp.ErrBufferLimit
	ErrTooManyRedirects = ihttp.ErrTooManyRedirects
	ErrResponseClosed   = ihttp.ErrResponseClosed
)

// DefaultClient is used by [New] and [NewURL].
var DefaultClient = &Client{}

// New starts a request on DefaultClient. method defaults to GET.
func New(rawURL string, method ...string) *Request {
	return DefaultClient.New(rawURL, method...)
}

func NewURL(u *url.URL, method ...string) *Request {
	return DefaultClient.NewURL(u, method...)
}
