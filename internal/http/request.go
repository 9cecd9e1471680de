package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Sender performs the transaction a [Request] describes. *internal.Client
// is the only implementation.
type Sender interface {
	Send(ctx context.Context, r *Request) (*Response, error)
}

type Encoding string

const (
	EncodingRaw  Encoding = "raw"
	EncodingJSON Encoding = "json"
	EncodingForm Encoding = "form"
)

// Request accumulates everything needed for one logical HTTP transaction.
// Every configuration method mutates the receiver and returns it, nothing
// is validated until [Request.Send].
//
// A Request must not be sent from multiple goroutines at the same time.
type Request struct {
	sender Sender
	err    error // deferred from construction, reported by Send

	URL    *url.URL
	Method string

	header    http.Header // keys are always lower case
	body      interface{}
	encoding  Encoding
	streaming bool
	timeout   time.Duration
	maxBuffer int64
	redirects int
	compress  bool
	options   map[string]interface{}
}

func NewRequest(s Sender, rawURL string, method ...string) *Request {
	u, err := url.Parse(rawURL)
	r := NewRequestURL(s, u, method...)
	r.err = err
	return r
}

func NewRequestURL(s Sender, u *url.URL, method ...string) *Request {
	r := &Request{
		sender:  s,
		Method:  http.MethodGet,
		header:  http.Header{},
		options: map[string]interface{}{},
	}
	if u != nil {
		cp := *u
		r.URL = &cp
	}
	if len(method) > 0 && method[0] != "" {
		r.Method = method[0]
	}
	return r
}

// Query sets a query string parameter, replacing previous values of name.
func (r *Request) Query(name, value string) *Request {
	if r.URL == nil {
		return r
	}
	q := r.URL.Query()
	q.Set(name, value)
	r.URL.RawQuery = q.Encode()
	return r
}

func (r *Request) Queries(params map[string]string) *Request {
	for k, v := range params {
		r.Query(k, v)
	}
	return r
}

// Path replaces the path of the URL. A relative p is joined with the
// current path, so "../updates" on "/test" becomes "/updates".
func (r *Request) Path(p string) *Request {
	if r.URL == nil {
		return r
	}
	if !strings.HasPrefix(p, "/") {
		joined := path.Join("/", r.URL.Path, p)
		if strings.HasSuffix(p, "/") && joined != "/" {
			joined += "/"
		}
		p = joined
	}
	r.URL.Path, r.URL.RawPath = p, ""
	return r
}

// Body sets the payload. Without an explicit encoding, strings, byte slices
// and readers are sent as is and everything else is encoded as JSON.
//
// json: data is marshalled, unless it is already []byte or json.RawMessage.
// form: data must be url.Values, map[string]string, map[string][]string
// or map[string]interface{}.
func (r *Request) Body(data interface{}, enc ...Encoding) *Request {
	r.body = data
	if len(enc) > 0 && enc[0] != "" {
		r.encoding = Encoding(strings.ToLower(string(enc[0])))
		return r
	}
	switch data.(type) {
	case nil, string, []byte, io.Reader:
		r.encoding = EncodingRaw
	default:
		r.encoding = EncodingJSON
	}
	return r
}

// Header sets a header, names are case insensitive.
func (r *Request) Header(name, value string) *Request {
	r.header[strings.ToLower(name)] = []string{value}
	return r
}

func (r *Request) Headers(headers map[string]string) *Request {
	for k, v := range headers {
		r.Header(k, v)
	}
	return r
}

// Timeout bounds the whole transaction, from dialing to the last body byte.
// It is not reset by incoming data.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Stream makes Send return as soon as the response headers arrive. The body
// is then delivered through [Response.Events].
func (r *Request) Stream() *Request {
	r.streaming = true
	return r
}

// MaxBuffer caps the number of (decoded) body bytes the response may hold.
func (r *Request) MaxBuffer(n int64) *Request {
	r.maxBuffer = n
	return r
}

// FollowRedirects follows up to n redirect hops. n <= 0 disables following.
func (r *Request) FollowRedirects(n int) *Request {
	r.redirects = n
	return r
}

// Compress asks for gzip, deflate or br and decodes the response body.
func (r *Request) Compress() *Request {
	r.compress = true
	return r
}

// Option sets a low level transport option. Options are applied after
// everything derived from the builder and win over it, see [PreparedRequest].
func (r *Request) Option(name string, value interface{}) *Request {
	r.options[name] = value
	return r
}

func (r *Request) Send(ctx context.Context) (*Response, error) {
	if r.sender == nil {
		return nil, configErr("send", errors.New("request is not bound to a client"))
	}
	return r.sender.Send(ctx, r)
}

// options addressing the target are meaningless on another URL
var targetOptions = map[string]bool{
	"protocol": true, "host": true, "hostname": true, "port": true,
	"path": true, "method": true, "headers": true,
}

// Redirect derives the request for the next redirect hop: GET, no body,
// same headers and policies.
func (r *Request) Redirect(target *url.URL) *Request {
	next := NewRequestURL(r.sender, target)
	next.header = r.header.Clone()
	delete(next.header, "content-type")
	delete(next.header, "content-length")
	if r.URL == nil || !strings.EqualFold(r.URL.Host, target.Host) {
		delete(next.header, "host")
	}
	next.streaming = r.streaming
	next.timeout = r.timeout
	next.maxBuffer = r.maxBuffer
	next.redirects = r.redirects
	next.compress = r.compress
	for k, v := range r.options {
		if !targetOptions[k] {
			next.options[k] = v
		}
	}
	return next
}
