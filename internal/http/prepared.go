package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/http/httpguts"
)

const acceptEncoding = "gzip, deflate, br"

// ConnOptions are per request settings for the [Dialer], only reachable
// through [Request.Option].
type ConnOptions struct {
	LocalAddr          string
	ServerName         string
	InsecureSkipVerify bool
	ReuseAddr          bool
	RecvBuffer         int
	SendBuffer         int
}

// PreparedRequest is a [Request] resolved into what goes on the wire.
type PreparedRequest struct {
	Request *Request

	U          *url.URL
	Method     string
	Header     http.Header // lower case names, without host and content-length
	HeaderHost string
	SetHost    bool
	GetBody    func() (io.ReadCloser, error)

	ContentLength int64 // -1 with a non-nil body means chunked
	HasBody       bool

	Streaming bool
	Timeout   time.Duration
	MaxBuffer int64
	Redirects int
	Compress  bool

	Conn ConnOptions
}

func (r *Request) Prepare() (*PreparedRequest, error) {
	if r.err != nil {
		return nil, configErr("parse url", r.err)
	}
	if r.URL == nil {
		return nil, configErr("parse url", errors.New("no URL"))
	}
	u := *r.URL
	pr := &PreparedRequest{
		Request: r, U: &u, Method: r.Method,
		Header: r.header.Clone(), SetHost: true,
		ContentLength: -1,
		Streaming:     r.streaming, Timeout: r.timeout,
		MaxBuffer: r.maxBuffer, Redirects: r.redirects,
		Compress: r.compress,
	}
	if pr.Header == nil {
		pr.Header = http.Header{}
	}

	payload, err := r.encodeBody()
	if err != nil {
		return nil, configErr("encode body", err)
	}
	if payload != nil {
		if _, ok := pr.Header["content-type"]; !ok {
			switch r.encoding {
			case EncodingJSON:
				pr.Header["content-type"] = []string{"application/json"}
			case EncodingForm:
				pr.Header["content-type"] = []string{"application/x-www-form-urlencoded"}
			}
		}
	}
	if r.compress {
		if _, ok := pr.Header["accept-encoding"]; !ok {
			pr.Header["accept-encoding"] = []string{acceptEncoding}
		}
	}

	// overrides win over everything above
	names := make([]string, 0, len(r.options))
	for k := range r.options {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := pr.applyOption(k, r.options[k]); err != nil {
			return nil, configErr("option", err)
		}
	}

	if s := pr.U.Scheme; s != "http" && s != "https" {
		return nil, configErr("send", fmt.Errorf("%w: %q", ErrBadScheme, s))
	}

	host := pr.U.Host
	cl := int64(-1)
	// user defined headers has higher priority
	if v := pr.Header["host"]; len(v) != 0 {
		host = v[0]
	}
	delete(pr.Header, "host")
	if v := pr.Header["content-length"]; len(v) != 0 {
		n, err := strconv.ParseInt(v[0], 10, 64)
		if err != nil || n < 0 {
			return nil, configErr("header", fmt.Errorf("%w: content-length %q", ErrInvalidHeader, v[0]))
		}
		cl = n
	}
	delete(pr.Header, "content-length")
	if host == "" {
		return nil, configErr("send", url.InvalidHostError("empty host"))
	}
	if !httpguts.ValidHostHeader(host) {
		return nil, configErr("header", fmt.Errorf("%w: host %q", ErrInvalidHeader, host))
	}
	pr.HeaderHost = host
	for k, vv := range pr.Header {
		if !httpguts.ValidHeaderFieldName(k) {
			return nil, configErr("header", fmt.Errorf("%w: name %q", ErrInvalidHeader, k))
		}
		for _, v := range vv {
			if !httpguts.ValidHeaderFieldValue(v) {
				return nil, configErr("header", fmt.Errorf("%w: value for %q", ErrInvalidHeader, k))
			}
		}
	}

	// note that setBody potentially updates content-length
	if err := pr.setBody(payload); err != nil {
		return nil, configErr("encode body", err)
	}
	if cl != -1 {
		known := pr.ContentLength != -1 || payload == nil
		if known && pr.ContentLength != cl && !(payload == nil && cl == 0) {
			return nil, configErr("header", errors.New("conflicting value between body size and content-length request header"))
		}
		pr.ContentLength = cl
	}
	return pr, nil
}

func (r *Request) encodeBody() (interface{}, error) {
	if r.body == nil {
		return nil, nil
	}
	switch r.encoding {
	case EncodingRaw, "":
		if b, ok := r.body.(json.RawMessage); ok {
			return []byte(b), nil
		}
		return r.body, nil
	case EncodingJSON:
		switch b := r.body.(type) {
		case json.RawMessage:
			return []byte(b), nil
		case []byte:
			return b, nil
		}
		return json.Marshal(r.body)
	case EncodingForm:
		return encodeForm(r.body)
	}
	return nil, fmt.Errorf("%w: %q", ErrBadEncoding, r.encoding)
}

func encodeForm(data interface{}) (string, error) {
	var v url.Values
	switch d := data.(type) {
	case url.Values:
		v = d
	case map[string][]string:
		v = url.Values(d)
	case map[string]string:
		v = make(url.Values, len(d))
		for k, s := range d {
			v.Set(k, s)
		}
	case map[string]interface{}:
		v = make(url.Values, len(d))
		for k, s := range d {
			v.Set(k, fmt.Sprint(s))
		}
	case string:
		return d, nil
	default:
		return "", fmt.Errorf("%w: cannot form-encode %T", ErrBadEncoding, data)
	}
	return v.Encode(), nil
}

// should only be called once at [Request.Prepare]
func (r *PreparedRequest) setBody(payload interface{}) error {
	if payload == nil {
		r.GetBody = func() (io.ReadCloser, error) {
			return NoBody, nil
		}
		return nil
	}
	r.HasBody = true
	switch b := payload.(type) {
	case string:
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(b)), nil
		}
	case []byte:
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	case *bytes.Buffer: // below is taken from http.NewRequest
		r.ContentLength = int64(b.Len())
		buf := b.Bytes()
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		}
	case *bytes.Reader:
		r.ContentLength = int64(b.Len())
		snapshot := *b
		r.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case *strings.Reader:
		r.ContentLength = int64(b.Len())
		snapshot := *b
		r.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case io.Reader:
		if sizer, ok := b.(interface{ Size() int64 }); ok {
			r.ContentLength = sizer.Size()
		}
		cb, ok := b.(io.ReadCloser)
		if !ok {
			cb = io.NopCloser(b)
		}
		once := uint32(0)
		r.GetBody = func() (io.ReadCloser, error) {
			if atomic.CompareAndSwapUint32(&once, 0, 1) {
				return cb, nil
			}
			return nil, http.ErrBodyReadAfterClose
		}
	default:
		return fmt.Errorf("unsupported body type: %T", payload)
	}
	if r.ContentLength == 0 {
		r.HasBody = false
	}
	return nil
}
