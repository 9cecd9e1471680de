package internal

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/frankli0324/go-centra/internal/dialer"
	"github.com/frankli0324/go-centra/internal/http"
	"github.com/frankli0324/go-centra/internal/transport"
)

type Handler = func(ctx context.Context, req *http.PreparedRequest) (*http.Response, error)

// Middleware wraps the handler of a single hop. Redirects run the chain
// again for every hop.
type Middleware func(next Handler) Handler

const chunkSize = 32 << 10

var h1 transport.Transport = transport.HTTP1{}

var defaultDialer = &dialer.CoreDialer{
	TLSConfig: &tls.Config{},
}

// Client sends requests built with [Client.New]. The zero value is ready to
// use. Its fields and hooks must not be changed while requests are in flight.
type Client struct {
	Logger  *slog.Logger  // nil means slog.Default()
	Limiter *rate.Limiter // waited on before every dial, redirects included

	middlewares []Middleware
	dialer      dialer.Dialer
}

// Use appends mws to the chain. The first "Use"d mw executes first
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

// UseDialer replaces the dialer with the result of wrap, which receives the
// current one. A zero Client starts with a clone of the default *CoreDialer.
func (c *Client) UseDialer(wrap func(dialer.Dialer) dialer.Dialer) {
	if c.dialer == nil {
		c.dialer = defaultDialer.Clone()
	}
	c.dialer = wrap(c.dialer)
}

// UseCoreDialer installs a fresh clone of the default *CoreDialer, handing
// it to setup first.
func (c *Client) UseCoreDialer(setup func(cd *dialer.CoreDialer) dialer.Dialer) {
	c.dialer = setup(defaultDialer.Clone())
}

func (c *Client) New(rawURL string, method ...string) *http.Request {
	return http.NewRequest(c, rawURL, method...)
}

func (c *Client) NewURL(u *url.URL, method ...string) *http.Request {
	return http.NewRequestURL(c, u, method...)
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) dial(ctx context.Context, req *http.PreparedRequest) (net.Conn, error) {
	if c.dialer != nil {
		return c.dialer.Dial(ctx, req)
	}
	return defaultDialer.Dial(ctx, req)
}

func (c *Client) handler() Handler {
	next := c.roundTrip
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		next = c.middlewares[i](next)
	}
	return next
}

func followable(pr *http.PreparedRequest, resp *http.Response) bool {
	return pr.Redirects > 0 && resp.IsRedirect() && resp.Location() != ""
}

// Send performs r, following redirects within the budget of r. Every hop
// is a GET without body built by [http.Request.Redirect]. The timeout of r
// bounds the whole send, each hop only gets what is left of it.
func (c *Client) Send(ctx context.Context, r *http.Request) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	handler := c.handler()
	hops := -1
	var (
		timeout  time.Duration
		deadline time.Time
	)
	for {
		pr, err := r.Prepare()
		if err != nil {
			return nil, err
		}
		if hops < 0 {
			hops = pr.Redirects
			if timeout = pr.Timeout; timeout > 0 {
				deadline = time.Now().Add(timeout)
			}
		}
		if timeout > 0 {
			pr.Timeout = time.Until(deadline)
			if pr.Timeout <= 0 {
				return nil, fmt.Errorf("%w after %s", http.ErrTimeout, timeout)
			}
		}
		resp, err := handler(ctx, pr)
		if err != nil {
			return nil, err
		}
		if !followable(pr, resp) {
			return resp, nil
		}
		if hops == 0 {
			return nil, fmt.Errorf("%w: more than %d hops", http.ErrTooManyRedirects, pr.Redirects)
		}
		hops--
		target, err := pr.U.Parse(resp.Location())
		if err != nil {
			return nil, fmt.Errorf("bad redirect location %q: %w", resp.Location(), err)
		}
		c.logger().Debug("centra: following redirect",
			"status", resp.StatusCode, "from", pr.U.Redacted(), "to", target.Redacted(), "left", hops)
		r = r.Redirect(target)
	}
}

// roundTrip performs a single hop. Buffered requests return once the body
// is complete, streaming requests as soon as the headers are read.
func (c *Client) roundTrip(ctx context.Context, pr *http.PreparedRequest) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	log := c.logger()
	ex := newExchange(ctx, pr.Timeout)
	log.Debug("centra: dial", "method", pr.Method, "url", pr.U.Redacted())

	conn, err := c.dial(ex.ctx, pr)
	if err != nil {
		ex.release()
		return nil, ex.err(err)
	}
	if err := ex.attach(conn); err != nil {
		ex.release()
		return nil, err
	}
	if err := h1.Write(conn, pr); err != nil {
		ex.release()
		return nil, ex.err(err)
	}
	in, err := h1.Read(conn, pr)
	if err != nil {
		ex.release()
		return nil, ex.err(err)
	}

	resp, feed := http.NewResponse(in.StatusCode, in.Status, in.Proto, in.Header, pr.U, pr.Streaming)
	if followable(pr, resp) {
		// the body of a redirect is never surfaced
		ex.release()
		feed.End()
		return resp, nil
	}
	body := in.Body
	if pr.Compress {
		body = transport.Decode(body, in.Header.Get("Content-Encoding"))
	}
	if !pr.Streaming {
		if err := c.pump(ex, feed, body, pr.MaxBuffer); err != nil {
			return nil, err
		}
		return resp, nil
	}
	feed.OnClose(ex.abort)
	go c.pump(ex, feed, body, pr.MaxBuffer)
	return resp, nil
}

// pump moves body into feed until it ends, fails or the exchange is
// aborted, then settles feed exactly once.
func (c *Client) pump(ex *exchange, feed *http.Feed, body io.Reader, limit int64) error {
	defer ex.release()
	fail := func(err error) error {
		c.logger().Debug("centra: response failed", "error", err)
		feed.Fail(err)
		return err
	}
	buf := make([]byte, chunkSize)
	for {
		n, err := body.Read(buf)
		if ex.aborted() {
			return fail(ex.err(nil))
		}
		if n > 0 {
			if limit > 0 && int64(feed.Len())+int64(n) > limit {
				ex.abort(fmt.Errorf("%w: limit is %d bytes", http.ErrBufferLimit, limit))
				return fail(ex.err(nil))
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !feed.Chunk(chunk) {
				ex.abort(http.ErrResponseClosed)
				return fail(ex.err(nil))
			}
		}
		if err == io.EOF {
			feed.End()
			return nil
		}
		if err != nil {
			return fail(ex.err(err))
		}
	}
}
