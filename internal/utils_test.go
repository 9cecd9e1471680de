package internal_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-centra/internal"
	"github.com/frankli0324/go-centra/internal/dialer"
	ihttp "github.com/frankli0324/go-centra/internal/http"
)

type TestDialer struct {
	conn net.Conn
}

// Dial implements dialer.Dialer.
func (t *TestDialer) Dial(ctx context.Context, r *ihttp.PreparedRequest) (net.Conn, error) {
	return t.conn, nil
}

// Unwrap implements dialer.Dialer.
func (t *TestDialer) Unwrap() dialer.Dialer {
	return nil
}

// SendSingleRequest sends req over an in-memory connection answered with
// response, returning the response and the bytes that went on the wire.
func SendSingleRequest(t *testing.T, c *internal.Client, req *ihttp.Request, response string) (*ihttp.Response, string) {
	t.Helper()
	client, server := net.Pipe()
	c.UseDialer(func(dialer.Dialer) dialer.Dialer {
		return &TestDialer{client}
	})

	wire := make(chan string, 1)
	go func() {
		defer server.Close()
		raw := &bytes.Buffer{}
		r, err := http.ReadRequest(bufio.NewReader(io.TeeReader(server, raw)))
		if err != nil {
			t.Error(err)
			wire <- raw.String()
			return
		}
		io.Copy(io.Discard, r.Body)
		wire <- raw.String()
		io.WriteString(server, response)
	}()

	resp, err := c.Send(context.Background(), req)
	require.NoError(t, err)
	return resp, <-wire
}

type echo struct {
	Method           string
	Path             string
	RawQuery         string
	Host             string
	RemoteAddr       string
	Header           http.Header
	Body             string
	ContentLength    int64
	TransferEncoding []string
}

func serveEcho(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(echo{
		Method: r.Method, Path: r.URL.Path, RawQuery: r.URL.RawQuery,
		Host: r.Host, RemoteAddr: r.RemoteAddr, Header: r.Header,
		Body: string(body), ContentLength: r.ContentLength,
		TransferEncoding: r.TransferEncoding,
	})
}

type testServer struct {
	*httptest.Server
	gate    chan struct{}
	stopped chan struct{} // receives once per endless handler that returned
}

func (s *testServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Hey")
	})
	mux.HandleFunc("/echo", serveEcho)
	mux.HandleFunc("/raw", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(w, r.Body)
	})
	mux.HandleFunc("/empty204", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/block", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		f := w.(http.Flusher)
		for _, part := range []string{"a", "b", "c"} {
			io.WriteString(w, part)
			f.Flush()
			time.Sleep(10 * time.Millisecond)
		}
	})
	mux.HandleFunc("/gated", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-s.gate:
			io.WriteString(w, "done")
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/forever", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			select {
			case s.stopped <- struct{}{}:
			default:
			}
		}()
		chunk := bytes.Repeat([]byte("x"), 1024)
		f := w.(http.Flusher)
		for {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			f.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(time.Millisecond):
			}
		}
	})
	mux.HandleFunc("/redirect/{n}", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(r.PathValue("n"))
		if err != nil || n < 0 {
			http.Error(w, "bad hop", http.StatusBadRequest)
			return
		}
		if n == 0 {
			serveEcho(w, r)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/redirect/%d", n-1), http.StatusFound)
	})
	return mux
}

func newTestServer(t *testing.T) *testServer {
	s := &testServer{gate: make(chan struct{}), stopped: make(chan struct{}, 1)}
	s.Server = httptest.NewServer(s.handler())
	t.Cleanup(s.Close)
	return s
}

func newTLSTestServer(t *testing.T) *testServer {
	s := &testServer{gate: make(chan struct{}), stopped: make(chan struct{}, 1)}
	s.Server = httptest.NewTLSServer(s.handler())
	t.Cleanup(s.Close)
	return s
}

func waitStopped(t *testing.T, s *testServer) {
	t.Helper()
	select {
	case <-s.stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("server kept sending after the connection should have been closed")
	}
}

// collect drains the events of resp.
func collect(t *testing.T, resp *ihttp.Response) []ihttp.Event {
	t.Helper()
	var evs []ihttp.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-resp.Events():
			if !ok {
				return evs
			}
			evs = append(evs, ev)
		case <-timeout:
			t.Fatal("events channel was not closed")
		}
	}
}

func dataOf(evs []ihttp.Event) string {
	var b bytes.Buffer
	for _, ev := range evs {
		if ev.Kind == ihttp.EventData {
			b.Write(ev.Data)
		}
	}
	return b.String()
}
