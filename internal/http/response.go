package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/tidwall/gjson"
)

type EventKind int

const (
	EventData EventKind = iota
	EventError
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventData:
		return "data"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	}
	return "unknown"
}

// Event is one item of a streamed response body. Data carries a chunk in
// arrival order, Err is set on EventError.
type Event struct {
	Kind EventKind
	Data []byte
	Err  error
}

type phase int

const (
	phaseBuffering phase = iota
	phaseStreaming
	phaseFailed
	phaseComplete
)

const eventBacklog = 16

// Response is one HTTP response. In buffered mode Send returns it complete.
// In streaming mode Send returns it right after the headers and the body
// follows on [Response.Events], which is closed after exactly one of
// EventEnd or EventError.
//
// Header, StatusCode, Status and Proto are fixed at construction.
type Response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header
	URL        *url.URL // the URL that produced this response, after redirects

	streaming bool

	mu    sync.Mutex
	phase phase
	body  []byte
	err   error

	events    chan Event
	done      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	onClose   func(error)
}

// NewResponse creates a Response and the [Feed] that is the only way to
// fill and settle it.
func NewResponse(statusCode int, status, proto string, header http.Header, u *url.URL, streaming bool) (*Response, *Feed) {
	r := &Response{
		Proto: proto, Status: status, StatusCode: statusCode,
		Header: header, URL: u,
		streaming: streaming,
		events:    make(chan Event, eventBacklog),
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
	}
	if streaming {
		r.phase = phaseStreaming
	} else {
		r.phase = phaseBuffering
		close(r.events)
	}
	return r, &Feed{r}
}

func (r *Response) Streaming() bool { return r.streaming }

// Bytes returns the body received so far. Once the response has settled it
// is the whole body.
func (r *Response) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body[:len(r.body):len(r.body)]
}

func (r *Response) Text() string {
	return string(r.Bytes())
}

// JSON decodes the body into v. An empty body decodes as JSON null.
func (r *Response) JSON(v interface{}) error {
	body := r.Bytes()
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("null")
	}
	return json.Unmarshal(body, v)
}

// Get looks up a value in a JSON body with a gjson path.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Bytes(), path)
}

func (r *Response) Location() string {
	return r.Header.Get("Location")
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// Events returns the body event channel. For a buffered response it is
// already closed. A streaming response is read no faster than the channel
// is drained, so callers must drain it or call Close; a timeout that fires
// while the backlog is full surfaces once the pending events are read.
func (r *Response) Events() <-chan Event {
	return r.events
}

// Done is closed once the response has settled.
func (r *Response) Done() <-chan struct{} {
	return r.done
}

// Err returns the terminal error, nil while in flight or after a clean end.
func (r *Response) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Wait blocks until the response settles and returns its error. A streaming
// response only settles while its events are being drained.
func (r *Response) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close abandons a streaming response, aborting its connection. Events not
// yet consumed are dropped and the stream ends with ErrResponseClosed.
func (r *Response) Close() error {
	r.closeOnce.Do(func() {
		close(r.closed)
		r.mu.Lock()
		abort := r.onClose
		r.mu.Unlock()
		if abort != nil {
			abort(ErrResponseClosed)
		}
	})
	return nil
}

func (r *Response) emit(ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.closed:
		return false
	}
}

func (r *Response) settle(p phase, err error) bool {
	r.mu.Lock()
	if r.phase == phaseFailed || r.phase == phaseComplete {
		r.mu.Unlock()
		return false
	}
	r.phase, r.err = p, err
	r.mu.Unlock()

	if r.streaming {
		kind := EventEnd
		if err != nil {
			kind = EventError
		}
		r.emit(Event{Kind: kind, Err: err})
		close(r.events)
	}
	close(r.done)
	return true
}

// Feed is the producer side of a [Response]. It must be used from a single
// goroutine.
type Feed struct {
	r *Response
}

// Len is the number of body bytes held so far.
func (f *Feed) Len() int {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	return len(f.r.body)
}

// Chunk appends p and, when streaming, emits it. It reports false when the
// response no longer accepts data. p must not be modified afterwards.
func (f *Feed) Chunk(p []byte) bool {
	r := f.r
	r.mu.Lock()
	if r.phase == phaseFailed || r.phase == phaseComplete {
		r.mu.Unlock()
		return false
	}
	r.body = append(r.body, p...)
	r.mu.Unlock()
	if r.streaming {
		return r.emit(Event{Kind: EventData, Data: p})
	}
	return true
}

func (f *Feed) Fail(err error) bool { return f.r.settle(phaseFailed, err) }

func (f *Feed) End() bool { return f.r.settle(phaseComplete, nil) }

// OnClose registers the abort hook run by [Response.Close].
func (f *Feed) OnClose(abort func(error)) {
	f.r.mu.Lock()
	f.r.onClose = abort
	f.r.mu.Unlock()
}
