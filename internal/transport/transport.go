package transport

import (
	"io"
	"net/http"

	ihttp "github.com/frankli0324/go-centra/internal/http"
)

// Incoming is the head of a response read off the wire. Body is already
// framed by Content-Length or chunked encoding and returns io.EOF at the end
// of the message.
type Incoming struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header

	ContentLength int64
	Body          io.Reader
}

type Transport interface {
	Write(w io.Writer, req *ihttp.PreparedRequest) error
	Read(r io.Reader, req *ihttp.PreparedRequest) (*Incoming, error)
}
