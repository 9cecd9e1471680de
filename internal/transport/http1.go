package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
	"strings"

	ihttp "github.com/frankli0324/go-centra/internal/http"
	"github.com/frankli0324/go-centra/internal/transport/chunked"
)

// header names that are written in canonical form, everything else goes
// out the way it was stored (lower case)
var canonical = map[string]string{
	"content-type": "Content-Type",
}

type HTTP1 struct{}

var _ Transport = HTTP1{}

func (t HTTP1) Write(w io.Writer, r *ihttp.PreparedRequest) error {
	body, err := r.GetBody()
	if err != nil {
		return err
	}
	if body != nil {
		defer body.Close() // request body is ALWAYS closed
	}

	bw := bufio.NewWriter(w) // default bufsize is 4096
	if err := t.writeHeader(bw, r); err != nil {
		return err
	}
	if r.HasBody && body != nil {
		if r.ContentLength == -1 {
			cw := chunked.NewChunkedWriter(bw)
			if _, err := io.Copy(cw, body); err != nil {
				return err
			}
			if err := cw.CloseWithTrailer(nil); err != nil {
				return err
			}
		} else if _, err := io.CopyN(bw, body, r.ContentLength); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeHeader writes the status and header part of an http 1.1 request
// e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	x-xx-yy: cccccc\r\n
//	\r\n
func (t HTTP1) writeHeader(w *bufio.Writer, r *ihttp.PreparedRequest) error {
	w.WriteString(r.Method)
	w.WriteByte(' ')
	if r.Method == http.MethodConnect {
		w.WriteString(r.U.Path)
	} else {
		w.WriteString(r.U.RequestURI())
	}
	w.WriteString(" HTTP/1.1\r\n")

	if r.SetHost {
		w.WriteString("Host: ")
		w.WriteString(r.HeaderHost)
		w.WriteString("\r\n")
	}
	if r.ContentLength != -1 {
		w.WriteString("Content-Length: ")
		w.WriteString(strconv.FormatInt(r.ContentLength, 10))
		w.WriteString("\r\n")
	} else if r.HasBody {
		w.WriteString("Transfer-Encoding: chunked\r\n")
	}
	if _, ok := r.Header["connection"]; !ok && r.Method != http.MethodConnect {
		// connections are never reused
		w.WriteString("Connection: close\r\n")
	}

	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := k
		if c, ok := canonical[k]; ok {
			name = c
		}
		for _, v := range r.Header[k] {
			w.WriteString(name)
			w.WriteString(": ")
			w.WriteString(v)
			if _, err := w.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

func (t HTTP1) Read(r io.Reader, req *ihttp.PreparedRequest) (*Incoming, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	tp := textproto.NewReader(br)
	for {
		resp, err := t.readHead(tp)
		if err != nil {
			return nil, err
		}
		// skip informational responses, 101 is final
		if resp.StatusCode >= 100 && resp.StatusCode < 200 && resp.StatusCode != http.StatusSwitchingProtocols {
			continue
		}
		return resp, t.readTransfer(br, req, resp)
	}
}

func (t HTTP1) readHead(tp *textproto.Reader) (*Incoming, error) {
	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	resp := &Incoming{}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return nil, errors.New("malformed HTTP response")
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		return nil, errors.New("malformed HTTP status code " + statusCode)
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 0 {
		return nil, errors.New("malformed HTTP status code")
	}

	// Parse the response headers.
	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if hp, ok := mimeHeader["Pragma"]; ok && len(hp) > 0 && hp[0] == "no-cache" {
		if _, presentcc := mimeHeader["Cache-Control"]; !presentcc {
			mimeHeader["Cache-Control"] = []string{"no-cache"}
		}
	}
	resp.Header = http.Header(mimeHeader)
	return resp, nil
}

func bodyAllowed(req *ihttp.PreparedRequest, status int) bool {
	if req != nil && req.Method == http.MethodHead {
		return false
	}
	switch {
	case status >= 100 && status < 200,
		status == http.StatusNoContent,
		status == http.StatusNotModified:
		return false
	}
	return true
}

func (t HTTP1) readTransfer(r *bufio.Reader, req *ihttp.PreparedRequest, resp *Incoming) error {
	resp.ContentLength = -1
	if !bodyAllowed(req, resp.StatusCode) {
		resp.ContentLength = 0
		resp.Body = http.NoBody
		return nil
	}
	if req != nil && req.Method == http.MethodConnect && resp.StatusCode/100 == 2 {
		// the rest of the stream belongs to the tunnel
		resp.Body = http.NoBody
		return nil
	}

	contentLens := resp.Header["Content-Length"]

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return fmt.Errorf("http: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}

		// deduplicate Content-Length
		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)

		contentLens = resp.Header["Content-Length"]
	}

	if te := resp.Header.Get("Transfer-Encoding"); strings.EqualFold(te, "chunked") {
		resp.Body = chunked.NewChunkedReader(r)
		return nil
	}

	if len(contentLens) > 0 {
		n, err := strconv.ParseUint(textproto.TrimString(contentLens[0]), 10, 63)
		if err != nil {
			return fmt.Errorf("http: bad Content-Length %q", contentLens[0])
		}
		resp.ContentLength = int64(n)
	}
	switch {
	case resp.ContentLength > 0:
		resp.Body = &exactReader{R: io.LimitReader(r, resp.ContentLength), N: resp.ContentLength}
	case resp.ContentLength == 0:
		resp.Body = http.NoBody
	default:
		// no framing, the body ends with the connection
		resp.Body = r
	}
	return nil
}

// exactReader turns an early EOF of a Content-Length framed body into
// io.ErrUnexpectedEOF.
type exactReader struct {
	R    io.Reader
	N    int64
	read int64
}

func (e *exactReader) Read(p []byte) (int, error) {
	n, err := e.R.Read(p)
	e.read += int64(n)
	if err == io.EOF && e.read < e.N {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}
