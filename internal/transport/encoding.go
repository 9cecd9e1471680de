package transport

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Decode wraps body with a decoder for the given Content-Encoding. Unknown
// and identity encodings pass the body through. Decoders are created on the
// first Read so that empty bodies decode to nothing instead of failing.
func Decode(body io.Reader, contentEncoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		return &lazyDecoder{src: body, open: func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		}}
	case "deflate":
		return &lazyDecoder{src: body, open: openDeflate}
	case "br":
		return &lazyDecoder{src: body, open: func(r io.Reader) (io.Reader, error) {
			return brotli.NewReader(r), nil
		}}
	}
	return body
}

// "deflate" is meant to be zlib wrapped, but raw deflate streams are common
func openDeflate(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err != nil {
		return nil, err
	}
	if head[0]&0x0f == 8 && (uint16(head[0])<<8|uint16(head[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

type lazyDecoder struct {
	src  io.Reader
	open func(io.Reader) (io.Reader, error)
	dec  io.Reader
}

func (d *lazyDecoder) Read(p []byte) (int, error) {
	if d.dec == nil {
		dec, err := d.open(d.src)
		if err == io.EOF {
			return 0, io.EOF
		}
		if err != nil {
			return 0, fmt.Errorf("decode response body: %w", err)
		}
		d.dec = dec
	}
	return d.dec.Read(p)
}
