package chunked

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const maxLineLength = 4096

func NewChunkedReader(r io.Reader) io.Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &chunkedReader{r: br}
}

type chunkedReader struct {
	r *bufio.Reader

	remaining uint64 // bytes left in the current chunk
	inChunk   bool
	err       error // sticky, io.EOF after the last chunk
}

func (c *chunkedReader) readLine() ([]byte, error) {
	line, err := c.r.ReadSlice('\n')
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		} else if err == bufio.ErrBufferFull {
			err = errors.New("http chunk line too long")
		}
		return nil, err
	}
	if len(line) >= maxLineLength {
		return nil, errors.New("http chunk line too long")
	}
	return bytes.TrimRight(line, " \t\r\n"), nil
}

func (c *chunkedReader) readChunkHeader() (n uint64, err error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	// chunk extensions are ignored
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = bytes.TrimRight(line[:i], " \t")
	}
	if len(line) == 0 {
		return 0, errors.New("empty chunk length")
	}
	if len(line) > 16 {
		return 0, errors.New("http chunk length too large")
	}
	for _, b := range line {
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, errors.New("invalid byte in chunk length")
		}
		n <<= 4
		n |= uint64(b)
	}
	return n, nil
}

// skipTrailer consumes trailer fields up to the final empty line.
func (c *chunkedReader) skipTrailer() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}

func (c *chunkedReader) Read(p []byte) (n int, err error) {
	if c.err != nil {
		return 0, c.err
	}
	if !c.inChunk {
		size, err := c.readChunkHeader()
		if err != nil {
			c.err = err
			return 0, err
		}
		if size == 0 {
			if err := c.skipTrailer(); err != nil {
				c.err = err
				return 0, err
			}
			c.err = io.EOF
			return 0, io.EOF
		}
		c.remaining, c.inChunk = size, true
	}
	if uint64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err = c.r.Read(p)
	c.remaining -= uint64(n)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		c.err = err
		return n, err
	}
	if c.remaining == 0 {
		c.inChunk = false
		dr, err := c.r.ReadByte()
		var dn byte
		if err == nil {
			dn, err = c.r.ReadByte()
		}
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			c.err = err
			return n, err
		}
		if dr != '\r' || dn != '\n' {
			c.err = errors.New("malformed chunked encoding")
			return n, c.err
		}
	}
	return n, nil
}
