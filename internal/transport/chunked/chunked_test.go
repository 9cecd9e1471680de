package chunked

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewChunkedWriter(buf)

	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = w.Write(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = w.Write([]byte(strings.Repeat("a", 26)))
	require.NoError(t, err)
	require.NoError(t, w.CloseWithTrailer(http.Header{"X-B": {"2"}, "X-A": {"1"}}))

	want := "5\r\nhello\r\n1a\r\n" + strings.Repeat("a", 26) + "\r\n0\r\nX-A: 1\r\nX-B: 2\r\n\r\n"
	assert.Equal(t, want, buf.String())
}

func TestRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewChunkedWriter(buf)
	parts := []string{"a", "bc", strings.Repeat("d", 5000), "e"}
	for _, p := range parts {
		_, err := w.Write([]byte(p))
		require.NoError(t, err)
	}
	require.NoError(t, w.CloseWithTrailer(nil))

	got, err := io.ReadAll(NewChunkedReader(buf))
	require.NoError(t, err)
	assert.Equal(t, strings.Join(parts, ""), string(got))
}

func TestReaderExtensionsAndTrailer(t *testing.T) {
	raw := "4;name=value\r\nwiki\r\n5 ; x\r\npedia\r\nE\r\n in\r\n\r\nchunks.\r\n0\r\nExpires: never\r\n\r\nnext"
	src := strings.NewReader(raw)
	r := NewChunkedReader(src)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "wikipedia in\r\n\r\nchunks.", string(got))

	// EOF is sticky
	n, err := r.Read(make([]byte, 1))
	assert.Zero(t, n)
	assert.Equal(t, io.EOF, err)
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty length", "\r\nabc"},
		{"invalid hex", "xy\r\n"},
		{"too large", "11111111111111111\r\n"},
		{"missing crlf", "3\r\nabcXY0\r\n\r\n"},
		{"truncated", "5\r\nab"},
		{"no last chunk", "1\r\na\r\n"},
		{"line too long", strings.Repeat("0", maxLineLength+10) + "\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := io.ReadAll(NewChunkedReader(strings.NewReader(tt.raw)))
			assert.Error(t, err)
		})
	}
}

func TestReaderTruncatedChunkEnd(t *testing.T) {
	for _, raw := range []string{"3\r\nabc", "3\r\nabc\r"} {
		data, err := io.ReadAll(NewChunkedReader(strings.NewReader(raw)))
		assert.Equal(t, "abc", string(data), "%q", raw)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "%q", raw)
	}
}
