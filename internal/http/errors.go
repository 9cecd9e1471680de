package http

import (
	"errors"
)

var (
	ErrBadScheme        = errors.New("bad URL protocol")
	ErrBadEncoding      = errors.New("unsupported body encoding")
	ErrInvalidHeader    = errors.New("invalid request header")
	ErrBadOption        = errors.New("bad transport option")
	ErrTimeout          = errors.New("timeout reached")
	ErrBufferLimit      = errors.New("response body exceeded max buffer size")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrResponseClosed   = errors.New("response closed")
)

// ConfigError reports a request that could not be turned into a transport
// call. It is returned before any connection is made.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return "centra: " + e.Op + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(op string, err error) error {
	return &ConfigError{Op: op, Err: err}
}
