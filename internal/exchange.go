package internal

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/frankli0324/go-centra/internal/http"
)

// exchange is one request/response on one connection. It reconciles the
// ways the transaction can be cut short: the timer firing, the caller's
// context, the buffer cap or the caller closing a stream. The first abort
// cause wins and masks the error the closed connection provokes.
type exchange struct {
	ctx    context.Context
	cancel context.CancelFunc
	timer  *time.Timer
	stop   func() bool

	mu       sync.Mutex
	conn     net.Conn
	cause    error
	released bool
}

func newExchange(parent context.Context, timeout time.Duration) *exchange {
	ctx, cancel := context.WithCancel(parent)
	ex := &exchange{ctx: ctx, cancel: cancel}
	if timeout > 0 {
		ex.timer = time.AfterFunc(timeout, func() {
			ex.abort(fmt.Errorf("%w after %s", http.ErrTimeout, timeout))
		})
	}
	ex.stop = context.AfterFunc(parent, func() {
		ex.abort(context.Cause(parent))
	})
	return ex
}

// abort forcibly ends the exchange. Only the first cause is kept.
func (ex *exchange) abort(cause error) {
	ex.mu.Lock()
	if ex.cause == nil {
		ex.cause = cause
	}
	conn := ex.conn
	ex.mu.Unlock()
	ex.cancel()
	if conn != nil {
		conn.Close()
	}
}

func (ex *exchange) aborted() bool {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.cause != nil
}

// attach hands conn to the exchange, closing it right away if the
// exchange was aborted while dialing.
func (ex *exchange) attach(conn net.Conn) error {
	ex.mu.Lock()
	if ex.cause != nil {
		cause := ex.cause
		ex.mu.Unlock()
		conn.Close()
		return cause
	}
	ex.conn = conn
	ex.mu.Unlock()
	return nil
}

// err returns the abort cause if there is one, err otherwise.
func (ex *exchange) err(err error) error {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.cause != nil {
		return ex.cause
	}
	return err
}

// release stops the timer and closes the connection. It is idempotent.
func (ex *exchange) release() {
	ex.mu.Lock()
	if ex.released {
		ex.mu.Unlock()
		return
	}
	ex.released = true
	conn := ex.conn
	ex.mu.Unlock()

	if ex.timer != nil {
		ex.timer.Stop()
	}
	ex.stop()
	ex.cancel()
	if conn != nil {
		conn.Close()
	}
}
