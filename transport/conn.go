package transport

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed         = errors.New("connection is closed")
	ErrConnListenerClosed = errors.New("conn listener is closed")
	ErrDeadLineExceeded   = errors.New("deadline exceeded")

	ErrAddrAlreadyInUse = errors.New("address already in use")
	ErrConnRefused      = errors.New("connection refused")
	ErrNetUnreachable   = errors.New("network unreachable")
)

// Conn is a full-duplex byte stream.
//
// Read and Write return [ErrConnClosed] once either side is closed,
// and [ErrDeadLineExceeded] once the corresponding deadline has passed.
// A zero deadline means none.
type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	LocalAddr() Addr
	RemoteAddr() Addr

	SetReadDeadLine(t time.Time)
	SetWriteDeadLine(t time.Time)
}

type ConnListener interface {
	// Accept blocks until a connection arrives, ctx is done, or the listener is closed.
	// It returns ctx.Err() in the second case and [ErrConnListenerClosed] in the last.
	Accept(ctx context.Context) (Conn, error)
	Addr() Addr
	Close() error
}

type ConnDialer interface {
	Dial(ctx context.Context, addr Addr) (Conn, error)
}
