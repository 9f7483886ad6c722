// Package tcp carries [transport.Conn] over the host's TCP stack.
package tcp

import (
	"context"
	"io"
	"net"
	"strconv"
	"syscall"
	"time"

	"tiny-httpd/transport"

	"github.com/pkg/errors"
)

// HostPort formats address and port for [net.Listen] and [net.Dial].
func HostPort(address string, port uint16) string {
	return net.JoinHostPort(address, strconv.FormatUint(uint64(port), 10))
}

type Listener struct {
	l *net.TCPListener
}

var _ transport.ConnListener = (*Listener)(nil)

// Listen binds address:port. Port 0 picks a free port; see [Listener.Addr].
func Listen(address string, port uint16) (*Listener, error) {
	l, err := net.Listen("tcp", HostPort(address, port))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, errors.Wrap(transport.ErrAddrAlreadyInUse, err.Error())
		}
		return nil, errors.Wrap(err, "listening")
	}

	return &Listener{l: l.(*net.TCPListener)}, nil
}

func (l *Listener) Addr() transport.Addr { return l.l.Addr() }

// Accept waits for the next connection.
// Cancelling ctx interrupts the wait without closing the listener.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_ = l.l.SetDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		// Any time in the past wakes up the pending accept.
		_ = l.l.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	c, err := l.l.AcceptTCP()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, transport.ErrConnListenerClosed
		}
		return nil, errors.Wrap(err, "accepting connection")
	}

	return &Conn{c: c}, nil
}

func (l *Listener) Close() error {
	if err := l.l.Close(); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return transport.ErrConnListenerClosed
		}
		return errors.Wrap(err, "closing listener")
	}
	return nil
}

// Dialer implements [transport.ConnDialer].
type Dialer struct {
	net.Dialer
}

var _ transport.ConnDialer = (*Dialer)(nil)

func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	c, err := d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, errors.Wrap(transport.ErrConnRefused, err.Error())
		}
		return nil, errors.Wrap(err, "dialing")
	}

	return &Conn{c: c.(*net.TCPConn)}, nil
}

// Conn translates the errors of a [net.TCPConn] into the ones of [transport.Conn].
// The end of stream from the peer is reported as [transport.ErrConnClosed].
type Conn struct {
	c *net.TCPConn
}

var _ transport.Conn = (*Conn)(nil)

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.c.Read(p)
	return n, convertErr(err)
}

func (c *Conn) Write(p []byte) (int, error) {
	n, err := c.c.Write(p)
	return n, convertErr(err)
}

func (c *Conn) Close() error {
	if err := c.c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return errors.Wrap(err, "closing connection")
	}
	return nil
}

// CloseWrite shuts down the sending side only.
// The peer reads the end of stream while this end can still read.
func (c *Conn) CloseWrite() error { return convertErr(c.c.CloseWrite()) }

func (c *Conn) LocalAddr() transport.Addr  { return c.c.LocalAddr() }
func (c *Conn) RemoteAddr() transport.Addr { return c.c.RemoteAddr() }

func (c *Conn) SetReadDeadLine(t time.Time)  { _ = c.c.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadLine(t time.Time) { _ = c.c.SetWriteDeadline(t) }

func convertErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return transport.ErrConnClosed
	case isTimeout(err):
		return transport.ErrDeadLineExceeded
	}
	return err
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
