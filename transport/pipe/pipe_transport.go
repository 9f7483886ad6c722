package pipe

import (
	"context"
	"sync"

	"tiny-httpd/transport"

	"github.com/benbjohnson/clock"
)

type dialRequest struct {
	conn     *pipe
	accepted chan struct{}
}

// Transport connects dialers to listeners by [Addr], in memory.
type Transport struct {
	listeners map[Addr]*Listener
	clock     clock.Clock

	mu sync.Mutex
}

func NewTransport(clock clock.Clock) *Transport {
	return &Transport{
		listeners: make(map[Addr]*Listener),
		clock:     clock,
	}
}

var _ transport.ConnDialer = (*Transport)(nil)

// Dial blocks until a listener on addr accepts the connection.
func (t *Transport) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	pa, ok := addr.(Addr)
	if !ok {
		return nil, transport.ErrNetUnreachable
	}

	t.mu.Lock()
	listener, ok := t.listeners[pa]
	t.mu.Unlock()

	if !ok {
		return nil, transport.ErrConnRefused
	}

	local, remote := newPair("dialer", pa.Name, t.clock)

	req := dialRequest{
		conn:     remote,
		accepted: make(chan struct{}, 1),
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case listener.requests <- req:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case _, accepted := <-req.accepted:
		if !accepted {
			return nil, transport.ErrConnRefused
		}
	}

	return local, nil
}

func (t *Transport) Listen(addr Addr) (*Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.listeners[addr]; ok {
		return nil, transport.ErrAddrAlreadyInUse
	}

	l := &Listener{
		addr:      addr,
		transport: t,
		requests:  make(chan dialRequest),
		closed:    make(chan struct{}),
	}
	t.listeners[addr] = l

	return l, nil
}

type Listener struct {
	addr      Addr
	transport *Transport

	requests chan dialRequest
	closed   chan struct{}

	once sync.Once
}

var _ transport.ConnListener = (*Listener)(nil)

func (l *Listener) Addr() transport.Addr { return l.addr }

func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, transport.ErrConnListenerClosed
	case req := <-l.requests:
		// accepted is buffered, so this never blocks.
		req.accepted <- struct{}{}
		return req.conn, nil
	}
}

// Close stops accepting. Connections already accepted stay open.
func (l *Listener) Close() error {
	err := transport.ErrConnListenerClosed
	l.once.Do(func() {
		close(l.closed)

		l.transport.mu.Lock()
		delete(l.transport.listeners, l.addr)
		l.transport.mu.Unlock()

		err = nil
	})
	return err
}
