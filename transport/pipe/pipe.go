// Package pipe provides in-memory connections driven by a [clock.Clock],
// so tests can control deadlines.
package pipe

import (
	"sync"
	"time"

	"tiny-httpd/transport"

	"github.com/benbjohnson/clock"
)

type Addr struct {
	Name string
}

func (a Addr) Network() string { return "pipe" }
func (a Addr) String() string  { return a.Name }

var _ transport.Addr = Addr{}

// pipe is one end of a synchronous, unbuffered connection.
// A write returns once the other end has read all of it.
type pipe struct {
	stream chan []byte // what this end reads.
	nc     chan int    // bytes the other end consumed from our write.

	writeMu sync.Mutex

	closed chan struct{}
	once   sync.Once

	rdeadLine *chanDeadLine
	wdeadLine *chanDeadLine

	counterpart *pipe

	addr Addr
}

var _ transport.Conn = (*pipe)(nil)

// Pipe creates both ends of a connection.
func Pipe(name1, name2 string, clock clock.Clock) (c1, c2 transport.Conn) {
	p1, p2 := newPair(name1, name2, clock)
	return p1, p2
}

func newPair(name1, name2 string, clock clock.Clock) (p1, p2 *pipe) {
	p1, p2 = newPipe(name1, clock), newPipe(name2, clock)
	p1.counterpart, p2.counterpart = p2, p1
	return
}

func newPipe(name string, clock clock.Clock) *pipe {
	return &pipe{
		stream:    make(chan []byte),
		nc:        make(chan int),
		closed:    make(chan struct{}),
		rdeadLine: newChanDeadLine(clock),
		wdeadLine: newChanDeadLine(clock),
		addr:      Addr{Name: name},
	}
}

func (p *pipe) LocalAddr() transport.Addr  { return p.addr }
func (p *pipe) RemoteAddr() transport.Addr { return p.counterpart.addr }

func (p *pipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipe) Read(b []byte) (n int, err error) {
	if err := p.check(p.rdeadLine); err != nil {
		return 0, err
	}

	select {
	case received := <-p.stream:
		n := copy(b, received)
		p.counterpart.nc <- n
		return n, nil
	case <-p.closed:
		return 0, transport.ErrConnClosed
	case <-p.counterpart.closed:
		return 0, transport.ErrConnClosed
	case <-p.rdeadLine.wait():
		return 0, transport.ErrDeadLineExceeded
	}
}

func (p *pipe) Write(b []byte) (n int, err error) {
	if err := p.check(p.wdeadLine); err != nil {
		return 0, err
	}

	if len(b) == 0 {
		return 0, nil
	}

	// Concurrent writes must not interleave.
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	// The reader may take fewer bytes than offered. Keep offering the rest.
	for len(b) > 0 {
		select {
		case p.counterpart.stream <- b:
			nn := <-p.nc
			b = b[nn:]
			n += nn
		case <-p.closed:
			return n, transport.ErrConnClosed
		case <-p.counterpart.closed:
			return n, transport.ErrConnClosed
		case <-p.wdeadLine.wait():
			return n, transport.ErrDeadLineExceeded
		}
	}

	return n, nil
}

func (p *pipe) check(d *chanDeadLine) error {
	switch {
	case isClosed(p.closed), isClosed(p.counterpart.closed):
		return transport.ErrConnClosed
	case isClosed(d.wait()):
		return transport.ErrDeadLineExceeded
	}
	return nil
}

func (p *pipe) SetReadDeadLine(t time.Time)  { p.rdeadLine.set(t) }
func (p *pipe) SetWriteDeadLine(t time.Time) { p.wdeadLine.set(t) }

// chanDeadLine closes its channel once the deadline passes.
type chanDeadLine struct {
	clock clock.Clock

	timer *clock.Timer
	m     sync.Mutex

	exceeded chan struct{}
}

func newChanDeadLine(clock clock.Clock) *chanDeadLine {
	return &chanDeadLine{
		clock:    clock,
		exceeded: make(chan struct{}),
	}
}

func (d *chanDeadLine) set(t time.Time) {
	d.m.Lock()
	defer d.m.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if isClosed(d.exceeded) {
		d.exceeded = make(chan struct{})
	}

	if t.IsZero() {
		return
	}

	exceeded := d.exceeded
	if d.clock.Until(t) <= 0 {
		close(exceeded)
		return
	}

	d.timer = d.clock.AfterFunc(d.clock.Until(t), func() { close(exceeded) })
}

func (d *chanDeadLine) wait() <-chan struct{} {
	d.m.Lock()
	defer d.m.Unlock()
	return d.exceeded
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}
