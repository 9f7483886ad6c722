// Package server accepts connections and serves one request on each.
package server

import (
	"context"
	"log/slog"
	"sync"

	"tiny-httpd/application/http/router"
	"tiny-httpd/transport"
	"tiny-httpd/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type Server struct {
	l transport.ConnListener

	routes *router.Routes

	stopAccept context.CancelFunc
	acceptDone chan struct{}
	slots      chan struct{} // nil if unbounded.
	wg         sync.WaitGroup

	logger *slog.Logger
	clock  clock.Clock
	opts   Options
}

func New(
	l transport.ConnListener,
	logger *slog.Logger,
	clock clock.Clock,
	routes *router.Routes,
	opts Options,
) *Server {
	if opts.AcceptPause == 0 {
		opts.AcceptPause = DefaultAcceptPause
	}

	s := &Server{
		l:      l,
		routes: routes,
		logger: logger,
		clock:  clock,
		opts:   opts,
	}

	if opts.MaxConnections > 0 {
		s.slots = make(chan struct{}, opts.MaxConnections)
	}

	return s
}

// Listen binds address:port over TCP and starts serving routes with the wall clock.
func Listen(address string, port uint16, routes *router.Routes, logger *slog.Logger, opts Options) (*Server, error) {
	l, err := tcp.Listen(address, port)
	if err != nil {
		return nil, errors.Wrapf(err, "binding %s", tcp.HostPort(address, port))
	}

	s := New(l, logger, clock.New(), routes, opts)
	s.Start()

	logger.Info("listening", "addr", l.Addr())

	return s, nil
}

func (s *Server) Addr() transport.Addr { return s.l.Addr() }

// Start runs the accept loop in the background. It must be called once.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopAccept = cancel
	s.acceptDone = make(chan struct{})

	go func() {
		defer close(s.acceptDone)
		s.acceptLoop(ctx)
	}()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		if err := s.acquire(ctx); err != nil {
			return
		}

		con, err := s.l.Accept(ctx)
		if err != nil {
			s.release()

			if errors.Is(err, context.Canceled) || errors.Is(err, transport.ErrConnListenerClosed) {
				s.logger.Debug("stopped accepting connections")
				return
			}

			s.logger.Error("unexpected error when accepting connection", "error", err)
			s.pause(ctx)
			continue
		}

		c := &conn{
			con:    con,
			routes: s.routes,
			logger: s.logger.With("conn", con.RemoteAddr()),
			clock:  s.clock,
			opts:   s.opts,
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release()
			// Workers outlive Close, so they don't share ctx.
			c.serve(context.Background())
		}()

		s.pause(ctx)
	}
}

func (s *Server) acquire(ctx context.Context) error {
	if s.slots == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.slots <- struct{}{}:
		return nil
	}
}

func (s *Server) release() {
	if s.slots != nil {
		<-s.slots
	}
}

func (s *Server) pause(ctx context.Context) {
	if s.opts.AcceptPause < 0 {
		return
	}

	t := s.clock.Timer(s.opts.AcceptPause)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Close stops accepting connections and closes the listener.
// Connections being served are not interrupted; see [Server.Wait].
func (s *Server) Close() error {
	if s.stopAccept != nil {
		s.stopAccept()
		<-s.acceptDone
	}

	if err := s.l.Close(); err != nil && !errors.Is(err, transport.ErrConnListenerClosed) {
		return errors.Wrap(err, "closing listener")
	}
	return nil
}

// Wait blocks until the server is closed and every connection is served.
func (s *Server) Wait() {
	if s.acceptDone != nil {
		<-s.acceptDone
	}
	s.wg.Wait()
}
