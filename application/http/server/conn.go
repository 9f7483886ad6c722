package server

import (
	"context"
	"io"
	"log/slog"
	"time"

	"tiny-httpd/application/http"
	"tiny-httpd/application/http/router"
	"tiny-httpd/application/http/status"
	"tiny-httpd/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type conn struct {
	con    transport.Conn
	routes *router.Routes

	logger *slog.Logger
	clock  clock.Clock
	opts   Options
}

// serve runs one request through the routes and closes the connection.
func (c *conn) serve(ctx context.Context) {
	start := c.clock.Now()

	defer func() {
		if e := recover(); e != nil {
			c.logger.Error("connection worker panicked", "panic", e)
		}

		c.logger.Debug("closing connection")
		if err := c.con.Close(); err != nil {
			c.logger.Error("error when closing connection", "error", err)
		}
	}()

	w := http.NewResponseWriter(&deadlineWriter{
		con:     c.con,
		clock:   c.clock,
		timeout: c.opts.Timeout.WriteTimeout,
	})

	request, err := c.readRequest()
	switch {
	case errors.Is(err, http.ErrNoRequest):
		c.logger.Debug("connection closed without a request")
		return
	case err != nil:
		se := toStatusError(err)
		c.logger.Warn("failed to read request", "error", se)

		if err := w.RespondStatus(se.Status); err != nil {
			c.logger.Error("failed to write error response", "error", err)
			return
		}
	default:
		logger := c.logger.With("method", request.Method, "path", request.Path)

		err := c.routes.Dispatch(ctx, logger, request, w)
		switch {
		case errors.Is(err, router.ErrHandlerFault):
			logger.Error("handler failed", "error", err)
		case err != nil:
			logger.Error("failed to write response", "error", err)
			return
		}

		if !w.Written() {
			logger.Warn("handler wrote no response")
		}
	}

	if err := w.Flush(); err != nil {
		c.logger.Error("failed to send response", "error", err)
		return
	}

	if w.Written() {
		c.logger.Debug("response sent",
			"status", w.Status().Code,
			"elapsed", c.clock.Since(start),
		)
	}
}

func (c *conn) readRequest() (*http.Request, error) {
	if timeout := c.opts.Timeout.ReadTimeout; timeout > 0 {
		c.con.SetReadDeadLine(c.clock.Now().Add(timeout))
	}

	dec := http.NewRequestDecoder(eofReader{c.con}, c.clock, c.opts.Parse)

	var request http.Request
	if err := dec.Decode(&request); err != nil {
		return nil, err
	}

	return &request, nil
}

// toStatusError decides the response for a request that couldn't be read.
func toStatusError(err error) status.Error {
	if errors.Is(err, transport.ErrDeadLineExceeded) {
		return status.NewError(err, status.RequestTimeout)
	}

	return status.NewError(err, status.InternalServerError)
}

// eofReader reports a closed connection as the end of stream.
type eofReader struct {
	r io.Reader
}

func (r eofReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if errors.Is(err, transport.ErrConnClosed) {
		err = io.EOF
	}
	return n, err
}

// deadlineWriter starts the write timeout at the first write.
type deadlineWriter struct {
	con     transport.Conn
	clock   clock.Clock
	timeout time.Duration

	started bool
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	if !w.started && w.timeout > 0 {
		w.con.SetWriteDeadLine(w.clock.Now().Add(w.timeout))
	}
	w.started = true

	return w.con.Write(p)
}
