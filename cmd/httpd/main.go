// Command httpd serves a directory and a small echo API with tiny-httpd.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tiny-httpd/application/http/router"
	"tiny-httpd/application/http/server"

	"github.com/pkg/errors"
)

var (
	address  = flag.String("address", "0.0.0.0", "address to bind")
	port     = flag.Uint("port", 8080, "port to bind")
	dir      = flag.String("dir", ".", "directory served under /files/")
	mimeType = flag.String("mime", "text/plain", "content type of served files")
	maxConns = flag.Uint("max-conns", 0, "connections served at once, 0 for unbounded")
	debug    = flag.Bool("debug", false, "log every connection")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if *port > 0xFFFF {
		return errors.Errorf("port %d out of range", *port)
	}

	routes, err := router.NewBuilder().
		Get(`^/$`, func(c *router.Context) error {
			return c.RespondOK("<h1>tiny-httpd</h1>")
		}).
		Post(`^/echo$`, func(c *router.Context) error {
			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return errors.Wrap(err, "reading body")
			}
			return c.RespondOK(string(body))
		}).
		ServeFiles(`^/files/(?<path>[^?]+)`, *mimeType, *dir, nil).
		Build()
	if err != nil {
		return errors.Wrap(err, "building routes")
	}

	opts := server.DefaultOptions
	opts.MaxConnections = *maxConns

	srv, err := server.Listen(*address, uint16(*port), routes, logger, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	if err := srv.Close(); err != nil {
		return err
	}
	srv.Wait()

	return nil
}
