// Package router dispatches requests to handlers by matching the request path
// against regular expressions, in registration order.
package router

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"tiny-httpd/application/http"
	"tiny-httpd/application/http/status"

	"github.com/pkg/errors"
)

// Bodies of the responses the router writes on its own.
const (
	NotFoundBody     = "There's nothing here!"
	HandlerFaultBody = "Internal server error."
)

// HandleFunc serves a matched request.
// It must write a response through c. A returned error or a panic
// is a handler fault, answered with 500 if nothing is written yet.
type HandleFunc func(c *Context) error

var (
	ErrHandlerFault     = errors.New("handler fault")
	ErrMissingPathGroup = errors.New(`pattern has no group named "path"`)
)

// HandlerError is returned by [Routes.Dispatch] when a handler faulted.
// It matches [ErrHandlerFault] with errors.Is.
type HandlerError struct {
	Pattern string
	cause   error
}

func (e *HandlerError) Error() string {
	return "handler of " + e.Pattern + " failed: " + e.cause.Error()
}

func (e *HandlerError) Unwrap() error        { return e.cause }
func (e *HandlerError) Is(target error) bool { return target == ErrHandlerFault }

type entry struct {
	method  string
	pattern string
	handle  HandleFunc
	files   *fileRoute // Non-nil for routes registered with ServeFiles.
}

// Builder collects routes. Nothing is validated until [Builder.Build].
type Builder struct {
	entries []entry
	fs      FileSystem
}

func NewBuilder() *Builder {
	return &Builder{fs: OSFileSystem{}}
}

func (b *Builder) Get(pattern string, handle HandleFunc) *Builder {
	return b.Handle(http.MethodGet, pattern, handle)
}

func (b *Builder) Post(pattern string, handle HandleFunc) *Builder {
	return b.Handle(http.MethodPost, pattern, handle)
}

// Handle registers handle for any method. method is case-insensitive.
func (b *Builder) Handle(method, pattern string, handle HandleFunc) *Builder {
	b.entries = append(b.entries, entry{
		method:  strings.ToUpper(method),
		pattern: pattern,
		handle:  handle,
	})
	return b
}

// WithFileSystem sets the file system used by routes registered with [Builder.ServeFiles].
func (b *Builder) WithFileSystem(fs FileSystem) *Builder {
	b.fs = fs
	return b
}

// Build compiles every pattern and freezes the table.
func (b *Builder) Build() (*Routes, error) {
	routes := &Routes{table: make(map[string][]route)}

	for _, e := range b.entries {
		re, err := regexp.Compile(e.pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling pattern %q", e.pattern)
		}

		handle := e.handle
		if e.files != nil {
			if re.SubexpIndex(pathGroup) < 0 {
				return nil, errors.Wrapf(ErrMissingPathGroup, "%q", e.pattern)
			}
			handle = e.files.handler(b.fs)
		}
		if handle == nil {
			return nil, errors.Errorf("nil handler for %s %q", e.method, e.pattern)
		}

		routes.table[e.method] = append(routes.table[e.method], route{
			pattern: re,
			handle:  handle,
		})
	}

	return routes, nil
}

type route struct {
	pattern *regexp.Regexp
	handle  HandleFunc
}

// Routes is an immutable routing table. It is safe for concurrent use.
type Routes struct {
	table map[string][]route
}

// Dispatch invokes the handler of the first route whose pattern matches req.Path.
// If nothing matches, it responds 404.
//
// A handler fault is answered with 500 and returned as *[HandlerError].
// Other errors come from writing to w.
func (r *Routes) Dispatch(ctx context.Context, logger *slog.Logger, req *http.Request, w *http.ResponseWriter) error {
	for _, rt := range r.table[req.Method] {
		loc := rt.pattern.FindStringSubmatchIndex(req.Path)
		if loc == nil {
			continue
		}

		c := &Context{
			ctx:     ctx,
			logger:  logger,
			request: req,
			groups:  newGroups(rt.pattern, req.Path, loc),
			w:       w,
		}

		err := c.doHandle(rt.handle)
		if err == nil {
			return nil
		}

		herr := &HandlerError{Pattern: rt.pattern.String(), cause: err}
		if !w.Written() {
			if err := w.RespondString(status.InternalServerError, HandlerFaultBody); err != nil {
				return errors.Wrap(err, "responding to handler fault")
			}
		}
		return herr
	}

	return errors.Wrap(w.RespondString(status.NotFound, NotFoundBody), "responding not found")
}

// Len returns the number of routes for method.
func (r *Routes) Len(method string) int { return len(r.table[strings.ToUpper(method)]) }
