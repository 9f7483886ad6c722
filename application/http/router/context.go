package router

import (
	"context"
	"log/slog"
	"regexp"

	"tiny-httpd/application/http"
	"tiny-httpd/application/http/status"

	"github.com/pkg/errors"
)

// Context is given to a [HandleFunc] for a single request.
type Context struct {
	ctx    context.Context
	logger *slog.Logger

	request *http.Request
	groups  Groups

	w *http.ResponseWriter
}

func (c *Context) doHandle(handle HandleFunc) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("handler panicked: %v", e)
		}
	}()

	return handle(c)
}

func (c *Context) Context() context.Context { return c.ctx }
func (c *Context) Logger() *slog.Logger     { return c.logger }
func (c *Context) Request() *http.Request   { return c.request }
func (c *Context) Groups() Groups           { return c.groups }

// Group returns the value captured by the named group, or "" if it didn't participate.
func (c *Context) Group(name string) string {
	v, _ := c.groups.Get(name)
	return v
}

func (c *Context) Respond(st status.Status, headers http.Headers, body []byte) error {
	return c.w.Respond(st, headers, body)
}

// RespondStatus responds with the reason phrase of st as body.
func (c *Context) RespondStatus(st status.Status) error { return c.w.RespondStatus(st) }

func (c *Context) RespondString(st status.Status, body string) error {
	return c.w.RespondString(st, body)
}

func (c *Context) RespondOK(body string) error { return c.w.RespondOK(body) }

// Responded reports whether a response is already written.
func (c *Context) Responded() bool { return c.w.Written() }

// Groups holds the captures of a matched pattern.
// Index 0 is the whole match.
type Groups struct {
	names   []string
	values  []string
	matched []bool
}

func newGroups(re *regexp.Regexp, s string, loc []int) Groups {
	n := len(loc) / 2
	g := Groups{
		names:   re.SubexpNames(),
		values:  make([]string, n),
		matched: make([]bool, n),
	}

	for i := 0; i < n; i++ {
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 {
			continue
		}
		g.values[i] = s[start:end]
		g.matched[i] = true
	}

	return g
}

// Get returns the value of the named group.
// ok is false if there is no such group or it didn't participate in the match.
func (g Groups) Get(name string) (value string, ok bool) {
	if name == "" {
		return "", false
	}

	for i, n := range g.names {
		if n == name {
			return g.values[i], g.matched[i]
		}
	}
	return "", false
}

// At returns the i-th group. It panics if i is out of range.
func (g Groups) At(i int) string { return g.values[i] }

func (g Groups) Len() int { return len(g.values) }

// Named returns the named groups that participated in the match.
func (g Groups) Named() map[string]string {
	m := make(map[string]string)
	for i, n := range g.names {
		if n != "" && g.matched[i] {
			m[n] = g.values[i]
		}
	}
	return m
}
