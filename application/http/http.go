package http

import (
	"bytes"
	"slices"
	"time"

	"tiny-httpd/application/util/rule"
)

const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// Version is the only protocol version this server speaks.
const Version = "HTTP/1.0"

type Request struct {
	Method  string // Upper-cased.
	Path    string // Raw request target, query included.
	Version string // As sent by the client.

	Headers Headers

	// Body is positioned at offset zero.
	// It holds the whole POST body, and is empty for every other method.
	Body *bytes.Reader
}

// Headers maps a field name to a single value.
// Names that are valid tokens are stored in canonical form,
// so lookups don't depend on the case the client used.
type Headers struct{ underlying map[string]string }

func NewHeaders(initial map[string]string) Headers {
	h := Headers{underlying: make(map[string]string, len(initial))}
	for k, v := range initial {
		h.Set(k, v)
	}
	return h
}

func (h Headers) Get(key string) (value string, ok bool) {
	value, ok = h.underlying[rule.CanonicalFieldName(key)]
	return
}

func (h Headers) Has(key string) bool {
	_, ok := h.Get(key)
	return ok
}

// Set overwrites existing value, so the last one set wins.
func (h *Headers) Set(key, value string) {
	if h.underlying == nil {
		h.underlying = make(map[string]string)
	}
	h.underlying[rule.CanonicalFieldName(key)] = value
}

func (h *Headers) Del(key string) {
	delete(h.underlying, rule.CanonicalFieldName(key))
}

func (h Headers) Len() int { return len(h.underlying) }

// Names returns field names in sorted order.
func (h Headers) Names() []string {
	names := make([]string, 0, len(h.underlying))
	for k := range h.underlying {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func (h Headers) Clone() Headers {
	return NewHeaders(h.underlying)
}

type ParseOptions struct {
	// MaxLineLength limits request and header lines. Zero means unbounded.
	MaxLineLength uint

	// MaxBodySize is the ceiling of a declared Content-Length.
	// Zero means [DefaultMaxBodySize].
	MaxBodySize uint

	// BodyChunkSize bounds a single read of the body.
	// Zero means [DefaultBodyChunkSize].
	BodyChunkSize uint

	// RetryInterval is the wait before reading again when no data is available.
	// Zero means [iolib.DefaultRetryInterval].
	RetryInterval time.Duration
}

const (
	DefaultMaxBodySize   = 10 * 1024 * 1024
	DefaultBodyChunkSize = 4096
)

var DefaultParseOptions = ParseOptions{
	MaxLineLength: 0,
	MaxBodySize:   DefaultMaxBodySize,
	BodyChunkSize: DefaultBodyChunkSize,
}
