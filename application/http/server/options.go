package server

import (
	"time"

	"tiny-httpd/application/http"
)

const DefaultAcceptPause = time.Millisecond

type Options struct {
	Parse http.ParseOptions

	// AcceptPause is the wait after a connection is handed to its worker,
	// before accepting the next one. Zero means [DefaultAcceptPause],
	// a negative value disables it.
	AcceptPause time.Duration

	// MaxConnections bounds the number of connections served at once.
	// Zero means unbounded.
	MaxConnections uint

	Timeout TimeoutOptions
}

// TimeoutOptions are per connection. Zero means no timeout.
type TimeoutOptions struct {
	// ReadTimeout bounds reading the whole request, body included.
	ReadTimeout time.Duration
	// WriteTimeout bounds sending the response, starting from its first byte.
	WriteTimeout time.Duration
}

var DefaultOptions = Options{
	Parse:       http.DefaultParseOptions,
	AcceptPause: DefaultAcceptPause,
}
