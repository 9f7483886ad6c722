// Package transport defines the reliable byte-stream connections
// the HTTP server runs on, independent of how they are carried.
package transport

// Addr identifies an endpoint. Every [net.Addr] satisfies it.
type Addr interface {
	Network() string // e.g. "tcp", "pipe"
	String() string
}
