// Package http implements the HTTP/1.0 message handling of tiny-httpd:
// reading a single request from a connection and writing a single response.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc1945
//
// Connections are never reused, so every response carries "Connection: close".
package http
