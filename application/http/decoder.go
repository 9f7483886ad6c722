package http

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	iolib "tiny-httpd/lib/io"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var (
	// ErrNoRequest is returned when the peer closed the connection
	// before sending anything. No response can be written for it.
	ErrNoRequest = errors.New("connection closed before any request")

	ErrMalformedRequestLine = errors.New("request line is malformed")
	ErrMalformedHeaderLine  = errors.New("header line is malformed")
	ErrInvalidContentLength = errors.New("content length is not a non-negative integer")
	ErrBodyTooLarge         = errors.New("content length exceeds limit")
	ErrClientDisconnected   = errors.New("client disconnected")
)

type RequestDecoder struct {
	lr   *iolib.LineReader
	opts ParseOptions
}

func NewRequestDecoder(r io.Reader, clock clock.Clock, opts ParseOptions) *RequestDecoder {
	if opts.MaxBodySize == 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	if opts.BodyChunkSize == 0 {
		opts.BodyChunkSize = DefaultBodyChunkSize
	}

	lr := iolib.NewLineReader(r, clock, iolib.LineReaderOptions{
		RetryInterval: opts.RetryInterval,
		MaxLength:     opts.MaxLineLength,
	})

	return &RequestDecoder{lr: lr, opts: opts}
}

// Decode reads a request line, headers, and for POST the body.
func (d *RequestDecoder) Decode(request *Request) error {
	var req Request

	if err := d.decodeRequestLine(&req); err != nil {
		return err
	}

	if err := d.decodeHeaders(&req.Headers); err != nil {
		return errors.Wrap(err, "decoding headers")
	}

	req.Body = bytes.NewReader(nil)
	if req.Method == MethodPost {
		body, err := d.readBody(req.Headers)
		if err != nil {
			return errors.Wrap(err, "reading body")
		}
		req.Body = bytes.NewReader(body)
	}

	*request = req
	return nil
}

func (d *RequestDecoder) decodeRequestLine(req *Request) error {
	line, err := d.lr.ReadLine()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return errors.Wrap(err, "reading request line")
		}
		if line == "" {
			return ErrNoRequest
		}
		return errors.Wrap(ErrClientDisconnected, "reading request line")
	}

	method, target, version, err := parseRequestLine(line)
	if err != nil {
		return err
	}

	req.Method = method
	req.Path = target
	req.Version = version

	return nil
}

func parseRequestLine(line string) (method, target, version string, err error) {
	tokens := strings.Split(line, " ")
	if len(tokens) != 3 {
		return "", "", "", errors.Wrapf(ErrMalformedRequestLine, "%q", line)
	}

	return strings.ToUpper(tokens[0]), tokens[1], tokens[2], nil
}

func (d *RequestDecoder) decodeHeaders(headers *Headers) error {
	h := NewHeaders(nil)
	for {
		line, err := d.lr.ReadLine()
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return errors.Wrap(err, "reading line")
		}

		if line == "" {
			// An empty line or the end of stream. No more headers.
			break
		}

		name, value, err := parseField(line)
		if err != nil {
			return err
		}
		h.Set(name, value)

		if eof {
			break
		}
	}

	*headers = h

	return nil
}

// parseField splits a header line on its first colon.
// Only spaces are stripped from the beginning of the value.
func parseField(line string) (name, value string, err error) {
	name, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", errors.Wrapf(ErrMalformedHeaderLine, "%q", line)
	}

	return name, strings.TrimLeft(value, " "), nil
}

func (d *RequestDecoder) readBody(headers Headers) ([]byte, error) {
	raw, ok := headers.Get("Content-Length")
	if !ok {
		return nil, nil
	}

	length, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidContentLength, "%q", raw)
	}

	if length > uint64(d.opts.MaxBodySize) {
		return nil, errors.Wrapf(ErrBodyTooLarge, "%d > %d", length, d.opts.MaxBodySize)
	}

	body := make([]byte, 0, length)
	chunk := make([]byte, min(uint64(d.opts.BodyChunkSize), max(length, 1)))
	r := iolib.LimitReader(d.lr, uint(length))

	for uint64(len(body)) < length {
		n, err := r.Read(chunk)
		body = append(body, chunk[:n]...)

		if uint64(len(body)) == length {
			break
		}

		switch {
		case n == 0 && err == nil, errors.Is(err, io.EOF):
			return nil, errors.Wrapf(ErrClientDisconnected, "%d of %d bytes read", len(body), length)
		case err != nil:
			return nil, errors.Wrap(err, "reading chunk")
		}
	}

	return body, nil
}
