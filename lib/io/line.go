package iolib

import (
	"bytes"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

const (
	lf byte = '\n'
	cr byte = '\r'
)

const DefaultRetryInterval = time.Millisecond

type LineReaderOptions struct {
	// RetryInterval is how long to wait when the underlying reader
	// has no data available (returns 0 bytes without an error).
	// Zero means [DefaultRetryInterval].
	RetryInterval time.Duration

	// MaxLength limits the length of a single line, excluding terminators.
	// Zero means unbounded.
	MaxLength uint
}

// LineReader reads LF-terminated lines from r.
// Every CR byte in a line is dropped, not only the one before LF.
//
// It also implements [io.Reader], which returns bytes buffered
// past the last line before reading from r again.
type LineReader struct {
	r   io.Reader
	buf *bytes.Buffer
	tmp []byte
	err error // sticky error from r.

	clock clock.Clock
	opts  LineReaderOptions
}

var ErrLineTooLong = errors.New("line length exceeds limit")

func NewLineReader(r io.Reader, clock clock.Clock, opts LineReaderOptions) *LineReader {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}

	return &LineReader{
		r:     r,
		buf:   bytes.NewBuffer(nil),
		tmp:   make([]byte, 1024),
		clock: clock,
		opts:  opts,
	}
}

// ReadLine returns the next line without its terminator.
// If r reaches EOF before LF, the bytes read so far are returned with [io.EOF].
func (lr *LineReader) ReadLine() (string, error) {
	var line []byte
	for {
		b := lr.buf.Bytes()
		idx := bytes.IndexByte(b, lf)
		if idx >= 0 {
			line = appendWithoutCR(line, b[:idx])
			lr.buf.Next(idx + 1)
			if err := lr.checkLength(line); err != nil {
				return "", err
			}
			return string(line), nil
		}

		line = appendWithoutCR(line, b)
		lr.buf.Reset()
		if err := lr.checkLength(line); err != nil {
			return "", err
		}

		if lr.err != nil {
			return string(line), lr.err
		}

		n, err := lr.r.Read(lr.tmp)
		lr.buf.Write(lr.tmp[:n])

		switch {
		case errors.Is(err, io.EOF):
			lr.err = io.EOF
		case err != nil:
			lr.err = errors.Wrap(err, "reading line")
		case n == 0:
			// Nothing is available yet. It's not the end of stream.
			lr.clock.Sleep(lr.opts.RetryInterval)
		}
	}
}

func (lr *LineReader) Read(p []byte) (n int, err error) {
	if lr.buf.Len() > 0 {
		n, _ = lr.buf.Read(p)
		return n, nil
	}

	if lr.err != nil {
		return 0, lr.err
	}

	return lr.r.Read(p)
}

// Buffered returns the number of bytes read from r but not yet consumed.
func (lr *LineReader) Buffered() int { return lr.buf.Len() }

func (lr *LineReader) checkLength(line []byte) error {
	if lr.opts.MaxLength > 0 && uint(len(line)) > lr.opts.MaxLength {
		return ErrLineTooLong
	}
	return nil
}

func appendWithoutCR(dst, src []byte) []byte {
	for {
		idx := bytes.IndexByte(src, cr)
		if idx < 0 {
			return append(dst, src...)
		}
		dst = append(dst, src[:idx]...)
		src = src[idx+1:]
	}
}
