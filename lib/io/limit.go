package iolib

import "io"

// LimitReader returns a reader that stops with [io.EOF] after n bytes.
func LimitReader(r io.Reader, n uint) io.Reader { return &LimitedReader{r, n} }

// LimitedReader is [io.LimitedReader] with an unsigned limit.
// Each Read asks R for at most N bytes, so nothing past the limit is consumed.
type LimitedReader struct {
	R io.Reader
	N uint // Remaining.
}

func (l *LimitedReader) Read(p []byte) (n int, err error) {
	if l.N == 0 {
		return 0, io.EOF
	}
	if uint(len(p)) > l.N {
		p = p[:l.N]
	}
	n, err = l.R.Read(p)
	l.N -= uint(n)
	return
}
