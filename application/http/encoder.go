package http

import (
	"bufio"
	"io"
	"strconv"

	"tiny-httpd/application/http/status"
	"tiny-httpd/application/util/rule"

	"github.com/pkg/errors"
)

// Defaults filled in by [ResponseWriter.Respond] when the name is absent.
const (
	DefaultContentType = "text/html"
	DefaultConnection  = "close"
)

var ErrResponseWritten = errors.New("response is already written")

// ResponseWriter writes exactly one response.
// Output is buffered until [ResponseWriter.Flush].
type ResponseWriter struct {
	bw *bufio.Writer

	written bool
	status  status.Status
}

func NewResponseWriter(w io.Writer) *ResponseWriter {
	return &ResponseWriter{bw: bufio.NewWriter(w)}
}

// Respond writes the status line, headers and body.
// Content-Type, Connection and Content-Length are added only if headers lacks them;
// an explicitly empty value is kept as-is. headers itself is not modified.
func (w *ResponseWriter) Respond(st status.Status, headers Headers, body []byte) error {
	if w.written {
		return ErrResponseWritten
	}
	w.written = true
	w.status = st

	h := headers.Clone()
	if !h.Has("Content-Type") {
		h.Set("Content-Type", DefaultContentType)
	}
	if !h.Has("Connection") {
		h.Set("Connection", DefaultConnection)
	}
	if !h.Has("Content-Length") {
		h.Set("Content-Length", strconv.Itoa(len(body)))
	}

	if err := w.writeStatusLine(st); err != nil {
		return errors.Wrap(err, "writing status line")
	}

	if err := w.writeHeaders(h); err != nil {
		return errors.Wrap(err, "writing headers")
	}

	if _, err := w.bw.Write(body); err != nil {
		return errors.Wrap(err, "writing body")
	}

	return nil
}

// RespondStatus uses the reason phrase as body.
func (w *ResponseWriter) RespondStatus(st status.Status) error {
	return w.RespondString(st, st.ReasonPhrase)
}

func (w *ResponseWriter) RespondString(st status.Status, body string) error {
	return w.Respond(st, Headers{}, []byte(body))
}

// RespondOK responds with 200 OK.
func (w *ResponseWriter) RespondOK(body string) error {
	return w.RespondString(status.OK, body)
}

func (w *ResponseWriter) Flush() error {
	return errors.Wrap(w.bw.Flush(), "flushing response")
}

func (w *ResponseWriter) Written() bool { return w.written }

// Status returns the status of the written response, or zero value if none is written.
func (w *ResponseWriter) Status() status.Status { return w.status }

func (w *ResponseWriter) writeStatusLine(st status.Status) error {
	line := make([]byte, 0, 32)
	line = append(line, Version...)
	line = append(line, rule.SP)
	line = strconv.AppendUint(line, uint64(st.Code), 10)
	line = append(line, rule.SP)
	line = append(line, st.ReasonPhrase...)

	return w.writeLine(line)
}

func (w *ResponseWriter) writeHeaders(h Headers) error {
	for _, name := range h.Names() {
		value, _ := h.Get(name)

		line := make([]byte, 0, len(name)+len(value)+2)
		line = append(line, name...)
		line = append(line, ':', rule.SP)
		line = append(line, value...)

		if err := w.writeLine(line); err != nil {
			return errors.Wrap(err, "writing field")
		}
	}

	// An empty line ends the headers.
	return w.writeLine(nil)
}

func (w *ResponseWriter) writeLine(line []byte) error {
	if _, err := w.bw.Write(line); err != nil {
		return err
	}
	_, err := w.bw.Write(rule.CRLF)
	return err
}
