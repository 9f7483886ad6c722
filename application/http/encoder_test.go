package http

import (
	"bytes"
	"errors"
	"testing"

	"tiny-httpd/application/http/status"

	"github.com/stretchr/testify/suite"
)

type ResponseWriterTestSuite struct {
	suite.Suite

	buf *bytes.Buffer
	w   *ResponseWriter
}

func TestResponseWriterTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseWriterTestSuite))
}

func (s *ResponseWriterTestSuite) SetupTest() {
	s.buf = bytes.NewBuffer(nil)
	s.w = NewResponseWriter(s.buf)
}

func (s *ResponseWriterTestSuite) TestRespond() {
	testcases := []struct {
		desc     string
		status   status.Status
		headers  map[string]string
		body     string
		expected string
	}{
		{
			desc:   "defaults filled in",
			status: status.OK,
			body:   "hi",
			expected: "" +
				"HTTP/1.0 200 OK\r\n" +
				"Connection: close\r\n" +
				"Content-Length: 2\r\n" +
				"Content-Type: text/html\r\n" +
				"\r\n" +
				"hi",
		},
		{
			desc:    "given headers win",
			status:  status.Created,
			headers: map[string]string{"content-type": "application/json", "X-Id": "7"},
			body:    "{}",
			expected: "" +
				"HTTP/1.0 201 Created\r\n" +
				"Connection: close\r\n" +
				"Content-Length: 2\r\n" +
				"Content-Type: application/json\r\n" +
				"X-Id: 7\r\n" +
				"\r\n" +
				"{}",
		},
		{
			desc:    "explicit empty value is kept",
			status:  status.OK,
			headers: map[string]string{"Content-Type": ""},
			expected: "" +
				"HTTP/1.0 200 OK\r\n" +
				"Connection: close\r\n" +
				"Content-Length: 0\r\n" +
				"Content-Type: \r\n" +
				"\r\n",
		},
		{
			desc:    "declared length is not rewritten",
			status:  status.OK,
			headers: map[string]string{"Content-Length": "100"},
			body:    "short",
			expected: "" +
				"HTTP/1.0 200 OK\r\n" +
				"Connection: close\r\n" +
				"Content-Length: 100\r\n" +
				"Content-Type: text/html\r\n" +
				"\r\n" +
				"short",
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			buf := bytes.NewBuffer(nil)
			w := NewResponseWriter(buf)

			s.Require().NoError(w.Respond(tc.status, NewHeaders(tc.headers), []byte(tc.body)))
			s.Require().NoError(w.Flush())

			s.Equal(tc.expected, buf.String())
			s.True(w.Written())
			s.Equal(tc.status, w.Status())
		})
	}
}

func (s *ResponseWriterTestSuite) TestRespondDoesNotModifyHeaders() {
	h := NewHeaders(map[string]string{"X-A": "a"})

	s.Require().NoError(s.w.Respond(status.OK, h, nil))
	s.Equal([]string{"X-A"}, h.Names())
}

func (s *ResponseWriterTestSuite) TestRespondStatus() {
	s.Require().NoError(s.w.RespondStatus(status.NotFound))
	s.Require().NoError(s.w.Flush())

	s.Equal(""+
		"HTTP/1.0 404 Not Found\r\n"+
		"Connection: close\r\n"+
		"Content-Length: 9\r\n"+
		"Content-Type: text/html\r\n"+
		"\r\n"+
		"Not Found",
		s.buf.String(),
	)
}

func (s *ResponseWriterTestSuite) TestRespondOK() {
	s.Require().NoError(s.w.RespondOK("Hello"))
	s.Require().NoError(s.w.Flush())

	s.Contains(s.buf.String(), "HTTP/1.0 200 OK\r\n")
	s.Contains(s.buf.String(), "\r\n\r\nHello")
}

func (s *ResponseWriterTestSuite) TestRespondTwice() {
	s.Require().NoError(s.w.RespondString(status.OK, "first"))

	err := s.w.RespondString(status.InternalServerError, "second")
	s.ErrorIs(err, ErrResponseWritten)

	s.Require().NoError(s.w.Flush())
	s.NotContains(s.buf.String(), "second")
	s.Equal(status.OK, s.w.Status())
}

func (s *ResponseWriterTestSuite) TestNothingBeforeFlush() {
	s.Require().NoError(s.w.RespondOK("buffered"))
	s.Zero(s.buf.Len())
}

func (s *ResponseWriterTestSuite) TestFlushError() {
	e := errors.New("broken pipe")
	w := NewResponseWriter(failingWriter{err: e})

	s.Require().NoError(w.RespondOK("x"))
	s.ErrorIs(w.Flush(), e)
}

type failingWriter struct{ err error }

func (w failingWriter) Write(p []byte) (int, error) { return 0, w.err }
