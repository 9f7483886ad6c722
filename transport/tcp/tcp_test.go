package tcp

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"tiny-httpd/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type TCPTestSuite struct {
	suite.Suite

	listener *Listener
	dialer   *Dialer
}

func TestTCPTestSuite(t *testing.T) {
	suite.Run(t, new(TCPTestSuite))
}

func (s *TCPTestSuite) SetupTest() {
	l, err := Listen("127.0.0.1", 0)
	s.Require().NoError(err)

	s.listener = l
	s.dialer = &Dialer{}
}

func (s *TCPTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	_ = s.listener.Close()
}

// connect returns the dialing end and the accepted end.
func (s *TCPTestSuite) connect() (client, server transport.Conn) {
	accepted := make(chan transport.Conn, 1)
	go func() {
		conn, err := s.listener.Accept(context.Background())
		s.NoError(err)
		accepted <- conn
	}()

	client, err := s.dialer.Dial(context.Background(), s.listener.Addr())
	s.Require().NoError(err)

	server = <-accepted
	s.Require().NotNil(server)

	return client, server
}

func (s *TCPTestSuite) TestReadWrite() {
	client, server := s.connect()
	defer client.Close()
	defer server.Close()

	data := []byte("GET / HTTP/1.0\r\n\r\n")
	n, err := client.Write(data)
	s.Require().NoError(err)
	s.Equal(len(data), n)

	buf := make([]byte, len(data))
	_, err = io.ReadFull(server, buf)
	s.Require().NoError(err)
	s.Equal(data, buf)

	s.Equal(client.LocalAddr().String(), server.RemoteAddr().String())
	s.Equal("tcp", server.LocalAddr().Network())
}

func (s *TCPTestSuite) TestPeerClose() {
	client, server := s.connect()
	defer server.Close()

	s.Require().NoError(client.Close())
	s.NoError(client.Close())

	n, err := server.Read(make([]byte, 1))
	s.Zero(n)
	s.ErrorIs(err, transport.ErrConnClosed)

	_, err = client.Read(make([]byte, 1))
	s.ErrorIs(err, transport.ErrConnClosed)
}

func (s *TCPTestSuite) TestCloseWrite() {
	client, server := s.connect()
	defer client.Close()
	defer server.Close()

	_, err := client.Write([]byte("ping"))
	s.Require().NoError(err)
	s.Require().NoError(client.(*Conn).CloseWrite())

	got, err := readUntilClosed(server)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Equal("ping", string(got))

	// The other direction still works.
	_, err = server.Write([]byte("pong"))
	s.Require().NoError(err)
	s.Require().NoError(server.Close())

	got, err = readUntilClosed(client)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Equal("pong", string(got))
}

func (s *TCPTestSuite) TestReadDeadLine() {
	client, server := s.connect()
	defer client.Close()
	defer server.Close()

	server.SetReadDeadLine(time.Now().Add(50 * time.Millisecond))

	n, err := server.Read(make([]byte, 1))
	s.Zero(n)
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
}

func (s *TCPTestSuite) TestAcceptCancels() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	conn, err := s.listener.Accept(ctx)
	s.Nil(conn)
	s.ErrorIs(err, context.DeadlineExceeded)

	// The listener is still usable.
	client, server := s.connect()
	s.NoError(client.Close())
	s.NoError(server.Close())
}

func (s *TCPTestSuite) TestListenerClose() {
	done := make(chan error)
	go func() {
		_, err := s.listener.Accept(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.Require().NoError(s.listener.Close())

	s.ErrorIs(<-done, transport.ErrConnListenerClosed)
	s.ErrorIs(s.listener.Close(), transport.ErrConnListenerClosed)
}

func (s *TCPTestSuite) TestAddrInUse() {
	port := uint16(s.listener.l.Addr().(*net.TCPAddr).Port)
	_, err := Listen("127.0.0.1", port)
	s.ErrorIs(err, transport.ErrAddrAlreadyInUse)
}

func (s *TCPTestSuite) TestDialRefused() {
	addr := s.listener.Addr()
	s.Require().NoError(s.listener.Close())

	_, err := s.dialer.Dial(context.Background(), addr)
	s.ErrorIs(err, transport.ErrConnRefused)
}

func TestHostPort(t *testing.T) {
	testcases := []struct {
		desc     string
		address  string
		port     uint16
		expected string
	}{
		{desc: "ipv4", address: "127.0.0.1", port: 8080, expected: "127.0.0.1:8080"},
		{desc: "ipv6", address: "::1", port: 80, expected: "[::1]:80"},
		{desc: "any", address: "", port: 0, expected: ":0"},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, HostPort(tc.address, tc.port))
		})
	}
}

func readUntilClosed(conn transport.Conn) ([]byte, error) {
	var result []byte
	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		result = append(result, buf[:n]...)
		if err != nil {
			return result, err
		}
	}
}
