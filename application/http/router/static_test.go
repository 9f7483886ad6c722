package router

import (
	"os"
	"path/filepath"
	"testing/fstest"

	"tiny-httpd/application/http"
)

const slidesPattern = `/slides/(?<path>\d+)\.jpg$`

func jpg(n string) string { return n + ".jpg" }

func (s *RouterTestSuite) TestServeFiles() {
	dir := s.T().TempDir()
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, '\r', '\n', 0xFF, 0xD9}
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "1.jpg"), image, 0o644))
	s.Require().NoError(os.Mkdir(filepath.Join(dir, "3.jpg"), 0o755))

	routes, err := NewBuilder().ServeFiles(slidesPattern, "image/jpeg", dir, jpg).Build()
	s.Require().NoError(err)

	res, err := s.dispatch(routes, get("/slides/1.jpg"))
	s.Require().NoError(err)
	s.Equal("HTTP/1.0 200 OK", res.statusLine)
	s.Contains(res.head, "\r\nContent-Type: image/jpeg")
	s.Contains(res.head, "\r\nContent-Length: 9")
	s.Contains(res.head, "\r\nConnection: close")
	s.Equal(string(image), res.body)

	testcases := []struct {
		desc string
		path string
	}{
		{desc: "missing file", path: "/slides/2.jpg"},
		{desc: "directory", path: "/slides/3.jpg"},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			res, err := s.dispatch(routes, get(tc.path))
			s.Require().NoError(err)
			s.Equal("HTTP/1.0 404 Not Found", res.statusLine)
			s.Equal("Not Found", res.body)
		})
	}
}

func (s *RouterTestSuite) TestServeFilesOnlyGet() {
	routes, err := NewBuilder().ServeFiles(slidesPattern, "image/jpeg", s.T().TempDir(), jpg).Build()
	s.Require().NoError(err)

	res, err := s.dispatch(routes, &http.Request{Method: http.MethodPost, Path: "/slides/1.jpg"})
	s.Require().NoError(err)
	s.Equal(NotFoundBody, res.body)
}

func (s *RouterTestSuite) TestServeFilesOutsideSourceDir() {
	root := s.T().TempDir()
	public := filepath.Join(root, "public")
	s.Require().NoError(os.Mkdir(public, 0o755))
	s.Require().NoError(os.WriteFile(filepath.Join(root, "secret.txt"), []byte("secret"), 0o600))

	routes, err := NewBuilder().ServeFiles(`^/files/(?<path>.*)$`, "text/plain", public, nil).Build()
	s.Require().NoError(err)

	for _, path := range []string{"/files/../secret.txt", "/files/a/../../secret.txt", "/files/" + filepath.Join(root, "secret.txt"), "/files/"} {
		s.Run(path, func() {
			res, err := s.dispatch(routes, get(path))
			s.Require().NoError(err)
			s.Equal("HTTP/1.0 404 Not Found", res.statusLine)
		})
	}
}

func (s *RouterTestSuite) TestServeFilesFromFS() {
	fsys := fstest.MapFS{
		"assets/app.css": {Data: []byte("body{}")},
	}

	routes, err := NewBuilder().
		WithFileSystem(FSFileSystem{FS: fsys}).
		ServeFiles(`^/css/(?<path>[a-z]+)\.css$`, "text/css", "assets", func(n string) string { return n + ".css" }).
		Build()
	s.Require().NoError(err)

	res, err := s.dispatch(routes, get("/css/app.css"))
	s.Require().NoError(err)
	s.Contains(res.head, "Content-Type: text/css")
	s.Equal("body{}", res.body)

	res, err = s.dispatch(routes, get("/css/missing.css"))
	s.Require().NoError(err)
	s.Equal("HTTP/1.0 404 Not Found", res.statusLine)
}

type brokenFS struct{}

func (brokenFS) Exists(string) bool { return true }
func (brokenFS) ReadAll(path string) ([]byte, error) {
	return nil, os.ErrPermission
}

func (s *RouterTestSuite) TestServeFilesReadFailure() {
	routes, err := NewBuilder().
		WithFileSystem(brokenFS{}).
		ServeFiles(slidesPattern, "image/jpeg", "/srv/slides", jpg).
		Build()
	s.Require().NoError(err)

	res, err := s.dispatch(routes, get("/slides/1.jpg"))
	s.ErrorIs(err, ErrHandlerFault)
	s.ErrorIs(err, os.ErrPermission)
	s.Equal("HTTP/1.0 500 Internal Server Error", res.statusLine)
}
