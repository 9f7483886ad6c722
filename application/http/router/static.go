package router

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"tiny-httpd/application/http"
	"tiny-httpd/application/http/status"

	"github.com/pkg/errors"
)

const pathGroup = "path"

// FileSystem is what [Builder.ServeFiles] reads files from.
type FileSystem interface {
	Exists(path string) bool
	ReadAll(path string) ([]byte, error)
}

// OSFileSystem reads from the host file system.
type OSFileSystem struct{}

var _ FileSystem = OSFileSystem{}

func (OSFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (OSFileSystem) ReadAll(path string) ([]byte, error) { return os.ReadFile(path) }

// FSFileSystem reads from an [fs.FS], such as an embed.FS.
// Paths are converted to slash-separated form before use.
type FSFileSystem struct {
	FS fs.FS
}

var _ FileSystem = FSFileSystem{}

func (f FSFileSystem) Exists(path string) bool {
	info, err := fs.Stat(f.FS, filepath.ToSlash(path))
	return err == nil && info.Mode().IsRegular()
}

func (f FSFileSystem) ReadAll(path string) ([]byte, error) {
	return fs.ReadFile(f.FS, filepath.ToSlash(path))
}

type fileRoute struct {
	mimeType  string
	sourceDir string
	mapper    func(string) string
}

// ServeFiles registers a GET route answering with file contents.
// pattern must have a group named "path"; its value goes through mapper
// and is joined to sourceDir. A nil mapper uses the value as-is.
//
// Missing files, and names escaping sourceDir, are answered with 404.
func (b *Builder) ServeFiles(pattern, mimeType, sourceDir string, mapper func(string) string) *Builder {
	if mapper == nil {
		mapper = func(s string) string { return s }
	}

	b.entries = append(b.entries, entry{
		method:  http.MethodGet,
		pattern: pattern,
		files: &fileRoute{
			mimeType:  mimeType,
			sourceDir: sourceDir,
			mapper:    mapper,
		},
	})
	return b
}

func (fr *fileRoute) handler(fsys FileSystem) HandleFunc {
	return func(c *Context) error {
		name := fr.mapper(c.Group(pathGroup))
		if !filepath.IsLocal(name) {
			return c.RespondStatus(status.NotFound)
		}

		path := filepath.Join(fr.sourceDir, name)
		if !fsys.Exists(path) {
			return c.RespondStatus(status.NotFound)
		}

		data, err := fsys.ReadAll(path)
		if err != nil {
			return errors.Wrapf(err, "reading %q", path)
		}

		headers := http.NewHeaders(map[string]string{
			"Content-Type":   fr.mimeType,
			"Connection":     http.DefaultConnection,
			"Content-Length": strconv.Itoa(len(data)),
		})
		return c.Respond(status.OK, headers, data)
	}
}
