// Package web serves the browser client of the stereo backend.
//
// Files are read from a directory on disk. Paths that do not name a file fall back to
// index.html so the client can route them itself.
package web

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/spf13/afero"
)

const indexFile = "index.html"

// Static serves the files below a directory.
type Static struct {
	fs     afero.Fs
	server http.Handler
}

// NewStatic serves dir from fsys. Tests pass an [afero.MemMapFs].
func NewStatic(fsys afero.Fs, dir string) *Static {
	root := afero.NewBasePathFs(fsys, dir)
	return &Static{
		fs:     root,
		server: http.FileServer(afero.NewHttpFs(root)),
	}
}

// Routes implements server.Handler.
func (s *Static) Routes() []string {
	return []string{"/*"}
}

func (s *Static) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	if !s.exists(name) {
		// Asset requests that miss are real 404s; everything else is a client route.
		if path.Ext(name) != "" {
			http.NotFound(w, r)
			return
		}
		if !s.exists("/" + indexFile) {
			http.NotFound(w, r)
			return
		}
		r = r.Clone(r.Context())
		r.URL.Path = "/"
	}

	if strings.HasSuffix(r.URL.Path, "/"+indexFile) {
		// FileServer redirects /index.html to /.
		r = r.Clone(r.Context())
		r.URL.Path = strings.TrimSuffix(r.URL.Path, indexFile)
	}
	s.server.ServeHTTP(w, r)
}

func (s *Static) exists(name string) bool {
	_, err := s.fs.Stat(name)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
