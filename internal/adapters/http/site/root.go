// Package site serves the presentation bundle of the kiosk display from a
// directory on disk.
package site

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

// IndexFile is served for any path that is not a real file.
const IndexFile = "index.html"

// Available reports whether dir exists and is a directory.
func Available(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Register makes the bundle in dir the router's fallback. It reports false
// and leaves r untouched when dir is unset or missing.
func Register(r chi.Router, dir string) bool {
	if !Available(dir) {
		return false
	}
	r.NotFound(Handler(dir))
	return true
}

// Handler serves files from dir and falls back to index.html so the
// display's client-side routes survive a reload.
func Handler(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}

		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, IndexFile))
	}
}
