package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"expensedocs/internal/core"
)

// UploadFile writes the payload under a fresh name. Existing objects are never
// replaced.
func (r *SQLiteRepository) UploadFile(ctx context.Context, upload core.Upload) (string, error) {
	const op = "upload file"
	if err := ctx.Err(); err != nil {
		return "", core.NewBackendError(op, 0, err.Error())
	}

	name := core.ObjectName(upload.Filename)
	if err := r.putObject(op, name, upload.Content); err != nil {
		return "", err
	}
	return r.publicURL(name), nil
}

// putObject creates name exclusively and fills it from content.
func (r *SQLiteRepository) putObject(op, name string, content io.Reader) error {
	target := filepath.Join(r.bucketDir, name)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return core.NewBackendError(op, http.StatusConflict, "The resource already exists")
	}
	if err != nil {
		return core.NewBackendError(op, http.StatusInternalServerError, err.Error())
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(target)
		return core.NewBackendError(op, http.StatusInternalServerError, err.Error())
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return core.NewBackendError(op, http.StatusInternalServerError, err.Error())
	}
	return nil
}

func (r *SQLiteRepository) publicURL(name string) string {
	return r.publicBaseURL + core.PublicObjectPath + url.PathEscape(name)
}

// serveObject expects the object name with the public prefix already stripped.
func (r *SQLiteRepository) serveObject(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + req.URL.Path)[1:]
	if name == "" || strings.Contains(name, "/") {
		http.NotFound(w, req)
		return
	}

	f, err := os.Open(filepath.Join(r.bucketDir, name))
	if err != nil {
		http.NotFound(w, req)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, req)
		return
	}

	w.Header().Set("Cache-Control", "max-age=60")
	http.ServeContent(w, req, name, info.ModTime(), f)
}
