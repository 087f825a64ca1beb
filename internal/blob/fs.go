package blob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"doom-index/internal/apperr"
)

// FSStore writes objects below a local directory.
type FSStore struct {
	dir     string
	baseURL string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates a filesystem store. Without a public base URL, URLs
// are file:// paths.
func NewFSStore(dir, publicBaseURL string) (*FSStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, apperr.Configuration("blob dir %q: %v", dir, err)
	}
	base := publicBaseURL
	if base == "" {
		base = "file://" + filepath.ToSlash(abs)
	}
	return &FSStore{dir: abs, baseURL: base}, nil
}

// Put writes data through a temp file that is hard-linked into place, so
// readers never see a partial object and an existing one is never replaced.
func (s *FSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", apperr.Storage("mkdir", key, "create blob directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", apperr.Storage("put", key, "create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", apperr.Storage("put", key, "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return "", apperr.Storage("put", key, "close temp file", err)
	}
	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", apperr.Storage("put", key, "object exists", ErrExists)
		}
		return "", apperr.Storage("put", key, "link temp file", err)
	}
	return joinURL(s.baseURL, key), nil
}
