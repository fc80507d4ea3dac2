package storage

import (
	"context"
	"os"
	"path/filepath"
)

// LocalStore writes media to a directory on disk and serves URLs under the
// server's own /uploads path. Used when no S3 bucket is configured.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir, baseURL: baseURL}, nil
}

func (s *LocalStore) Upload(_ context.Context, key, _ string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(key))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + "/uploads/" + filepath.Base(key), nil
}

// Dir exposes the backing directory for static file serving.
func (s *LocalStore) Dir() string { return s.dir }
