package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/perito-digital/platform/internal/shared/errors"
)

// LocalStore keeps blobs on the local filesystem. Development default.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a local-disk store rooted at dir
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = "./data/blobs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create blob directory")
	}
	return &LocalStore{dir: dir}, nil
}

// path resolves a key inside the root, rejecting traversal
func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", errors.BadRequest("invalid blob key")
	}
	return filepath.Join(s.dir, clean), nil
}

// Put stores the stream under key
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create blob subdirectory")
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to create blob file")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", errors.Wrap(err, "failed to write blob")
	}

	return key, nil
}

// Get opens the stored object for reading
func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("blob", key)
		}
		return nil, errors.Wrap(err, "failed to open blob")
	}
	return f, nil
}

// Delete removes the stored object
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound("blob", key)
		}
		return errors.Wrap(err, "failed to delete blob")
	}
	return nil
}
