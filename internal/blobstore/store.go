package blobstore

import (
	"context"
	"io"

	"github.com/perito-digital/platform/internal/shared/config"
	"github.com/perito-digital/platform/internal/shared/errors"
)

// Store abstracts file storage for evidence uploads and report PDFs.
// The core stores only the returned key, never paths of its own.
type Store interface {
	// Put stores the stream under key and returns the stored key
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)

	// Get opens the stored object for reading
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the stored object
	Delete(ctx context.Context, key string) error
}

// Open builds the store selected by BLOB_DRIVER
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStore(cfg.LocalDir)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, errors.Validation("unknown blob driver", map[string]string{"BLOB_DRIVER": cfg.Driver})
	}
}
