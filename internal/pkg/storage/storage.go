package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidPath = errors.New("invalid file path")
)

// FileStorage holds generated report artifacts until they are downloaded or
// expire.
type FileStorage interface {
	// Upload stores a file under key and returns the cleaned key
	Upload(ctx context.Context, file io.Reader, key string, contentType string) (string, error)

	// Download opens a stored file
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file, a missing file is not an error
	Delete(ctx context.Context, key string) error

	// GetURL returns the public download URL of key
	GetURL(ctx context.Context, key string) (string, error)

	// Exists checks if a file exists
	Exists(ctx context.Context, key string) (bool, error)

	// Sweep removes files last modified before cutoff and returns how many
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}
