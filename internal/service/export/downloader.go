package export

import (
	"bytes"
	"context"
	"path"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/storage"
)

// KeyFunc picks the storage key of a report file.
type KeyFunc func(job export.Job, file export.File) string

// JobScopedKey stores every job under its own directory, so two exports of
// the same kind on the same day never overwrite each other.
func JobScopedKey(job export.Job, file export.File) string {
	return path.Join(job.ID, file.Name)
}

// FlatKey stores files by name only.
func FlatKey(_ export.Job, file export.File) string {
	return file.Name
}

// StorageDownloader hands report files to a FileStorage and returns their
// public URL.
type StorageDownloader struct {
	storage storage.FileStorage
	key     KeyFunc
}

func NewStorageDownloader(fs storage.FileStorage, key KeyFunc) *StorageDownloader {
	if key == nil {
		key = JobScopedKey
	}
	return &StorageDownloader{storage: fs, key: key}
}

func (d *StorageDownloader) Deliver(ctx context.Context, job export.Job, file export.File) (string, error) {
	key, err := d.storage.Upload(ctx, bytes.NewReader(file.Body), d.key(job, file), file.ContentType)
	if err != nil {
		return "", err
	}
	return d.storage.GetURL(ctx, key)
}
