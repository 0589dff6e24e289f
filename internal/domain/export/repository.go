package export

import (
	"context"
	"net/url"
)

// Blob is an opaque binary response.
type Blob struct {
	Body        []byte
	ContentType string
}

// BlobSource issues binary-response requests.
type BlobSource interface {
	Download(ctx context.Context, endpoint string, params url.Values) (Blob, error)
}

// Downloader hands a materialized file to the download mechanism and returns
// where it can be fetched from.
type Downloader interface {
	Deliver(ctx context.Context, job Job, file File) (string, error)
}

// Notifier surfaces non-fatal notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}
