package metrics

import (
	"context"
	"errors"
)

var ErrNoMetricsEndpoint = errors.New("screen has no metrics endpoint")

// Source fetches one aggregate snapshot.
type Source interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Snapshot, error)

func (f SourceFunc) Fetch(ctx context.Context) (Snapshot, error) {
	return f(ctx)
}
