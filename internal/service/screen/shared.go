package screen

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/metrics"
	"golang.org/x/sync/singleflight"
)

// MetricsFactory returns the source of one metrics endpoint.
type MetricsFactory func(endpoint string) metrics.Source

// sharedMetrics collapses concurrent polls of the same endpoint from many
// screens into one upstream request.
type sharedMetrics struct {
	group   singleflight.Group
	factory MetricsFactory
	timeout time.Duration
}

func (s *sharedMetrics) source(endpoint string) metrics.Source {
	upstream := s.factory(endpoint)
	return metrics.SourceFunc(func(ctx context.Context) (metrics.Snapshot, error) {
		ch := s.group.DoChan(endpoint, func() (any, error) {
			fctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			return upstream.Fetch(fctx)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return metrics.Snapshot{}, res.Err
			}
			return res.Val.(metrics.Snapshot).Clone(), nil
		case <-ctx.Done():
			return metrics.Snapshot{}, ctx.Err()
		}
	})
}
