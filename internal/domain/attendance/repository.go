package attendance

import (
	"context"
	"net/url"
)

// ListSource is a paginated remote data source.
type ListSource interface {
	List(ctx context.Context, resource string, params url.Values) (PageResult, error)
}
