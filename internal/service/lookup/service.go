package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
)

var ErrUnknownLookup = errors.New("unknown lookup")

// optionPageSize is the page size used to pull a whole option list at once.
const optionPageSize = "100"

// Source is the upstream API as seen by the lookup service.
type Source interface {
	List(ctx context.Context, resource string, params url.Values) (attendance.PageResult, error)
	GetJSON(ctx context.Context, resource string, params url.Values, v any) error
}

type lookupDef struct {
	resource  string
	paginated bool
}

var lookups = map[string]lookupDef{
	attendance.FilterCompany:     {resource: "company/", paginated: true},
	attendance.FilterLocation:    {resource: "location/", paginated: true},
	attendance.FilterDepartment:  {resource: "department/", paginated: true},
	attendance.FilterDesignation: {resource: "designation/", paginated: true},
	attendance.FilterEmployee:    {resource: "employee/dropdown/"},
}

// Names lists every lookup.
func Names() []string {
	return []string{
		attendance.FilterCompany,
		attendance.FilterLocation,
		attendance.FilterDepartment,
		attendance.FilterDesignation,
		attendance.FilterEmployee,
	}
}

type LookupService interface {
	// Options returns the dropdown options of a categorical filter
	Options(ctx context.Context, name string) ([]attendance.Record, error)

	// Refresh drops the cached list and reloads it
	Refresh(ctx context.Context, name string) ([]attendance.Record, error)
}

type lookupServiceImpl struct {
	source Source
	cache  *Cache
}

func NewLookupService(source Source, cache *Cache) LookupService {
	return &lookupServiceImpl{source: source, cache: cache}
}

func (s *lookupServiceImpl) Options(ctx context.Context, name string) ([]attendance.Record, error) {
	def, ok := lookups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLookup, name)
	}

	var options []attendance.Record
	err := s.cache.FetchJSON(ctx, name, &options, func(ctx context.Context) (any, error) {
		return s.load(ctx, def)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s options: %w", name, err)
	}
	if options == nil {
		options = []attendance.Record{}
	}
	return options, nil
}

func (s *lookupServiceImpl) Refresh(ctx context.Context, name string) ([]attendance.Record, error) {
	if _, ok := lookups[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLookup, name)
	}
	if err := s.cache.Invalidate(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to invalidate %s options: %w", name, err)
	}
	return s.Options(ctx, name)
}

func (s *lookupServiceImpl) load(ctx context.Context, def lookupDef) ([]attendance.Record, error) {
	if !def.paginated {
		var options []attendance.Record
		if err := s.source.GetJSON(ctx, def.resource, nil, &options); err != nil {
			return nil, err
		}
		return options, nil
	}

	params := url.Values{
		"page":      {"1"},
		"page_size": {optionPageSize},
		"sortField": {""},
		"ordering":  {""},
	}
	result, err := s.source.List(ctx, def.resource, params)
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}
