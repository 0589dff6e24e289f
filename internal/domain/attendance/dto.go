package attendance

import (
	"encoding/json"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ========================================
// PAGINATION
// ========================================

// SortOrder follows the table convention: 1 ascending, -1 descending.
type SortOrder int

const (
	SortAscending  SortOrder = 1
	SortDescending SortOrder = -1
)

// DefaultPageSize applies when a lazy-load event carries no row count.
const DefaultPageSize = 10

// PageEvent is a table lazy-load event: zero-based row offset, page size and
// optional sort.
type PageEvent struct {
	First     int       `json:"first"`
	Rows      int       `json:"rows"`
	SortField string    `json:"sortField"`
	SortOrder SortOrder `json:"sortOrder"`
}

// Resource describes a paginated list endpoint and the filters it accepts.
type Resource struct {
	Path string

	// DateParam names the single-date filter, empty when unsupported.
	DateParam string

	Search            bool
	AttendanceFilters bool

	// DefaultSortField is used descending when the event has no sort.
	DefaultSortField string
}

// PageRequest is the canonical, comparable description of one list query.
type PageRequest struct {
	Resource  Resource
	PageIndex int
	PageSize  int
	SortField string
	SortOrder SortOrder
	Filter    FilterState
}

// Page returns the one-based page number used on the wire.
func (r PageRequest) Page() int {
	return r.PageIndex + 1
}

// Ordering returns "" without a sort field, "field" ascending and "-field"
// descending.
func (r PageRequest) Ordering() string {
	if r.SortField == "" {
		return ""
	}
	if r.SortOrder == SortDescending {
		return "-" + r.SortField
	}
	return r.SortField
}

func (r PageRequest) Equal(o PageRequest) bool {
	return r.Resource == o.Resource &&
		r.PageIndex == o.PageIndex &&
		r.PageSize == o.PageSize &&
		r.SortField == o.SortField &&
		r.SortOrder == o.SortOrder &&
		r.Filter.Equal(o.Filter)
}

// Values encodes the request as upstream query parameters.
func (r PageRequest) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(r.Page()))
	v.Set("page_size", strconv.Itoa(r.PageSize))
	v.Set("sortField", r.SortField)
	v.Set("ordering", r.Ordering())
	for key, values := range r.Filter.Params(r.Resource) {
		v[key] = values
	}
	return v
}

// Key is the canonical string form of the request.
func (r PageRequest) Key() string {
	return r.Resource.Path + "?" + r.Values().Encode()
}

// Params encodes the filter for the given resource. Filters the resource
// does not declare are left out.
func (f FilterState) Params(res Resource) url.Values {
	v := url.Values{}
	if res.Search {
		v.Set("search", f.Search)
	}
	if res.DateParam != "" && !f.Date.IsZero() {
		v.Set(res.DateParam, FormatDate(f.Date))
	}
	if !res.AttendanceFilters {
		return v
	}

	v.Set("shift_status", string(f.Status))
	for _, c := range Criteria {
		v.Set(c.Param(), strconv.FormatBool(f.Criterion == c))
	}
	for name, param := range CategoricalFilters {
		if values := f.Categorical[name]; len(values) > 0 {
			v.Set(param, strings.Join(values, ","))
		}
	}
	if f.RangeComplete() {
		v.Set("date_from", FormatDate(f.From))
		v.Set("date_to", FormatDate(f.To))
	}
	return v
}

// NormalizeValues trims, de-duplicates and sorts categorical values.
func NormalizeValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ========================================
// RESULTS
// ========================================

// Record is an opaque domain row passed through unmodified.
type Record = json.RawMessage

// PageResult is the upstream list payload.
type PageResult struct {
	Rows       []Record `json:"results"`
	TotalCount int      `json:"count"`
}

// PageState is the immutable view of a fetcher. It is replaced, never
// mutated.
type PageState struct {
	Rows       []Record
	TotalCount int
	Loading    bool
	Generation uint64
	Request    PageRequest
	Error      string
}

type PageResponse struct {
	Rows       []Record `json:"rows"`
	TotalCount int      `json:"total_count"`
	Loading    bool     `json:"loading"`
	Generation uint64   `json:"generation"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	Ordering   string   `json:"ordering"`
	Error      string   `json:"error,omitempty"`
}

// Response renders the state for API consumers.
func (s PageState) Response() PageResponse {
	rows := s.Rows
	if rows == nil {
		rows = []Record{}
	}
	return PageResponse{
		Rows:       rows,
		TotalCount: s.TotalCount,
		Loading:    s.Loading,
		Generation: s.Generation,
		Page:       s.Request.Page(),
		PageSize:   s.Request.PageSize,
		Ordering:   s.Request.Ordering(),
		Error:      s.Error,
	}
}
