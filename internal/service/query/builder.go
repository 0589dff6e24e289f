package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
)

// Builder owns a FilterState and exposes the only operations allowed to
// change it. A Builder is not safe for concurrent use; the owning screen
// serializes access.
type Builder struct {
	filter attendance.FilterState
}

func NewBuilder() *Builder {
	return &Builder{filter: attendance.DefaultFilterState()}
}

func (b *Builder) SetSearch(term string) {
	b.filter.Search = strings.TrimSpace(term)
}

// SetDate sets the single-date filter. The zero time clears it.
func (b *Builder) SetDate(date time.Time) {
	b.filter.Date = truncateDay(date)
}

// SetDateRange replaces both ends of the range. Either end may be zero while
// the user is still picking; such a range is not applicable until complete.
func (b *Builder) SetDateRange(from, to time.Time) {
	b.filter.From = truncateDay(from)
	b.filter.To = truncateDay(to)
}

// SetMonth selects the report month. Zero values clear it.
func (b *Builder) SetMonth(year int, month time.Month) error {
	if year == 0 && month == 0 {
		b.filter.Year, b.filter.Month = 0, 0
		return nil
	}
	if month < time.January || month > time.December {
		return attendance.ErrInvalidMonth
	}
	b.filter.Year, b.filter.Month = year, month
	return nil
}

func (b *Builder) SetCategoricalFilter(name string, values []string) error {
	if _, ok := attendance.CategoricalFilters[name]; !ok {
		return fmt.Errorf("%w: %s", attendance.ErrUnknownFilter, name)
	}
	normalized := attendance.NormalizeValues(values)
	if len(normalized) == 0 {
		delete(b.filter.Categorical, name)
		return nil
	}
	b.filter.Categorical[name] = normalized
	return nil
}

// SetStatus selects the plain shift status and clears every criterion flag.
func (b *Builder) SetStatus(status attendance.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %s", attendance.ErrUnknownStatus, status)
	}
	b.filter.Status = status
	b.filter.Criterion = ""
	return nil
}

// ActivateCriterion clears the plain status and all other flags, then sets
// the named one.
func (b *Builder) ActivateCriterion(c attendance.Criterion) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", attendance.ErrUnknownCriterion, c)
	}
	b.filter.Status = attendance.StatusNone
	b.filter.Criterion = c
	return nil
}

// Reset restores the default filter.
func (b *Builder) Reset() {
	b.filter = attendance.DefaultFilterState()
}

// Filter returns a deep copy of the current filter.
func (b *Builder) Filter() attendance.FilterState {
	return b.filter.Clone()
}

// DefaultEvent is the first-page event issued on filter changes and clears.
func DefaultEvent(rows int) attendance.PageEvent {
	if rows <= 0 {
		rows = attendance.DefaultPageSize
	}
	return attendance.PageEvent{First: 0, Rows: rows, SortOrder: attendance.SortAscending}
}

// BuildRequest is a pure function of its inputs: the same resource, event
// and filter always produce an equal PageRequest.
func BuildRequest(res attendance.Resource, event attendance.PageEvent, filter attendance.FilterState) (attendance.PageRequest, error) {
	if err := Applicable(filter); err != nil {
		return attendance.PageRequest{}, err
	}

	size := event.Rows
	if size <= 0 {
		size = attendance.DefaultPageSize
	}
	first := event.First
	if first < 0 {
		first = 0
	}

	req := attendance.PageRequest{
		Resource:  res,
		PageIndex: first / size,
		PageSize:  size,
		SortField: strings.TrimSpace(event.SortField),
		SortOrder: attendance.SortAscending,
		Filter:    filter.Clone(),
	}
	switch {
	case req.SortField != "" && event.SortOrder == attendance.SortDescending:
		req.SortOrder = attendance.SortDescending
	case req.SortField == "" && res.DefaultSortField != "":
		req.SortField = res.DefaultSortField
		req.SortOrder = attendance.SortDescending
	}
	return req, nil
}

// Applicable reports whether the filter can be sent as is.
func Applicable(filter attendance.FilterState) error {
	if filter.HasRange() && !filter.RangeComplete() {
		return fmt.Errorf("%w: %w", attendance.ErrFilterNotApplicable, attendance.ErrIncompleteDateRange)
	}
	if filter.RangeComplete() && filter.To.Before(filter.From) {
		return fmt.Errorf("%w: %w", attendance.ErrFilterNotApplicable, attendance.ErrInvalidDateRange)
	}
	return nil
}

// ExportParams resolves the parameters of a report request from a filter
// snapshot.
func ExportParams(kind export.Kind, filter attendance.FilterState) (url.Values, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", export.ErrUnknownKind, kind)
	}
	if err := Applicable(filter); err != nil {
		return nil, err
	}

	switch kind {
	case export.KindAttendance:
		res := attendance.Resource{DateParam: "logdate", Search: true, AttendanceFilters: true}
		return filter.Params(res), nil

	case export.KindEmployeeMonthly:
		employees := filter.Values(attendance.FilterEmployee)
		if len(employees) != 1 {
			return nil, fmt.Errorf("%w: %w", attendance.ErrFilterNotApplicable, export.ErrSingleEmployee)
		}
		v, err := monthParams(filter)
		if err != nil {
			return nil, err
		}
		v.Set("employee_id", employees[0])
		return v, nil

	case export.KindAllEmployeeMonthly:
		return monthParams(filter)

	case export.KindMandays, export.KindMandaysWorked:
		if filter.Date.IsZero() {
			return nil, fmt.Errorf("%w: %w", attendance.ErrFilterNotApplicable, export.ErrDateRequired)
		}
		return url.Values{"date": {attendance.FormatDate(filter.Date)}}, nil
	}
	return nil, fmt.Errorf("%w: %s", export.ErrUnknownKind, kind)
}

func monthParams(filter attendance.FilterState) (url.Values, error) {
	if !filter.HasMonth() {
		return nil, fmt.Errorf("%w: %w", attendance.ErrFilterNotApplicable, export.ErrMonthRequired)
	}
	return url.Values{
		"month": {strconv.Itoa(int(filter.Month))},
		"year":  {strconv.Itoa(filter.Year)},
	}, nil
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
