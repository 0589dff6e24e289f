package attendance

import (
	"slices"
	"time"
)

// DateLayout is the single calendar-date format used on the wire, for single
// dates and ranges alike.
const DateLayout = "2006-01-02"

// Criterion is one of the mutually exclusive attendance conditions used as an
// alternate filter mode.
type Criterion string

const (
	CriterionLateEntry             Criterion = "lateEntry"
	CriterionEarlyExit             Criterion = "earlyExit"
	CriterionOvertime              Criterion = "overtime"
	CriterionMissedPunch           Criterion = "missedPunch"
	CriterionInsufficientDutyHours Criterion = "insufficientDutyHours"
)

// Criteria lists every criterion in wire order.
var Criteria = []Criterion{
	CriterionLateEntry,
	CriterionEarlyExit,
	CriterionOvertime,
	CriterionMissedPunch,
	CriterionInsufficientDutyHours,
}

var criterionParams = map[Criterion]string{
	CriterionLateEntry:             "late_entry",
	CriterionEarlyExit:             "early_exit",
	CriterionOvertime:              "overtime",
	CriterionMissedPunch:           "missed_punch",
	CriterionInsufficientDutyHours: "insufficient_duty_hours",
}

func (c Criterion) Valid() bool {
	_, ok := criterionParams[c]
	return ok
}

// Param returns the query parameter carrying the flag.
func (c Criterion) Param() string {
	return criterionParams[c]
}

// Status is the plain shift status filter.
type Status string

const (
	StatusNone    Status = ""
	StatusPresent Status = "P"
	StatusAbsent  Status = "A"
)

func (s Status) Valid() bool {
	return s == StatusNone || s == StatusPresent || s == StatusAbsent
}

// Categorical filter names.
const (
	FilterCompany     = "company"
	FilterLocation    = "location"
	FilterDepartment  = "department"
	FilterDesignation = "designation"
	FilterEmployee    = "employee"
)

// CategoricalFilters maps each categorical filter to its query parameter.
var CategoricalFilters = map[string]string{
	FilterCompany:     "company_name",
	FilterLocation:    "location_name",
	FilterDepartment:  "department_name",
	FilterDesignation: "designation_name",
	FilterEmployee:    "employee_ids",
}

// FilterState is the current set of search, date, categorical and criterion
// selections driving a query. Criterion and Status are never both set.
type FilterState struct {
	Search string

	Date time.Time
	From time.Time
	To   time.Time

	Year  int
	Month time.Month

	Categorical map[string][]string

	Status    Status
	Criterion Criterion
}

// DefaultFilterState returns the empty filter.
func DefaultFilterState() FilterState {
	return FilterState{Categorical: map[string][]string{}}
}

// Clone returns a deep copy.
func (f FilterState) Clone() FilterState {
	out := f
	out.Categorical = make(map[string][]string, len(f.Categorical))
	for name, values := range f.Categorical {
		out.Categorical[name] = slices.Clone(values)
	}
	return out
}

// Equal reports whether both filters select exactly the same rows.
func (f FilterState) Equal(o FilterState) bool {
	if f.Search != o.Search || f.Status != o.Status || f.Criterion != o.Criterion {
		return false
	}
	if f.Year != o.Year || f.Month != o.Month {
		return false
	}
	if !f.Date.Equal(o.Date) || !f.From.Equal(o.From) || !f.To.Equal(o.To) {
		return false
	}
	if len(f.Categorical) != len(o.Categorical) {
		return false
	}
	for name, values := range f.Categorical {
		other, ok := o.Categorical[name]
		if !ok || !slices.Equal(values, other) {
			return false
		}
	}
	return true
}

// Flags reports every criterion flag as the backend sees it.
func (f FilterState) Flags() map[Criterion]bool {
	flags := make(map[Criterion]bool, len(Criteria))
	for _, c := range Criteria {
		flags[c] = f.Criterion == c
	}
	return flags
}

// HasRange reports whether either end of the date range is set.
func (f FilterState) HasRange() bool {
	return !f.From.IsZero() || !f.To.IsZero()
}

// RangeComplete reports whether both ends of the date range are set.
func (f FilterState) RangeComplete() bool {
	return !f.From.IsZero() && !f.To.IsZero()
}

// HasMonth reports whether a report month was selected.
func (f FilterState) HasMonth() bool {
	return f.Year > 0 && f.Month >= time.January && f.Month <= time.December
}

// Values returns the selected values of a categorical filter.
func (f FilterState) Values(name string) []string {
	return f.Categorical[name]
}

// FormatDate renders t in DateLayout, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
