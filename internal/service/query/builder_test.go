package query

import (
	"strconv"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/domain/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monthlyResource = attendance.Resource{
	Path:              "attendance/",
	DateParam:         "logdate",
	Search:            true,
	AttendanceFilters: true,
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}

func TestBuildRequest_PageNumbers(t *testing.T) {
	cases := []struct {
		first, rows      int
		wantPage, wantSz int
	}{
		{0, 10, 1, 10},
		{9, 10, 1, 10},
		{10, 10, 2, 10},
		{20, 10, 3, 10},
		{25, 5, 6, 5},
		{60, 30, 3, 30},
		{0, 0, 1, attendance.DefaultPageSize},
		{-5, 10, 1, 10},
	}
	for _, c := range cases {
		req, err := BuildRequest(monthlyResource, attendance.PageEvent{First: c.first, Rows: c.rows}, attendance.DefaultFilterState())
		require.NoError(t, err)
		assert.Equal(t, c.wantPage, req.Page(), "first=%d rows=%d", c.first, c.rows)
		assert.Equal(t, c.wantSz, req.PageSize, "first=%d rows=%d", c.first, c.rows)

		v := req.Values()
		assert.Equal(t, req.Page(), mustAtoi(t, v.Get("page")))
		assert.Equal(t, req.PageSize, mustAtoi(t, v.Get("page_size")))
	}
}

func TestBuildRequest_Ordering(t *testing.T) {
	cases := []struct {
		field string
		order attendance.SortOrder
		want  string
	}{
		{"", attendance.SortAscending, ""},
		{"", attendance.SortDescending, ""},
		{"employee_id", attendance.SortAscending, "employee_id"},
		{"employee_id", attendance.SortDescending, "-employee_id"},
		{"logdate", 0, "logdate"},
	}
	for _, c := range cases {
		req, err := BuildRequest(monthlyResource, attendance.PageEvent{Rows: 10, SortField: c.field, SortOrder: c.order}, attendance.DefaultFilterState())
		require.NoError(t, err)
		assert.Equal(t, c.want, req.Ordering())
		assert.Equal(t, c.want, req.Values().Get("ordering"))
		assert.Equal(t, c.field, req.Values().Get("sortField"))
	}
}

func TestBuildRequest_DefaultSortField(t *testing.T) {
	logs := attendance.Resource{Path: "logs/", Search: true, DefaultSortField: "log_datetime"}

	req, err := BuildRequest(logs, attendance.PageEvent{Rows: 10}, attendance.DefaultFilterState())
	require.NoError(t, err)
	assert.Equal(t, "-log_datetime", req.Ordering())

	req, err = BuildRequest(logs, attendance.PageEvent{Rows: 10, SortField: "employee_id", SortOrder: attendance.SortAscending}, attendance.DefaultFilterState())
	require.NoError(t, err)
	assert.Equal(t, "employee_id", req.Ordering())
}

func TestBuildRequest_SearchScenario(t *testing.T) {
	b := NewBuilder()
	b.SetSearch("J")

	req, err := BuildRequest(monthlyResource, attendance.PageEvent{First: 20, Rows: 10}, b.Filter())
	require.NoError(t, err)

	v := req.Values()
	assert.Equal(t, "3", v.Get("page"))
	assert.Equal(t, "10", v.Get("page_size"))
	assert.Equal(t, "", v.Get("ordering"))
	assert.True(t, v.Has("ordering"))
	assert.Equal(t, "J", v.Get("search"))
}

func TestBuildRequest_Pure(t *testing.T) {
	b := NewBuilder()
	b.SetSearch("ann")
	require.NoError(t, b.SetCategoricalFilter(attendance.FilterCompany, []string{"Acme", "Beta"}))
	b.SetDateRange(day(2024, 3, 1), day(2024, 3, 31))

	event := attendance.PageEvent{First: 10, Rows: 10, SortField: "logdate", SortOrder: attendance.SortDescending}
	first, err := BuildRequest(monthlyResource, event, b.Filter())
	require.NoError(t, err)
	second, err := BuildRequest(monthlyResource, event, b.Filter())
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Key(), second.Key())

	b.SetSearch("bob")
	third, err := BuildRequest(monthlyResource, event, b.Filter())
	require.NoError(t, err)
	assert.False(t, first.Equal(third))
}

func TestBuildRequest_RequestIsolatedFromLaterMutation(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetCategoricalFilter(attendance.FilterLocation, []string{"Mysuru"}))

	req, err := BuildRequest(monthlyResource, DefaultEvent(10), b.Filter())
	require.NoError(t, err)

	require.NoError(t, b.SetCategoricalFilter(attendance.FilterLocation, []string{"Bengaluru"}))
	assert.Equal(t, "Mysuru", req.Values().Get("location_name"))
}

func TestBuildRequest_DateFormatting(t *testing.T) {
	b := NewBuilder()
	b.SetDate(time.Date(2024, 7, 4, 15, 30, 0, 0, time.UTC))
	b.SetDateRange(day(2024, 7, 1), day(2024, 7, 9))

	req, err := BuildRequest(monthlyResource, DefaultEvent(10), b.Filter())
	require.NoError(t, err)

	v := req.Values()
	assert.Equal(t, "2024-07-04", v.Get("logdate"))
	assert.Equal(t, "2024-07-01", v.Get("date_from"))
	assert.Equal(t, "2024-07-09", v.Get("date_to"))
}

func TestBuildRequest_IncompleteRangeNotApplicable(t *testing.T) {
	b := NewBuilder()
	b.SetDateRange(day(2024, 7, 1), time.Time{})

	_, err := BuildRequest(monthlyResource, DefaultEvent(10), b.Filter())
	assert.ErrorIs(t, err, attendance.ErrFilterNotApplicable)
	assert.ErrorIs(t, err, attendance.ErrIncompleteDateRange)

	b.SetDateRange(day(2024, 7, 9), day(2024, 7, 1))
	_, err = BuildRequest(monthlyResource, DefaultEvent(10), b.Filter())
	assert.ErrorIs(t, err, attendance.ErrFilterNotApplicable)
	assert.ErrorIs(t, err, attendance.ErrInvalidDateRange)
}

func TestBuildRequest_ResourceFilterFamilies(t *testing.T) {
	b := NewBuilder()
	b.SetSearch("x")
	b.SetDate(day(2024, 1, 2))
	require.NoError(t, b.ActivateCriterion(attendance.CriterionOvertime))

	mandays := attendance.Resource{Path: "attendance/mandays/", DateParam: "logdate"}
	req, err := BuildRequest(mandays, DefaultEvent(10), b.Filter())
	require.NoError(t, err)

	v := req.Values()
	assert.Equal(t, "2024-01-02", v.Get("logdate"))
	assert.False(t, v.Has("search"))
	assert.False(t, v.Has("overtime"))
	assert.False(t, v.Has("shift_status"))
}

func TestBuilder_ActivateCriterion_MutualExclusion(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetStatus(attendance.StatusPresent))
	require.NoError(t, b.ActivateCriterion(attendance.CriterionOvertime))
	require.NoError(t, b.ActivateCriterion(attendance.CriterionLateEntry))

	f := b.Filter()
	active := 0
	for _, on := range f.Flags() {
		if on {
			active++
		}
	}
	assert.Equal(t, 1, active)
	assert.True(t, f.Flags()[attendance.CriterionLateEntry])
	assert.Equal(t, attendance.StatusNone, f.Status)

	req, err := BuildRequest(monthlyResource, DefaultEvent(10), f)
	require.NoError(t, err)
	v := req.Values()
	assert.Equal(t, "true", v.Get("late_entry"))
	assert.Equal(t, "false", v.Get("overtime"))
	assert.Equal(t, "", v.Get("shift_status"))
}

func TestBuilder_SetStatus_ClearsCriteria(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.ActivateCriterion(attendance.CriterionMissedPunch))
	require.NoError(t, b.SetStatus(attendance.StatusAbsent))

	f := b.Filter()
	assert.Equal(t, attendance.StatusAbsent, f.Status)
	assert.Equal(t, attendance.Criterion(""), f.Criterion)
	for c, on := range f.Flags() {
		assert.False(t, on, "criterion %s", c)
	}
}

func TestBuilder_RejectsUnknownNames(t *testing.T) {
	b := NewBuilder()
	assert.ErrorIs(t, b.ActivateCriterion("sleeping"), attendance.ErrUnknownCriterion)
	assert.ErrorIs(t, b.SetStatus("X"), attendance.ErrUnknownStatus)
	assert.ErrorIs(t, b.SetCategoricalFilter("shopfloor", []string{"A"}), attendance.ErrUnknownFilter)
	assert.ErrorIs(t, b.SetMonth(2024, 13), attendance.ErrInvalidMonth)
}

func TestBuilder_CategoricalNormalization(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetCategoricalFilter(attendance.FilterEmployee, []string{" E2", "E1", "E2", ""}))

	req, err := BuildRequest(monthlyResource, DefaultEvent(10), b.Filter())
	require.NoError(t, err)
	assert.Equal(t, "E1,E2", req.Values().Get("employee_ids"))

	require.NoError(t, b.SetCategoricalFilter(attendance.FilterEmployee, nil))
	req, err = BuildRequest(monthlyResource, DefaultEvent(10), b.Filter())
	require.NoError(t, err)
	assert.False(t, req.Values().Has("employee_ids"))
}

func TestBuilder_Reset_Idempotent(t *testing.T) {
	b := NewBuilder()
	b.SetSearch("J")
	require.NoError(t, b.ActivateCriterion(attendance.CriterionEarlyExit))

	b.Reset()
	first, err := BuildRequest(monthlyResource, DefaultEvent(10), b.Filter())
	require.NoError(t, err)
	b.Reset()
	second, err := BuildRequest(monthlyResource, DefaultEvent(10), b.Filter())
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, 1, first.Page())
}

func TestExportParams(t *testing.T) {
	b := NewBuilder()

	_, err := ExportParams(export.KindAllEmployeeMonthly, b.Filter())
	assert.ErrorIs(t, err, attendance.ErrFilterNotApplicable)
	assert.ErrorIs(t, err, export.ErrMonthRequired)

	require.NoError(t, b.SetMonth(2024, time.March))
	v, err := ExportParams(export.KindAllEmployeeMonthly, b.Filter())
	require.NoError(t, err)
	assert.Equal(t, "3", v.Get("month"))
	assert.Equal(t, "2024", v.Get("year"))

	_, err = ExportParams(export.KindEmployeeMonthly, b.Filter())
	assert.ErrorIs(t, err, export.ErrSingleEmployee)

	require.NoError(t, b.SetCategoricalFilter(attendance.FilterEmployee, []string{"EMP-7"}))
	v, err = ExportParams(export.KindEmployeeMonthly, b.Filter())
	require.NoError(t, err)
	assert.Equal(t, "EMP-7", v.Get("employee_id"))

	_, err = ExportParams(export.KindMandays, b.Filter())
	assert.ErrorIs(t, err, export.ErrDateRequired)

	b.SetDate(day(2024, 3, 5))
	v, err = ExportParams(export.KindMandaysWorked, b.Filter())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", v.Get("date"))

	v, err = ExportParams(export.KindAttendance, b.Filter())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", v.Get("logdate"))
	assert.Equal(t, "EMP-7", v.Get("employee_ids"))

	_, err = ExportParams("payroll", b.Filter())
	assert.ErrorIs(t, err, export.ErrUnknownKind)
}
