package query_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricq/internal/issues"
	"github.com/roach88/metricq/internal/query"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
	"github.com/roach88/metricq/internal/testutil"
)

func newParser() *query.Parser {
	return query.NewParser(query.NewResolver(testutil.SimpleLookup()))
}

func resolve(t *testing.T, req query.Request) query.Resolution {
	t.Helper()
	res, err := newParser().ParseAndResolve(req)
	require.NoError(t, err)
	return res
}

func intPtr(n int) *int { return &n }

// onlyIssue returns the single issue of the only mapping item.
func onlyIssue(t *testing.T, res query.Resolution) (issues.Input, issues.Issue) {
	t.Helper()
	items := res.Issues.Items()
	require.Len(t, items, 1, res.Issues.Text())
	errs := items[0].Issues.Errors()
	require.Len(t, errs, 1, res.Issues.Text())
	return items[0].Input, errs[0]
}

func TestResolveQuery_Valid(t *testing.T) {
	res := resolve(t, query.Request{
		Metrics: []string{"bookings"},
		GroupBy: []string{"metric_time", "listing__country_latest", "booking"},
		OrderBy: []string{"-bookings", "metric_time__day"},
		Limit:   intPtr(10),
	})

	spec, err := res.CheckedQuerySpec()
	require.NoError(t, err)
	assert.False(t, res.HasErrors())
	assert.NotNil(t, res.DAG)

	want := &query.MetricFlowQuerySpec{
		Metrics:        []specs.MetricSpec{{Element: "bookings"}},
		Dimensions:     []specs.DimensionSpec{{Element: "country_latest", EntityLinks: []string{"listing"}}},
		TimeDimensions: []specs.TimeDimensionSpec{{Element: "metric_time", TimeGranularity: specs.GranularityDay}},
		Entities:       []specs.EntitySpec{{Element: "booking"}},
		OrderBys: []specs.OrderBySpec{
			{Spec: specs.MetricSpec{Element: "bookings"}, Descending: true},
			{Spec: specs.TimeDimensionSpec{Element: "metric_time", TimeGranularity: specs.GranularityDay}},
		},
		Limit:              intPtr(10),
		FilterIntersection: specs.NewWhereFilterIntersection(),
	}
	if diff := cmp.Diff(want, spec, cmpopts.IgnoreFields(query.MetricFlowQuerySpec{}, "FilterSpecLookup"), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("ResolveQuery() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveQuery_InvalidMetric(t *testing.T) {
	res := resolve(t, query.Request{Metrics: []string{"bookingz"}, GroupBy: []string{"metric_time"}})

	input, issue := onlyIssue(t, res)
	assert.Equal(t, "bookingz", input.UIDescription())
	invalid, ok := issue.(issues.InvalidMetric)
	require.True(t, ok)
	assert.Equal(t, testutil.SimpleLookup().MetricReferences(), invalid.Candidates)
	assert.Contains(t, invalid.UIDescription(input), "'bookings'")

	// Rejected before any DAG is built.
	assert.Nil(t, res.DAG)
	assert.Nil(t, res.QuerySpec)
	require.Equal(t, 1, issue.Path().Len())
	assert.Equal(t, resolution.DetachedID, issue.Path().First().ID)
}

func TestResolveQuery_NegativeLimit(t *testing.T) {
	res := resolve(t, query.Request{Metrics: []string{"bookings"}, Limit: intPtr(-1)})

	input, issue := onlyIssue(t, res)
	assert.IsType(t, query.LimitInput{}, input)
	assert.Equal(t, "The limit -1 is not >= 0.", issue.UIDescription(input))
}

func TestResolveQuery_ZeroLimitIsValid(t *testing.T) {
	res := resolve(t, query.Request{Metrics: []string{"bookings"}, Limit: intPtr(0)})
	spec, err := res.CheckedQuerySpec()
	require.NoError(t, err)
	assert.Equal(t, 0, *spec.Limit)
}

func TestResolveQuery_GroupByIssues(t *testing.T) {
	testCases := []struct {
		name    string
		groupBy string
		want    issues.Issue
	}{
		{name: "unknown item", groupBy: "listing__nope", want: issues.NoMatchingGroupByItemsAtRoot{}},
		{name: "unparseable", groupBy: "metric_time__extract_year", want: issues.GroupByItemParsing{}},
		{name: "missing entity path", groupBy: "Dimension('country_latest')", want: issues.NoMatchingGroupByItemsAtRoot{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := resolve(t, query.Request{Metrics: []string{"bookings"}, GroupBy: []string{tc.groupBy}})

			input, issue := onlyIssue(t, res)
			assert.Equal(t, tc.groupBy, input.UIDescription())
			assert.IsType(t, tc.want, issue)
			assert.Nil(t, res.QuerySpec)
			assert.NotNil(t, res.DAG)
		})
	}
}

func TestResolveQuery_GroupByParsingMessage(t *testing.T) {
	res := resolve(t, query.Request{Metrics: []string{"bookings"}, GroupBy: []string{"metric_time__extract_year"}})
	_, err := res.CheckedQuerySpec()
	require.Error(t, err)
	assert.True(t, errors.Is(err, query.ErrUnresolved))
	assert.Contains(t, err.Error(), "The group-by-item 'metric_time__extract_year' does not match any of the known formats.")
}

func TestResolveQuery_InvalidOrderBy(t *testing.T) {
	res := resolve(t, query.Request{
		Metrics: []string{"bookings"},
		GroupBy: []string{"metric_time"},
		OrderBy: []string{"listing__country_latest"},
	})

	input, issue := onlyIssue(t, res)
	assert.Equal(t, "listing__country_latest", input.UIDescription())
	assert.IsType(t, issues.InvalidOrderByItem{}, issue)
	assert.Equal(t, resolution.DetachedID, issue.Path().First().ID)
	assert.Equal(t, resolution.KindQuery, issue.Path().First().Kind)
}

func TestResolveQuery_OrderByObjectDescending(t *testing.T) {
	res := resolve(t, query.Request{
		Metrics: []string{"bookings"},
		GroupBy: []string{"metric_time__month"},
		OrderBy: []string{"TimeDimension('metric_time', 'month').descending()"},
	})
	spec, err := res.CheckedQuerySpec()
	require.NoError(t, err)
	require.Len(t, spec.OrderBys, 1)
	assert.True(t, spec.OrderBys[0].Descending)
	assert.Equal(t, specs.TimeDimensionSpec{Element: "metric_time", TimeGranularity: specs.GranularityMonth}, spec.OrderBys[0].Spec)
}

func TestResolveQuery_WhereFilterParsing(t *testing.T) {
	res := resolve(t, query.Request{Metrics: []string{"bookings"}, Where: []string{"{{ Dimension( }}"}})

	input, issue := onlyIssue(t, res)
	assert.IsType(t, query.FilterInput{}, input)
	assert.Equal(t, `WhereFilter(["{{ Dimension( }}"])`, input.UIDescription())
	assert.IsType(t, issues.WhereFilterParsing{}, issue)
	assert.NotNil(t, res.DAG)
	assert.False(t, res.FilterLookup.IsEmpty())
}

func TestResolveQuery_MetricTimeGrainInFilterName(t *testing.T) {
	for _, where := range []string{
		"{{ Dimension('metric_time__day') }} >= '2020-01-01'",
		"{{ TimeDimension('metric_time__day') }} >= '2020-01-01'",
	} {
		t.Run(where, func(t *testing.T) {
			res := resolve(t, query.Request{Metrics: []string{"bookings"}, Where: []string{where}})
			spec, err := res.CheckedQuerySpec()
			require.NoError(t, err)

			filters, err := spec.FilterSpecs()
			require.NoError(t, err)
			require.Len(t, filters, 1)
			assert.Equal(t, "metric_time__day >= '2020-01-01'", filters[0].SQL)
		})
	}
}

func TestResolveQuery_MappingOrder(t *testing.T) {
	res := resolve(t, query.Request{
		Metrics: []string{"bookings"},
		GroupBy: []string{"listing__nope"},
		OrderBy: []string{"revenue"},
		Where:   []string{"{{ Entity('nope') }} = 1"},
	})

	items := res.Issues.Items()
	require.Len(t, items, 3, res.Issues.Text())
	assert.IsType(t, query.GroupByInput{}, items[0].Input)
	assert.IsType(t, query.OrderByInput{}, items[1].Input)
	assert.IsType(t, query.FilterInput{}, items[2].Input)
}

func TestResolveQuery_GroupByItemsKeepInputOrder(t *testing.T) {
	res := resolve(t, query.Request{
		Metrics: []string{"bookings"},
		GroupBy: []string{"listing__nope", "metric_time__extract_year", "metric_time__month", "booking__nope"},
	})

	items := res.Issues.Items()
	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.Input.UIDescription()
	}
	want := []string{"listing__nope", "metric_time__extract_year", "booking__nope"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mapping inputs mismatch (-want +got):\n%s", diff)
	}
	assert.IsType(t, query.GroupByInput{}, items[0].Input)
	assert.IsType(t, query.InvalidStringInput{}, items[1].Input)
	assert.IsType(t, query.GroupByInput{}, items[2].Input)
}

func TestOrderByInput_Pattern(t *testing.T) {
	in, ok := query.NewOrderByInput("-bookings")
	require.True(t, ok)
	require.Len(t, in.PossibleInputs, 2)

	candidates := []specs.InstanceSpec{
		specs.MetricSpec{Element: "bookings"},
		specs.EntitySpec{Element: "bookings"},
		specs.DimensionSpec{Element: "country_latest", EntityLinks: []string{"listing"}},
	}
	got := in.Pattern().Match(candidates)
	if diff := cmp.Diff(candidates[:2], got); diff != "" {
		t.Errorf("Match() mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, in.Descending)
}

func TestResolveQuery_MetricTimeRequired(t *testing.T) {
	testCases := []struct {
		name    string
		metric  string
		groupBy []string
		where   []string
		want    issues.Issue
	}{
		{name: "offset window", metric: "bookings_growth_2_weeks", groupBy: []string{"listing__country_latest"}, want: issues.OffsetMetricRequiresMetricTime{}},
		{name: "offset window with metric_time", metric: "bookings_growth_2_weeks", groupBy: []string{"metric_time__week"}},
		{name: "offset window with agg time dimension", metric: "bookings_growth_2_weeks", groupBy: []string{"booking__ds__month"}},
		{name: "offset to grain", metric: "bookings_growth_since_start_of_month", want: issues.OffsetMetricRequiresMetricTime{}},
		{name: "cumulative window", metric: "trailing_7_days_booking_value", want: issues.CumulativeMetricRequiresMetricTime{}},
		{name: "cumulative grain to date", metric: "booking_value_mtd", groupBy: []string{"booking"}, want: issues.CumulativeMetricRequiresMetricTime{}},
		{name: "cumulative with metric_time", metric: "booking_value_mtd", groupBy: []string{"metric_time__day"}},
		{name: "all time cumulative", metric: "all_time_bookings"},
		{name: "ratio without offsets", metric: "bookings_per_listing"},
		{
			name:   "offset with metric_time only in filter",
			metric: "bookings_growth_2_weeks",
			where:  []string{"{{ TimeDimension('metric_time', 'day') }} >= '2020-01-01'"},
			want:   issues.OffsetMetricRequiresMetricTime{},
		},
		{
			name:   "offset with other dimension in filter",
			metric: "bookings_growth_2_weeks",
			where:  []string{"{{ Dimension('listing__country_latest') }} = 'us'"},
			want:   issues.OffsetMetricRequiresMetricTime{},
		},
		{
			name:   "cumulative with metric_time only in filter",
			metric: "trailing_7_days_booking_value",
			where:  []string{"{{ TimeDimension('metric_time', 'day') }} >= '2020-01-01'"},
			want:   issues.CumulativeMetricRequiresMetricTime{},
		},
		{
			name:    "offset with metric_time in filter and group by",
			metric:  "bookings_growth_2_weeks",
			groupBy: []string{"metric_time__day"},
			where:   []string{"{{ TimeDimension('metric_time', 'day') }} >= '2020-01-01'"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := resolve(t, query.Request{Metrics: []string{tc.metric}, GroupBy: tc.groupBy, Where: tc.where})
			if tc.want == nil {
				assert.False(t, res.HasErrors(), res.Issues.Text())
				return
			}

			input, issue := onlyIssue(t, res)
			assert.IsType(t, query.QueryInput{}, input)
			assert.IsType(t, tc.want, issue)
			assert.Same(t, res.DAG.Sink(), issue.Path().First())
			assert.Equal(t, tc.metric, issue.Path().Last().Metric)
			assert.Nil(t, res.QuerySpec)
		})
	}
}

func TestResolveQuery_OffsetMessage(t *testing.T) {
	res := resolve(t, query.Request{Metrics: []string{"bookings_growth_2_weeks"}})
	input, issue := onlyIssue(t, res)
	assert.Equal(t, `Query(["bookings_growth_2_weeks"], [])`, input.UIDescription())
	assert.Contains(t, issue.UIDescription(input), "offset_window='14 days'")
	assert.Contains(t, issue.UIDescription(input), "do not include 'metric_time'")
}

func TestResolveQuery_NoMetrics(t *testing.T) {
	res := resolve(t, query.Request{GroupBy: []string{"user__home_state"}})
	spec, err := res.CheckedQuerySpec()
	require.NoError(t, err)
	assert.Empty(t, spec.Metrics)
	assert.Equal(t, []specs.LinkableSpec{specs.DimensionSpec{Element: "home_state", EntityLinks: []string{"user"}}}, spec.LinkableSpecs())
}

func TestResolveQuery_FilterSpecs(t *testing.T) {
	res := resolve(t, query.Request{
		Metrics: []string{"bookings"},
		GroupBy: []string{"metric_time"},
		Where:   []string{"{{ Dimension('listing__country_latest') }} = 'US'"},
	})
	spec, err := res.CheckedQuerySpec()
	require.NoError(t, err)

	filters, err := spec.FilterSpecs()
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "listing__country_latest = 'US'", filters[0].SQL)
}

func TestResolveQuery_LogsRejectedQueries(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	parser := query.NewParser(query.NewResolver(testutil.SimpleLookup(), query.WithLogger(logger)))

	_, err := parser.ParseAndResolve(query.Request{Metrics: []string{"bookingz"}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "query rejected before resolution")
}
