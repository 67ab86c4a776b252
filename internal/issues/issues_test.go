package issues

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/patterns"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
)

var (
	queryNode   = &resolution.Node{ID: 2, Kind: resolution.KindQuery, MetricsInQuery: []string{"bookings"}}
	metricNode  = &resolution.Node{ID: 1, Kind: resolution.KindMetric, Metric: "bookings", Parents: []resolution.NodeID{0}}
	measureNode = &resolution.Node{ID: 0, Kind: resolution.KindMeasure, Measure: "bookings", ChildMetric: "bookings"}
)

type stringInput string

func (s stringInput) UIDescription() string { return string(s) }

type dunderNames struct{}

func (dunderNames) InputStr(s specs.InstanceSpec) (string, bool) {
	ls, ok := s.(specs.LinkableSpec)
	if !ok {
		return "", false
	}
	return specs.QualifiedName(ls), true
}

type namedInput struct {
	input   string
	pattern patterns.SpecPattern
}

func (n namedInput) UIDescription() string            { return n.input }
func (n namedInput) Pattern() patterns.SpecPattern    { return n.pattern }
func (n namedInput) Renderer() patterns.InputRenderer { return dunderNames{} }

func TestInvalidMetric_Suggestions(t *testing.T) {
	issue := NewInvalidMetric("bokings", []string{"listings", "bookings", "revenue"}, resolution.NewPath(queryNode))
	want := "'bokings' does not match any of the known metrics.\n\n" +
		"Suggestions:\n" +
		"  [\n" +
		"    'bookings',\n" +
		"    'listings',\n" +
		"    'revenue',\n" +
		"  ]"
	assert.Equal(t, want, issue.UIDescription(nil))
	assert.Equal(t, TypeError, issue.Type())
}

func TestInvalidLimit(t *testing.T) {
	assert.Equal(t, "The limit -1 is not >= 0.", NewInvalidLimit(-1, resolution.Path{}).UIDescription(nil))
}

func TestNoMatchingGroupByItemsAtRoot(t *testing.T) {
	candidates := []specs.LinkableSpec{
		specs.DimensionSpec{Element: "is_instant", EntityLinks: []string{"booking"}},
		specs.TimeDimensionSpec{Element: "metric_time", TimeGranularity: specs.GranularityDay},
	}
	issue := NewNoMatchingGroupByItemsAtRoot(candidates, resolution.NewPath(queryNode, metricNode, measureNode))

	t.Run("named input gets suggestions", func(t *testing.T) {
		in := namedInput{
			input: "booking__is_instan",
			pattern: patterns.EntityPathPattern{
				Params: patterns.EntityPathParameterSet{ElementName: "is_instan", EntityLinks: []string{"booking"}, InputString: "booking__is_instan"},
				Scheme: dunderNames{},
			},
		}
		want := "The given input does not match any of the available group by items for Measure('bookings'). Suggestions:\n" +
			"[\n  'booking__is_instant',\n  'metric_time__day',\n]"
		assert.Equal(t, want, issue.UIDescription(in))
	})

	t.Run("other input lists every item", func(t *testing.T) {
		got := issue.UIDescription(stringInput("WhereFilter(['x'])"))
		assert.Contains(t, got, "Available items:\n")
		assert.Contains(t, got, `DimensionSpec(element_name="is_instant", entity_links=["booking"])`)
	})
}

func TestWithPathPrefix_RecursesIntoParents(t *testing.T) {
	parent := NewNoMatchingGroupByItemsAtRoot(nil, resolution.NewPath(measureNode))
	child := NoCommonItemsInParents{
		base: base{parents: []Issue{parent}, path: resolution.NewPath(metricNode)},
		ParentCandidateSets: []resolution.CandidateSet{{
			Specs:        []specs.LinkableSpec{specs.EntitySpec{Element: "listing"}},
			MeasurePaths: []resolution.Path{resolution.NewPath(measureNode)},
			PathFromLeaf: resolution.NewPath(measureNode),
		}},
	}

	prefixed := child.WithPathPrefix(queryNode)
	assert.Equal(t, 2, prefixed.Path().Len())
	assert.Same(t, queryNode, prefixed.Path().First())
	require.Len(t, prefixed.ParentIssues(), 1)
	assert.Equal(t, 2, prefixed.ParentIssues()[0].Path().Len())
	assert.Equal(t, 2, prefixed.(NoCommonItemsInParents).ParentCandidateSets[0].PathFromLeaf.Len())

	// The original is untouched.
	assert.Equal(t, 1, child.Path().Len())
	assert.Equal(t, 1, parent.Path().Len())
}

func TestNoCommonItemsInParents_UIDescription(t *testing.T) {
	issue := NewNoCommonItemsInParents(
		[]*resolution.Node{metricNode, measureNode},
		[]resolution.CandidateSet{{
			Specs:        []specs.LinkableSpec{specs.EntitySpec{Element: "listing"}},
			PathFromLeaf: resolution.NewPath(metricNode),
		}},
		resolution.NewPath(queryNode),
	)
	got := issue.UIDescription(namedInput{input: "listing"})
	assert.Contains(t, got, "Query(['bookings']) is built from Metric('bookings'), Measure('bookings').")
	assert.Contains(t, got, "  Matching items for: Metric('bookings'): listing\n")
}

func TestWhereFilterParsing(t *testing.T) {
	issue := NewWhereFilterParsing("{{ Dimension( }}", errors.New("unexpected EOF"), resolution.NewPath(queryNode))
	want := "Error parsing where filter:\n\n  '{{ Dimension( }}'\n\nGot exception:\n\n  unexpected EOF"
	assert.Equal(t, want, issue.UIDescription(nil))
}

func TestMetricTimeIssues(t *testing.T) {
	offset := NewOffsetMetricRequiresMetricTime("bookings_growth_2_weeks", []manifest.MetricInput{
		{Name: "bookings"},
		{Name: "bookings", OffsetWindow: "14 days", Alias: "bookings_2_weeks_ago"},
	}, resolution.NewPath(queryNode))
	assert.Equal(t,
		"The query includes a metric 'bookings_growth_2_weeks' that specifies a time offset in input metrics: "+
			"[MetricInput(name='bookings'), MetricInput(name='bookings', alias='bookings_2_weeks_ago', offset_window='14 days')]. "+
			"However, group-by-items do not include 'metric_time'.",
		offset.UIDescription(nil))

	cumulative := NewCumulativeMetricRequiresMetricTime("trailing_7_days_booking_value", resolution.NewPath(queryNode))
	assert.Equal(t,
		"The query includes a cumulative metric 'trailing_7_days_booking_value' but the group-by-items do not include 'metric_time'",
		cumulative.UIDescription(nil))
}

func TestIssueSet(t *testing.T) {
	a := NewInvalidLimit(-1, resolution.Path{})
	b := NewGroupByItemParsing("x__extract_year")

	set := NewIssueSet(a).Add(b)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.HasErrors())
	assert.Equal(t, []Issue{a, b}, set.Issues())

	merged := NewIssueSet(b).Merge(NewIssueSet(a), IssueSet{})
	assert.Equal(t, []Issue{b, a}, merged.Issues())

	assert.False(t, IssueSet{}.HasIssues())
	prefixed := set.WithPathPrefix(queryNode)
	assert.Equal(t, 1, prefixed.Issues()[1].Path().Len())
}

func TestMapping(t *testing.T) {
	limit := MappingItem{Input: stringInput("-1"), Issues: NewIssueSet(NewInvalidLimit(-1, resolution.NewPath(queryNode)))}
	metric := MappingItem{Input: stringInput("bokings"), Issues: NewIssueSet(NewInvalidMetric("bokings", nil, resolution.NewPath(queryNode)))}
	clean := MappingItem{Input: stringInput("bookings")}

	m := NewMapping(metric, clean).Merge(NewMapping(limit))
	require.Len(t, m.Items(), 2)
	assert.Equal(t, "bokings", m.Items()[0].Input.UIDescription())
	assert.True(t, m.HasErrors())
	assert.Equal(t, 2, m.MergedIssueSet().Len())

	want := "Error #1:\n" +
		"  Input: bokings\n" +
		"  Message:\n" +
		"    'bokings' does not match any of the known metrics.\n" +
		"  Resolution path:\n" +
		"    [Resolve Query(['bookings'])]\n" +
		"\n" +
		"Error #2:\n" +
		"  Input: -1\n" +
		"  Message:\n" +
		"    The limit -1 is not >= 0.\n" +
		"  Resolution path:\n" +
		"    [Resolve Query(['bookings'])]\n"
	assert.Equal(t, want, m.Text())

	assert.False(t, NewMapping().HasErrors())
}
