package patterns

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricq/internal/specs"
)

var (
	isInstant    = specs.DimensionSpec{Element: "is_instant", EntityLinks: []string{"booking"}}
	country      = specs.DimensionSpec{Element: "country_latest", EntityLinks: []string{"listing"}}
	listing      = specs.EntitySpec{Element: "listing"}
	bookingList  = specs.EntitySpec{Element: "listing", EntityLinks: []string{"booking"}}
	metricDay    = specs.TimeDimensionSpec{Element: "metric_time", TimeGranularity: specs.GranularityDay}
	metricMonth  = specs.TimeDimensionSpec{Element: "metric_time", TimeGranularity: specs.GranularityMonth}
	metricYearDP = specs.TimeDimensionSpec{Element: "metric_time", TimeGranularity: specs.GranularityDay, DatePart: specs.DatePartYear}
	dsDay        = specs.TimeDimensionSpec{Element: "ds", EntityLinks: []string{"booking"}, TimeGranularity: specs.GranularityDay}
	dsWeek       = specs.TimeDimensionSpec{Element: "ds", EntityLinks: []string{"booking"}, TimeGranularity: specs.GranularityWeek}
	bookingsM    = specs.MetricSpec{Element: "bookings"}
)

func candidates() []specs.InstanceSpec {
	return []specs.InstanceSpec{isInstant, metricMonth, country, dsWeek, metricDay, listing, metricYearDP, dsDay, bookingList}
}

func keys(in []specs.InstanceSpec) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.Key()
	}
	return out
}

func assertSpecs(t *testing.T, want, got []specs.InstanceSpec) {
	t.Helper()
	if diff := cmp.Diff(keys(want), keys(got)); diff != "" {
		t.Errorf("specs mismatch (-want +got):\n%s", diff)
	}
}

func TestDimensionPattern(t *testing.T) {
	p := NewDimensionPattern(specs.DimensionCallParameterSet{EntityPath: []string{"booking"}, Dimension: "is_instant"})
	assertSpecs(t, []specs.InstanceSpec{isInstant}, p.Match(candidates()))

	// Dimension(...) also reaches time dimensions, at every grain.
	p = NewDimensionPattern(specs.DimensionCallParameterSet{EntityPath: []string{"booking"}, Dimension: "ds"})
	assertSpecs(t, []specs.InstanceSpec{dsWeek, dsDay}, p.Match(candidates()))
}

func TestTimeDimensionPattern(t *testing.T) {
	testCases := []struct {
		name string
		call specs.TimeDimensionCallParameterSet
		want []specs.InstanceSpec
	}{
		{
			name: "any grain without date part",
			call: specs.TimeDimensionCallParameterSet{TimeDimension: "metric_time"},
			want: []specs.InstanceSpec{metricMonth, metricDay},
		},
		{
			name: "grain given",
			call: specs.TimeDimensionCallParameterSet{TimeDimension: "metric_time", TimeGranularity: specs.GranularityMonth},
			want: []specs.InstanceSpec{metricMonth},
		},
		{
			name: "date part given",
			call: specs.TimeDimensionCallParameterSet{TimeDimension: "metric_time", DatePart: specs.DatePartYear},
			want: []specs.InstanceSpec{metricYearDP},
		},
		{
			name: "entity path must match",
			call: specs.TimeDimensionCallParameterSet{TimeDimension: "ds"},
			want: nil,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assertSpecs(t, tc.want, NewTimeDimensionPattern(tc.call).Match(candidates()))
		})
	}
}

func TestEntityPattern(t *testing.T) {
	p := NewEntityPattern(specs.EntityCallParameterSet{Entity: "listing"})
	assertSpecs(t, []specs.InstanceSpec{listing}, p.Match(candidates()))

	p = NewEntityPattern(specs.EntityCallParameterSet{EntityPath: []string{"booking"}, Entity: "listing"})
	assertSpecs(t, []specs.InstanceSpec{bookingList}, p.Match(candidates()))
}

func TestForCallParameterSet(t *testing.T) {
	assert.IsType(t, EntityPattern{}, ForCallParameterSet(specs.EntityCallParameterSet{Entity: "listing"}))
	assert.IsType(t, DimensionPattern{}, ForCallParameterSet(specs.DimensionCallParameterSet{Dimension: "x"}))
	assert.IsType(t, TimeDimensionPattern{}, ForCallParameterSet(specs.TimeDimensionCallParameterSet{TimeDimension: "x"}))
}

func TestEntityPathPattern(t *testing.T) {
	testCases := []struct {
		name   string
		params EntityPathParameterSet
		want   []specs.InstanceSpec
	}{
		{
			name:   "dimension",
			params: EntityPathParameterSet{ElementName: "country_latest", EntityLinks: []string{"listing"}},
			want:   []specs.InstanceSpec{country},
		},
		{
			name:   "time dimension at every grain",
			params: EntityPathParameterSet{ElementName: "metric_time"},
			want:   []specs.InstanceSpec{metricMonth, metricDay},
		},
		{
			name:   "time dimension at a grain",
			params: EntityPathParameterSet{ElementName: "ds", EntityLinks: []string{"booking"}, TimeGranularity: specs.GranularityWeek},
			want:   []specs.InstanceSpec{dsWeek},
		},
		{
			name:   "entity",
			params: EntityPathParameterSet{ElementName: "listing"},
			want:   []specs.InstanceSpec{listing},
		},
		{
			name:   "no match",
			params: EntityPathParameterSet{ElementName: "country_latest"},
			want:   nil,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assertSpecs(t, tc.want, EntityPathPattern{Params: tc.params}.Match(candidates()))
		})
	}
}

type qualifiedNames struct{}

func (qualifiedNames) InputStr(s specs.InstanceSpec) (string, bool) {
	ls, ok := s.(specs.LinkableSpec)
	if !ok {
		return "", false
	}
	if td, ok := s.(specs.TimeDimensionSpec); ok && td.DatePart != specs.DatePartNone {
		return "", false
	}
	return specs.QualifiedName(ls), true
}

func TestEntityPathPattern_PartiallyMatch(t *testing.T) {
	p := EntityPathPattern{
		Params: EntityPathParameterSet{ElementName: "country", EntityLinks: []string{"listing"}, InputString: "listing__country"},
		Scheme: qualifiedNames{},
	}
	got := PartiallyMatch(p, candidates(), 3)
	require.Len(t, got, 3)
	assert.Equal(t, country.Key(), got[0].Key())

	in, ok := InputStr(p)
	assert.True(t, ok)
	assert.Equal(t, "listing__country", in)
}

func TestPartiallyMatch_DefaultTruncates(t *testing.T) {
	got := PartiallyMatch(MetricTimePattern{}, candidates(), 1)
	assertSpecs(t, []specs.InstanceSpec{metricMonth}, got)

	_, ok := InputStr(MetricTimePattern{})
	assert.False(t, ok)
}

func TestBaseTimeGrainPattern(t *testing.T) {
	got := BaseTimeGrainPattern{}.Match(append(candidates(), bookingsM))
	want := []specs.InstanceSpec{isInstant, country, metricDay, dsDay, metricYearDP, listing, bookingList}
	assertSpecs(t, want, got)
}

func TestBaseTimeGrainPattern_OnlyMetricTime(t *testing.T) {
	got := BaseTimeGrainPattern{OnlyMetricTime: true}.Match(candidates())
	want := []specs.InstanceSpec{isInstant, country, dsWeek, listing, dsDay, bookingList, metricDay, metricYearDP}
	assertSpecs(t, want, got)
}

func TestBaseTimeGrainPattern_Idempotent(t *testing.T) {
	for _, p := range []SpecPattern{BaseTimeGrainPattern{}, BaseTimeGrainPattern{OnlyMetricTime: true}, NoneDatePartPattern{}} {
		once := p.Match(candidates())
		assertSpecs(t, once, p.Match(once))
	}
}

func TestNoneDatePartPattern(t *testing.T) {
	got := NoneDatePartPattern{}.Match(candidates())
	want := []specs.InstanceSpec{metricMonth, dsWeek, metricDay, dsDay, isInstant, country, listing, bookingList}
	assertSpecs(t, want, got)
}

func TestMetricTimePattern(t *testing.T) {
	assertSpecs(t, []specs.InstanceSpec{metricMonth, metricDay, metricYearDP}, MetricTimePattern{}.Match(candidates()))
}

func TestWhitelistPattern(t *testing.T) {
	p := WhitelistPattern{Specs: []specs.InstanceSpec{dsDay, isInstant}}
	assertSpecs(t, []specs.InstanceSpec{isInstant, dsDay}, p.Match(candidates()))
}

func TestMetricPattern(t *testing.T) {
	metrics := []specs.InstanceSpec{bookingsM, specs.MetricSpec{Element: "booking_value"}, specs.MetricSpec{Element: "listings"}}

	p := NewMetricPattern("Bookings")
	assertSpecs(t, []specs.InstanceSpec{bookingsM}, p.Match(metrics))
	assert.Empty(t, p.Match(candidates()))

	near := NewMetricPattern("bookngs").PartiallyMatch(metrics, MaxSuggestions)
	require.Len(t, near, 3)
	assert.Equal(t, "bookings", near[0].ElementName())
}

func TestUnionPattern(t *testing.T) {
	p := UnionPattern{Patterns: []SpecPattern{
		NewEntityPattern(specs.EntityCallParameterSet{Entity: "listing"}),
		MetricTimePattern{},
		NewEntityPattern(specs.EntityCallParameterSet{Entity: "listing"}),
	}}
	assertSpecs(t, []specs.InstanceSpec{listing, metricMonth, metricDay, metricYearDP}, p.Match(candidates()))
}

func TestMatchAll(t *testing.T) {
	linkable := []specs.LinkableSpec{metricMonth, isInstant, metricDay}
	got := MatchAll(linkable, MetricTimePattern{}, BaseTimeGrainPattern{})
	require.Len(t, got, 1)
	assert.Equal(t, metricDay.Key(), got[0].Key())
}

func TestSuggestStrings(t *testing.T) {
	got := SuggestStrings("bokings", []string{"listings", "bookings", "revenue"}, 2)
	assert.Equal(t, []string{"bookings", "listings"}, got)
}
