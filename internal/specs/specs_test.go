package specs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualifiedName(t *testing.T) {
	testCases := []struct {
		name string
		spec LinkableSpec
		want string
	}{
		{
			name: "local dimension",
			spec: DimensionSpec{Element: "country", EntityLinks: []string{"user"}},
			want: "user__country",
		},
		{
			name: "multi-hop dimension",
			spec: DimensionSpec{Element: "country", EntityLinks: []string{"listing", "user"}},
			want: "listing__user__country",
		},
		{
			name: "metric time",
			spec: TimeDimensionSpec{Element: MetricTimeElementName, TimeGranularity: GranularityDay},
			want: "metric_time__day",
		},
		{
			name: "date part",
			spec: TimeDimensionSpec{Element: "ds", EntityLinks: []string{"booking"}, TimeGranularity: GranularityDay, DatePart: DatePartYear},
			want: "booking__ds__extract_year",
		},
		{
			name: "entity without links",
			spec: EntitySpec{Element: "listing"},
			want: "listing",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, QualifiedName(tc.spec))
		})
	}
}

func TestKey_DistinguishesKindAndLinks(t *testing.T) {
	dim := DimensionSpec{Element: "listing"}
	ent := EntitySpec{Element: "listing"}
	linked := EntitySpec{Element: "listing", EntityLinks: []string{"user"}}

	assert.NotEqual(t, dim.Key(), ent.Key())
	assert.NotEqual(t, ent.Key(), linked.Key())
	assert.True(t, Equal(ent, EntitySpec{Element: "listing", EntityLinks: []string{}}))
	assert.False(t, Equal(ent, nil))
	assert.True(t, Equal(nil, nil))
}

func TestTimeDimensionSpec_WithGranularity(t *testing.T) {
	orig := TimeDimensionSpec{Element: "ds", EntityLinks: []string{"booking"}, TimeGranularity: GranularityDay}
	month := orig.WithGranularity(GranularityMonth)

	assert.Equal(t, GranularityDay, orig.TimeGranularity)
	assert.Equal(t, GranularityMonth, month.TimeGranularity)
	assert.Equal(t, orig.KeyWithoutGranularity(), month.KeyWithoutGranularity())

	month.EntityLinks[0] = "changed"
	assert.Equal(t, "booking", orig.EntityLinks[0])
}

func TestLinkableSpecSet_FromSpecsAndAsSlice(t *testing.T) {
	in := []LinkableSpec{
		EntitySpec{Element: "listing"},
		DimensionSpec{Element: "country", EntityLinks: []string{"listing"}},
		TimeDimensionSpec{Element: MetricTimeElementName, TimeGranularity: GranularityDay},
		DimensionSpec{Element: "is_instant", EntityLinks: []string{"booking"}},
	}

	set := LinkableSpecSetFromSpecs(in)
	require.Len(t, set.Dimensions, 2)
	require.Len(t, set.TimeDimensions, 1)
	require.Len(t, set.Entities, 1)
	assert.Equal(t, "country", set.Dimensions[0].Element)
	assert.Equal(t, "is_instant", set.Dimensions[1].Element)

	names := make([]string, 0, set.Len())
	for _, s := range set.AsSlice() {
		names = append(names, QualifiedName(s))
	}
	want := []string{"listing__country", "booking__is_instant", "metric_time__day", "listing"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("AsSlice order mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkableSpecSet_MergeAndDedupe(t *testing.T) {
	a := LinkableSpecSet{Dimensions: []DimensionSpec{{Element: "country", EntityLinks: []string{"user"}}}}
	b := LinkableSpecSet{
		Dimensions: []DimensionSpec{{Element: "country", EntityLinks: []string{"user"}}},
		Entities:   []EntitySpec{{Element: "user"}},
	}

	merged := a.Merge(b)
	assert.Equal(t, 3, merged.Len())
	assert.Len(t, a.Dimensions, 1, "merge must not mutate the receiver")

	deduped := merged.Dedupe()
	assert.Equal(t, 2, deduped.Len())
}

func TestIntersectLinkable(t *testing.T) {
	country := DimensionSpec{Element: "country", EntityLinks: []string{"user"}}
	instant := DimensionSpec{Element: "is_instant", EntityLinks: []string{"booking"}}
	metricTime := TimeDimensionSpec{Element: MetricTimeElementName, TimeGranularity: GranularityDay}

	got := IntersectLinkable(
		[]LinkableSpec{metricTime, country, instant},
		[]LinkableSpec{instant, metricTime},
	)
	require.Len(t, got, 2)
	assert.Equal(t, metricTime.Key(), got[0].Key())
	assert.Equal(t, instant.Key(), got[1].Key())

	assert.Empty(t, IntersectLinkable([]LinkableSpec{country}, []LinkableSpec{instant}))
}

func TestInstanceSpecSet_Roundtrip(t *testing.T) {
	in := []InstanceSpec{
		MetricSpec{Element: "bookings"},
		DimensionSpec{Element: "country"},
		MeasureSpec{Element: "booking_value"},
		MetadataSpec{Element: "mf_internal_uuid"},
	}
	set := InstanceSpecSetFromSpecs(in)

	got := set.AsSlice()
	require.Len(t, got, 4)
	assert.Equal(t, "measure:booking_value", got[0].Key())
	assert.Equal(t, "metric:bookings", got[2].Key())
	assert.Equal(t, "metadata:mf_internal_uuid", got[3].Key())
	assert.Equal(t, 1, set.LinkableSpecSet().Len())
}

func TestGranularity_Order(t *testing.T) {
	assert.Less(t, GranularityDay.Order(), GranularityWeek.Order())
	assert.Less(t, GranularityQuarter.Order(), GranularityYear.Order())
	assert.False(t, TimeGranularity("hour").IsValid())

	_, err := ParseTimeGranularity("fortnight")
	assert.Error(t, err)

	assert.Equal(t, []TimeGranularity{GranularityQuarter, GranularityYear}, GranularitiesAtOrAbove(GranularityQuarter))
	assert.Equal(t, GranularityWeek, MinGranularity([]TimeGranularity{GranularityMonth, GranularityWeek}))
	assert.Panics(t, func() { MinGranularity(nil) })
}

func TestDatePart_CompatibleGranularities(t *testing.T) {
	assert.Equal(t, AllGranularities, DatePartYear.CompatibleGranularities())
	assert.Equal(t, []TimeGranularity{GranularityDay}, DatePartDOW.CompatibleGranularities())
	assert.Equal(t, []TimeGranularity{GranularityDay, GranularityWeek, GranularityMonth}, DatePartMonth.CompatibleGranularities())

	p, err := ParseDatePart("quarter")
	require.NoError(t, err)
	assert.Equal(t, DatePartQuarter, p)
	_, err = ParseDatePart("")
	assert.Error(t, err)
}

func TestWhereFilterIntersection_Merge(t *testing.T) {
	a := NewWhereFilterIntersection("{{ Dimension('user__country') }} = 'US'")
	b := NewWhereFilterIntersection("{{ TimeDimension('metric_time', 'day') }} > '2020-01-01'")

	merged := a.Merge(b)
	assert.Len(t, merged.Filters, 2)
	assert.Len(t, a.Filters, 1)
	assert.Equal(t, []string{a.Filters[0].Template, b.Filters[0].Template}, merged.Templates())
}
