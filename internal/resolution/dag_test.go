package resolution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
	"github.com/roach88/metricq/internal/testutil"
)

func TestBuild_SimpleMetric(t *testing.T) {
	b := resolution.NewBuilder(testutil.SimpleLookup())
	dag := b.Build([]string{"bookings"}, specs.WhereFilterIntersection{})

	require.Equal(t, 3, dag.Len())
	sink := dag.Sink()
	assert.Equal(t, resolution.KindQuery, sink.Kind)
	assert.Equal(t, resolution.NodeID(2), sink.ID)
	assert.Equal(t, "Query(['bookings'])", sink.UIDescription())

	metric := dag.Parents(sink)[0]
	assert.Equal(t, "Metric('bookings')", metric.UIDescription())
	assert.Nil(t, metric.InputLocation)

	measure := dag.Parents(metric)[0]
	assert.Equal(t, resolution.KindMeasure, measure.Kind)
	assert.Equal(t, "bookings", measure.ChildMetric)
	assert.Equal(t, resolution.NodeID(0), measure.ID)
}

func TestBuild_DerivedMetric(t *testing.T) {
	b := resolution.NewBuilder(testutil.SimpleLookup())
	dag := b.Build([]string{"bookings_per_listing", "bookings"}, specs.NewWhereFilterIntersection("x"))

	text := dag.Text()
	assert.Contains(t, text, "4: Metric('bookings_per_listing')\n    1: Metric('bookings') <- input 0 of 'bookings_per_listing'\n      0: Measure('bookings')\n")
	assert.Contains(t, text, "    3: Metric('listings') <- input 1 of 'bookings_per_listing'\n")
	assert.Equal(t, []string{"x"}, dag.Sink().Filter.Templates())

	// Deterministic IDs.
	again := b.Build([]string{"bookings_per_listing", "bookings"}, specs.WhereFilterIntersection{})
	assert.Equal(t, dag.Text(), again.Text())
}

func TestBuild_ConversionMetricHasTwoMeasures(t *testing.T) {
	dag := resolution.NewBuilder(testutil.SimpleLookup()).Build([]string{"visit_buy_conversion_rate"}, specs.WhereFilterIntersection{})
	metric := dag.Parents(dag.Sink())[0]
	parents := dag.Parents(metric)
	require.Len(t, parents, 2)
	assert.Equal(t, "visits", parents[0].Measure)
	assert.Equal(t, "buys", parents[1].Measure)
}

func TestBuild_NoMetrics(t *testing.T) {
	dag := resolution.NewBuilder(testutil.SimpleLookup()).Build(nil, specs.WhereFilterIntersection{})
	require.Equal(t, 2, dag.Len())
	assert.Equal(t, "Query([])", dag.Sink().UIDescription())
	assert.Equal(t, resolution.KindNoMetricsQuery, dag.Parents(dag.Sink())[0].Kind)
}

func TestBuild_UnknownMetricPanics(t *testing.T) {
	b := resolution.NewBuilder(testutil.SimpleLookup())
	assert.Panics(t, func() { b.Build([]string{"nope"}, specs.WhereFilterIntersection{}) })
}

func TestDAG_NodeOutOfRangePanics(t *testing.T) {
	dag := resolution.NewBuilder(testutil.SimpleLookup()).Build([]string{"bookings"}, specs.WhereFilterIntersection{})
	assert.Panics(t, func() { dag.Node(42) })
}
