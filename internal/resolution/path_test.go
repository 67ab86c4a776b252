package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricq/internal/specs"
)

var (
	queryNode   = &Node{ID: 2, Kind: KindQuery, MetricsInQuery: []string{"bookings"}}
	metricNode  = &Node{ID: 1, Kind: KindMetric, Metric: "bookings"}
	measureNode = &Node{ID: 0, Kind: KindMeasure, Measure: "bookings", ChildMetric: "bookings"}
)

func TestPath_UIDescription(t *testing.T) {
	p := NewPath(queryNode, metricNode, measureNode)
	want := "[Resolve Query(['bookings'])]\n" +
		"  -> [Resolve Metric('bookings')]\n" +
		"    -> [Resolve Measure('bookings')]"
	assert.Equal(t, want, p.UIDescription())
	assert.Equal(t, "Path(query#2, metric#1, measure#0)", p.String())
}

func TestPath_WithPrefixSharesTail(t *testing.T) {
	tail := NewPath(measureNode)
	p := tail.WithPrefix(metricNode)

	assert.Equal(t, 1, tail.Len())
	assert.Equal(t, 2, p.Len())
	assert.Same(t, tail.head, p.head.next)
	assert.Same(t, metricNode, p.First())
	assert.Same(t, measureNode, p.Last())
}

func TestPath_PrefixingIsAssociative(t *testing.T) {
	base := NewPath(measureNode)
	stepwise := base.WithPrefix(metricNode).WithPrefix(queryNode)
	whole := NewPath(queryNode, metricNode).Nodes()

	got := stepwise.Nodes()
	require.Len(t, got, 3)
	assert.Equal(t, whole, got[:2])
	assert.Equal(t, NewPath(queryNode, metricNode, measureNode).UIDescription(), stepwise.UIDescription())
}

func TestPath_Empty(t *testing.T) {
	var p Path
	assert.True(t, p.IsEmpty())
	assert.Nil(t, p.First())
	assert.Nil(t, p.Last())
	assert.Empty(t, p.Nodes())
}

func TestTracker(t *testing.T) {
	var tr Tracker
	tr.Enter(queryNode)
	p := tr.Enter(metricNode)
	assert.Equal(t, []*Node{queryNode, metricNode}, p.Nodes())
	tr.Leave()
	p = tr.Enter(measureNode)
	assert.Equal(t, []*Node{queryNode, measureNode}, p.Nodes())
}

func TestIntersect(t *testing.T) {
	a := specs.DimensionSpec{Element: "a"}
	b := specs.DimensionSpec{Element: "b"}
	c := specs.EntitySpec{Element: "c"}
	p1 := NewPath(measureNode)
	p2 := NewPath(metricNode)

	got := Intersect(NewPath(queryNode), []CandidateSet{
		{Specs: []specs.LinkableSpec{c, a, b}, MeasurePaths: []Path{p1}},
		{Specs: []specs.LinkableSpec{b, c}, MeasurePaths: []Path{p2}},
	})
	assert.Equal(t, []specs.LinkableSpec{c, b}, got.Specs)
	assert.Len(t, got.MeasurePaths, 2)
	assert.Same(t, queryNode, got.PathFromLeaf.First())

	empty := Intersect(NewPath(queryNode), []CandidateSet{
		{Specs: []specs.LinkableSpec{a}, MeasurePaths: []Path{p1}},
		{Specs: []specs.LinkableSpec{b}, MeasurePaths: []Path{p2}},
	})
	assert.True(t, empty.IsEmpty())
	assert.Empty(t, empty.MeasurePaths)
}

func TestCandidateSet_WithPathPrefix(t *testing.T) {
	set := CandidateSet{
		Specs:        []specs.LinkableSpec{specs.DimensionSpec{Element: "a"}},
		MeasurePaths: []Path{NewPath(measureNode)},
		PathFromLeaf: NewPath(measureNode),
	}
	prefixed := set.WithPathPrefix(metricNode)
	assert.Equal(t, 2, prefixed.MeasurePaths[0].Len())
	assert.Equal(t, 2, prefixed.PathFromLeaf.Len())
	assert.Equal(t, 1, set.MeasurePaths[0].Len())
}
