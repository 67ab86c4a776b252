package query

import (
	"errors"
	"fmt"

	"github.com/roach88/metricq/internal/issues"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
	"github.com/roach88/metricq/internal/wherefilter"
)

// ErrUnresolved is wrapped by CheckedQuerySpec when a query has errors.
var ErrUnresolved = errors.New("query could not be resolved")

// MetricFlowQuerySpec is a fully resolved query.
type MetricFlowQuerySpec struct {
	Metrics            []specs.MetricSpec
	Dimensions         []specs.DimensionSpec
	TimeDimensions     []specs.TimeDimensionSpec
	Entities           []specs.EntitySpec
	OrderBys           []specs.OrderBySpec
	Limit              *int
	FilterIntersection specs.WhereFilterIntersection
	FilterSpecLookup   wherefilter.Lookup
}

// LinkableSpecs returns the group-by items of the query: dimensions, then
// time dimensions, then entities.
func (q *MetricFlowQuerySpec) LinkableSpecs() []specs.LinkableSpec {
	out := make([]specs.LinkableSpec, 0, len(q.Dimensions)+len(q.TimeDimensions)+len(q.Entities))
	for _, d := range q.Dimensions {
		out = append(out, d)
	}
	for _, td := range q.TimeDimensions {
		out = append(out, td)
	}
	for _, e := range q.Entities {
		out = append(out, e)
	}
	return out
}

// MetricNames returns the names of the queried metrics.
func (q *MetricFlowQuerySpec) MetricNames() []string {
	out := make([]string, len(q.Metrics))
	for i, m := range q.Metrics {
		out[i] = m.Element
	}
	return out
}

// FilterSpecs renders the query's where filters against the resolved lookup.
func (q *MetricFlowQuerySpec) FilterSpecs() ([]wherefilter.WhereFilterSpec, error) {
	factory := wherefilter.NewSpecFactory(q.FilterSpecLookup, wherefilter.LocationForQuery(q.MetricNames()))
	return factory.CreateAll(q.FilterIntersection)
}

func newQuerySpec(metrics []specs.MetricSpec, groupBy []specs.LinkableSpec, orderBys []specs.OrderBySpec,
	limit *int, filter specs.WhereFilterIntersection, lookup wherefilter.Lookup) *MetricFlowQuerySpec {
	q := &MetricFlowQuerySpec{
		Metrics:            metrics,
		OrderBys:           orderBys,
		Limit:              limit,
		FilterIntersection: filter,
		FilterSpecLookup:   lookup,
	}
	set := specs.LinkableSpecSetFromSpecs(groupBy)
	q.Dimensions = set.Dimensions
	q.TimeDimensions = set.TimeDimensions
	q.Entities = set.Entities
	return q
}

// Resolution is the result of resolving a query. QuerySpec is nil exactly
// when Issues has errors. DAG and FilterLookup are set whenever resolution
// got as far as building them.
type Resolution struct {
	QuerySpec    *MetricFlowQuerySpec
	DAG          *resolution.DAG
	FilterLookup wherefilter.Lookup
	Issues       issues.Mapping
}

// HasErrors reports whether resolution failed.
func (r Resolution) HasErrors() bool { return r.Issues.HasErrors() }

// CheckedQuerySpec returns the resolved spec, or an error carrying the
// rendered issues.
func (r Resolution) CheckedQuerySpec() (*MetricFlowQuerySpec, error) {
	if r.Issues.HasErrors() || r.QuerySpec == nil {
		return nil, fmt.Errorf("%w:\n%s", ErrUnresolved, r.Issues.Text())
	}
	return r.QuerySpec, nil
}
