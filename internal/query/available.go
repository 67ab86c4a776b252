package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/metricq/internal/groupby"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
)

// ErrUnknownMetric is returned by AvailableGroupByItems for a metric name
// the manifest does not define.
var ErrUnknownMetric = errors.New("unknown metric")

// AvailableGroupByItems lists the group-by items that can be queried
// together with every metric in metrics. With no metrics it lists the items
// of a query without metrics.
func (r *Resolver) AvailableGroupByItems(metrics []string) ([]specs.LinkableSpec, error) {
	known := r.lookup.MetricSpecs()
	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		matched := NewMetricInput(m).Pattern().Match(known)
		if len(matched) != 1 {
			return nil, fmt.Errorf("%w %q", ErrUnknownMetric, m)
		}
		names = append(names, matched[0].ElementName())
	}

	dag := resolution.NewBuilder(r.lookup, resolution.WithLogger(r.logger)).Build(names, specs.NewWhereFilterIntersection())
	items := groupby.NewResolver(r.lookup, dag, groupby.WithLogger(r.logger)).ResolveAvailableItems(nil)
	if items.Issues.HasErrors() {
		return nil, fmt.Errorf("%w: no group-by items are available for %s", ErrUnresolved, strings.Join(names, ", "))
	}
	return items.Specs, nil
}
