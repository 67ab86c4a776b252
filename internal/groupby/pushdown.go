package groupby

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/metricq/internal/issues"
	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/patterns"
	"github.com/roach88/metricq/internal/resolution"
)

// pushDownResult holds either candidates or error issues.
type pushDownResult struct {
	candidates resolution.CandidateSet
	issues     issues.IssueSet
}

func (r pushDownResult) check() pushDownResult {
	if r.issues.HasErrors() == r.candidates.IsEmpty() {
		return r
	}
	panic(fmt.Sprintf("groupby: push-down result must have candidates or errors, got %d candidates and %d issues",
		len(r.candidates.Specs), r.issues.Len()))
}

func (r pushDownResult) filter(ps ...patterns.SpecPattern) pushDownResult {
	c := r.candidates
	for _, p := range ps {
		c = c.Filter(p)
	}
	return pushDownResult{candidates: c, issues: r.issues}
}

// pushDown visits the DAG from a start node.
type pushDown struct {
	lookup  *manifest.Lookup
	dag     *resolution.DAG
	sources []patterns.SpecPattern
	tracker resolution.Tracker
	logger  *slog.Logger
}

func (v *pushDown) visit(n *resolution.Node) pushDownResult {
	path := v.tracker.Enter(n)
	defer v.tracker.Leave()

	var r pushDownResult
	switch n.Kind {
	case resolution.KindMeasure:
		r = v.visitMeasure(n, path)
	case resolution.KindMetric:
		r = v.visitMetric(n, path)
	case resolution.KindQuery:
		r = v.mergeParents(n, path)
	case resolution.KindNoMetricsQuery:
		r = v.visitNoMetricsQuery(path)
	default:
		panic(fmt.Sprintf("groupby: unhandled node kind %v", n.Kind))
	}
	return r.check()
}

func (v *pushDown) visitMeasure(n *resolution.Node, path resolution.Path) pushDownResult {
	available := v.lookup.LinkableSpecsForMeasure(n.Measure)
	metric := v.lookup.MustMetric(n.ChildMetric)

	var ps []patterns.SpecPattern
	if metric.Type == manifest.MetricTypeCumulative {
		// Cumulative metrics can only be queried at the base grain of
		// metric_time and never with a date part.
		ps = append(ps, patterns.BaseTimeGrainPattern{OnlyMetricTime: true}, patterns.NoneDatePartPattern{})
	}
	ps = append(ps, v.sources...)

	matched := patterns.MatchAll(available, ps...)
	v.debug("measure candidates", "node", n.UIDescription(), "available", len(available), "matched", len(matched))
	if len(matched) == 0 {
		return pushDownResult{issues: issues.NewIssueSet(issues.NewNoMatchingGroupByItemsAtRoot(available, path))}
	}
	return pushDownResult{candidates: resolution.CandidateSet{
		Specs:        matched,
		MeasurePaths: []resolution.Path{path},
		PathFromLeaf: path,
	}}
}

func (v *pushDown) mergeParents(n *resolution.Node, path resolution.Path) pushDownResult {
	parents := v.dag.Parents(n)
	results := make([]pushDownResult, len(parents))
	var merged issues.IssueSet
	for i, p := range parents {
		results[i] = v.visit(p)
		merged = merged.Merge(results[i].issues)
	}
	if merged.HasErrors() {
		return pushDownResult{issues: merged}
	}

	sets := make([]resolution.CandidateSet, len(results))
	for i, r := range results {
		sets[i] = r.candidates
	}
	common := resolution.Intersect(path, sets)
	if common.IsEmpty() {
		return pushDownResult{issues: merged.Add(issues.NewNoCommonItemsInParents(parents, sets, path))}
	}
	v.debug("merged parent candidates", "node", n.UIDescription(), "candidates", len(common.Specs))
	return pushDownResult{candidates: common, issues: merged}
}

func (v *pushDown) visitMetric(n *resolution.Node, path resolution.Path) pushDownResult {
	merged := v.mergeParents(n, path)
	if merged.candidates.IsEmpty() {
		return merged
	}

	metric := v.lookup.MustMetric(n.Metric)
	if !hasOffsetToGrain(v.lookup.InputMetrics(metric)) {
		return merged
	}

	// Date parts cannot be extracted from metrics with offset_to_grain.
	candidates := merged.candidates.Specs
	matched := patterns.MatchLinkable(patterns.NoneDatePartPattern{}, candidates)
	v.debug("offset metric candidates", "node", n.UIDescription(), "candidates", len(candidates), "matched", len(matched))
	if len(matched) == 0 {
		return pushDownResult{issues: merged.issues.Add(issues.NewNoCandidatesWithNoneDatePart(candidates, path))}
	}
	return pushDownResult{
		candidates: resolution.CandidateSet{
			Specs:        matched,
			MeasurePaths: merged.candidates.MeasurePaths,
			PathFromLeaf: path,
		},
		issues: merged.issues,
	}
}

func (v *pushDown) visitNoMetricsQuery(path resolution.Path) pushDownResult {
	available := v.lookup.LinkableSpecsForNoMetricsQuery()
	matched := patterns.MatchAll(available, v.sources...)
	if len(matched) == 0 {
		return pushDownResult{issues: issues.NewIssueSet(issues.NewNoMatchingGroupByItemsAtRoot(available, path))}
	}
	return pushDownResult{candidates: resolution.CandidateSet{
		Specs:        matched,
		MeasurePaths: []resolution.Path{path},
		PathFromLeaf: path,
	}}
}

func (v *pushDown) debug(msg string, args ...any) {
	if v.logger.Enabled(context.Background(), slog.LevelDebug) {
		v.logger.Debug(msg, args...)
	}
}

func hasOffsetToGrain(inputs []manifest.MetricInput) bool {
	for _, in := range inputs {
		if in.OffsetToGrain != "" {
			return true
		}
	}
	return false
}
