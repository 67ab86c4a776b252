package query

import (
	"github.com/roach88/metricq/internal/issues"
	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/patterns"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
)

// ValidationRule checks a resolved query one metric node at a time.
type ValidationRule interface {
	ValidateMetric(metric *manifest.Metric, groupBy []specs.LinkableSpec, path resolution.Path) issues.IssueSet
}

// PostResolutionValidator applies rules to every metric node of a DAG once
// the query's group-by items are known.
type PostResolutionValidator struct {
	lookup *manifest.Lookup
	rules  []ValidationRule
}

// NewPostResolutionValidator returns a validator with the default rules.
func NewPostResolutionValidator(lookup *manifest.Lookup) *PostResolutionValidator {
	return &PostResolutionValidator{
		lookup: lookup,
		rules:  []ValidationRule{MetricTimeRule{lookup: lookup}},
	}
}

// Validate walks dag from its sink. Paths in the returned issues start at
// the sink and end at the offending metric node.
func (v *PostResolutionValidator) Validate(dag *resolution.DAG, groupBy []specs.LinkableSpec) issues.IssueSet {
	var (
		out     issues.IssueSet
		tracker resolution.Tracker
	)
	var walk func(n *resolution.Node)
	walk = func(n *resolution.Node) {
		path := tracker.Enter(n)
		defer tracker.Leave()
		if n.Kind == resolution.KindMetric {
			metric := v.lookup.MustMetric(n.Metric)
			for _, rule := range v.rules {
				out = out.Merge(rule.ValidateMetric(metric, groupBy, path))
			}
		}
		for _, p := range dag.Parents(n) {
			walk(p)
		}
	}
	walk(dag.Sink())
	return out
}

// MetricTimeRule requires metric_time, or the metric's aggregation time
// dimension, in the group-by items of queries on windowed cumulative
// metrics and on metrics with time-offset inputs.
type MetricTimeRule struct {
	lookup *manifest.Lookup
}

func (r MetricTimeRule) ValidateMetric(metric *manifest.Metric, groupBy []specs.LinkableSpec, path resolution.Path) issues.IssueSet {
	switch metric.Type {
	case manifest.MetricTypeCumulative:
		if metric.TypeParams.Window == "" && metric.TypeParams.GrainToDate == "" {
			return issues.IssueSet{}
		}
		if r.includesMetricTime(metric, groupBy) {
			return issues.IssueSet{}
		}
		return issues.NewIssueSet(issues.NewCumulativeMetricRequiresMetricTime(metric.Name, path))
	case manifest.MetricTypeRatio, manifest.MetricTypeDerived:
		inputs := r.lookup.InputMetrics(metric)
		offset := false
		for _, in := range inputs {
			offset = offset || in.HasOffset()
		}
		if !offset || r.includesMetricTime(metric, groupBy) {
			return issues.IssueSet{}
		}
		return issues.NewIssueSet(issues.NewOffsetMetricRequiresMetricTime(metric.Name, inputs, path))
	default:
		return issues.IssueSet{}
	}
}

// includesMetricTime reports whether groupBy has metric_time, or the
// aggregation time dimension of a measure behind metric, at any grain or
// date part.
func (r MetricTimeRule) includesMetricTime(metric *manifest.Metric, groupBy []specs.LinkableSpec) bool {
	valid := allTimeDimensionSpecs(specs.MetricTimeElementName, nil)
	for _, measure := range r.lookup.MeasureReferences(metric) {
		dim, ok := r.lookup.AggTimeDimension(measure)
		if !ok {
			continue
		}
		_, model, _ := r.lookup.Measure(measure)
		for _, link := range manifest.LocalEntityLinks(model) {
			valid = append(valid, allTimeDimensionSpecs(dim.Name, []string{link})...)
		}
	}
	return len(patterns.WhitelistPattern{Specs: valid}.Match(specs.ToInstanceSpecs(groupBy))) > 0
}

// allTimeDimensionSpecs lists element at every granularity, and with every
// date part at each granularity it can be extracted from.
func allTimeDimensionSpecs(element string, links []string) []specs.InstanceSpec {
	var out []specs.InstanceSpec
	for _, g := range specs.AllGranularities {
		out = append(out, specs.TimeDimensionSpec{Element: element, EntityLinks: links, TimeGranularity: g})
	}
	for _, part := range specs.AllDateParts {
		for _, g := range part.CompatibleGranularities() {
			out = append(out, specs.TimeDimensionSpec{Element: element, EntityLinks: links, TimeGranularity: g, DatePart: part})
		}
	}
	return out
}
