package patterns

import (
	"github.com/roach88/metricq/internal/specs"
)

// BaseTimeGrainPattern keeps, among time dimensions that differ only in grain,
// the one with the finest grain.
//
// The output is dimensions, then the reduced time dimensions (in first-seen
// order), then entities; non-linkable candidates are dropped. With
// OnlyMetricTime set, only metric_time specs are reduced and every other
// candidate is passed through unchanged ahead of them.
type BaseTimeGrainPattern struct {
	OnlyMetricTime bool
}

func (p BaseTimeGrainPattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	if p.OnlyMetricTime {
		metricTime := MetricTimePattern{}.Match(candidates)
		isMetricTime := make(map[string]struct{}, len(metricTime))
		for _, s := range metricTime {
			isMetricTime[s.Key()] = struct{}{}
		}
		var out []specs.InstanceSpec
		for _, c := range candidates {
			if _, ok := isMetricTime[c.Key()]; !ok {
				out = append(out, c)
			}
		}
		return append(out, BaseTimeGrainPattern{}.Match(metricTime)...)
	}

	set := specs.InstanceSpecSetFromSpecs(candidates).LinkableSpecSet()

	var order []string
	groups := make(map[string][]specs.TimeDimensionSpec)
	for _, td := range set.TimeDimensions {
		k := td.KeyWithoutGranularity()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], td)
	}

	out := make([]specs.InstanceSpec, 0, set.Len())
	for _, d := range set.Dimensions {
		out = append(out, d)
	}
	for _, k := range order {
		group := groups[k]
		grains := make([]specs.TimeGranularity, len(group))
		for i, td := range group {
			grains[i] = td.TimeGranularity
		}
		out = append(out, group[0].WithGranularity(specs.MinGranularity(grains)))
	}
	for _, e := range set.Entities {
		out = append(out, e)
	}
	return out
}

// MetricTimePattern matches metric_time at any grain or date part.
type MetricTimePattern struct{}

func (MetricTimePattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	var out []specs.InstanceSpec
	for _, td := range timeDimensions(candidates) {
		if td.Element == specs.MetricTimeElementName {
			out = append(out, td)
		}
	}
	return out
}

// NoneDatePartPattern drops time dimensions that extract a date part.
// Output is time dimensions, then dimensions, then entities.
type NoneDatePartPattern struct{}

func (NoneDatePartPattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	var out []specs.InstanceSpec
	for _, td := range timeDimensions(candidates) {
		if td.DatePart == specs.DatePartNone {
			out = append(out, td)
		}
	}
	for _, c := range candidates {
		if _, ok := c.(specs.DimensionSpec); ok {
			out = append(out, c)
		}
	}
	return append(out, entities(candidates)...)
}
