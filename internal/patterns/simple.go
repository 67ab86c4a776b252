package patterns

import (
	"strings"

	"github.com/roach88/metricq/internal/specs"
)

// WhitelistPattern matches the candidates that are in Specs.
type WhitelistPattern struct {
	Specs []specs.InstanceSpec
}

func (p WhitelistPattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	allowed := make(map[string]struct{}, len(p.Specs))
	for _, s := range p.Specs {
		allowed[s.Key()] = struct{}{}
	}
	var out []specs.InstanceSpec
	for _, c := range candidates {
		if _, ok := allowed[c.Key()]; ok {
			out = append(out, c)
		}
	}
	return out
}

// MetricPattern matches a metric by name.
type MetricPattern struct {
	Name  string
	Input string
}

// NewMetricPattern builds a pattern from a user-typed metric name. Metric
// names are case-insensitive on input.
func NewMetricPattern(input string) MetricPattern {
	return MetricPattern{Name: strings.ToLower(input), Input: input}
}

func (p MetricPattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	var out []specs.InstanceSpec
	for _, c := range candidates {
		if m, ok := c.(specs.MetricSpec); ok && m.Element == p.Name {
			out = append(out, c)
		}
	}
	return out
}

// PartiallyMatch ranks metrics by name similarity.
func (p MetricPattern) PartiallyMatch(candidates []specs.InstanceSpec, max int) []specs.InstanceSpec {
	return rankBySimilarity(p.Input, candidates, func(s specs.InstanceSpec) (string, bool) {
		m, ok := s.(specs.MetricSpec)
		return m.Element, ok
	}, max)
}

func (p MetricPattern) InputStr() string { return p.Input }

// UnionPattern matches what any of its patterns match. Results are
// concatenated in pattern order without duplicates.
type UnionPattern struct {
	Patterns []SpecPattern
}

func (p UnionPattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	seen := make(map[string]struct{})
	var out []specs.InstanceSpec
	for _, sub := range p.Patterns {
		for _, s := range sub.Match(candidates) {
			if _, ok := seen[s.Key()]; ok {
				continue
			}
			seen[s.Key()] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
