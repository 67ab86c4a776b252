package patterns

import (
	"github.com/roach88/metricq/internal/specs"
)

// EntityPathParameterSet is a group-by item parsed from user input.
// An empty TimeGranularity matches any grain.
type EntityPathParameterSet struct {
	ElementName     string
	EntityLinks     []string
	TimeGranularity specs.TimeGranularity
	DatePart        specs.DatePart
	InputString     string
}

// EntityPathPattern matches a group-by item the user named by entity path,
// e.g. listing__country or booking__ds__month.
//
// Time dimensions win: if any time dimension matches, only time dimensions
// are returned. Otherwise dimensions and entities with the same name and path
// match.
type EntityPathPattern struct {
	Params EntityPathParameterSet
	// Scheme renders candidates for similarity ranking. Nil disables ranking.
	Scheme InputRenderer
}

func (p EntityPathPattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	var tds []specs.InstanceSpec
	for _, td := range timeDimensions(candidates) {
		if td.Element != p.Params.ElementName || !specs.LinksEqual(td.EntityLinks, p.Params.EntityLinks) {
			continue
		}
		if p.Params.TimeGranularity != "" && td.TimeGranularity != p.Params.TimeGranularity {
			continue
		}
		if td.DatePart != p.Params.DatePart {
			continue
		}
		tds = append(tds, td)
	}
	if len(tds) > 0 {
		return tds
	}

	var out []specs.InstanceSpec
	for _, c := range candidates {
		switch s := c.(type) {
		case specs.DimensionSpec:
			if s.Element == p.Params.ElementName && specs.LinksEqual(s.EntityLinks, p.Params.EntityLinks) {
				out = append(out, c)
			}
		case specs.EntitySpec:
			if s.Element == p.Params.ElementName && specs.LinksEqual(s.EntityLinks, p.Params.EntityLinks) {
				out = append(out, c)
			}
		}
	}
	return out
}

// PartiallyMatch ranks candidates by how similar their rendered names are to
// the input string.
func (p EntityPathPattern) PartiallyMatch(candidates []specs.InstanceSpec, max int) []specs.InstanceSpec {
	if p.Scheme == nil {
		matched := p.Match(candidates)
		if len(matched) > max {
			matched = matched[:max]
		}
		return matched
	}
	return rankBySimilarity(p.Params.InputString, candidates, p.Scheme.InputStr, max)
}

func (p EntityPathPattern) InputStr() string { return p.Params.InputString }
