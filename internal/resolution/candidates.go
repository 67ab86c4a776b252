package resolution

import (
	"github.com/roach88/metricq/internal/patterns"
	"github.com/roach88/metricq/internal/specs"
)

// CandidateSet is the group-by items available at a node, together with the
// paths to the measure (or model) nodes they came from. An empty set has no
// measure paths.
type CandidateSet struct {
	Specs        []specs.LinkableSpec
	MeasurePaths []Path
	PathFromLeaf Path
}

// IsEmpty reports whether there are no candidates.
func (c CandidateSet) IsEmpty() bool { return len(c.Specs) == 0 }

// Intersect returns the specs common to every set, in the order of the first
// set. The measure paths of all sets are kept. An empty intersection returns
// the empty set.
func Intersect(path Path, sets []CandidateSet) CandidateSet {
	if len(sets) == 0 {
		return CandidateSet{}
	}
	others := make([][]specs.LinkableSpec, 0, len(sets)-1)
	for _, s := range sets[1:] {
		others = append(others, s.Specs)
	}
	common := specs.IntersectLinkable(sets[0].Specs, others...)
	if len(common) == 0 {
		return CandidateSet{}
	}
	var measurePaths []Path
	for _, s := range sets {
		measurePaths = append(measurePaths, s.MeasurePaths...)
	}
	return CandidateSet{Specs: common, MeasurePaths: measurePaths, PathFromLeaf: path}
}

// Filter keeps the candidates that match p.
func (c CandidateSet) Filter(p patterns.SpecPattern) CandidateSet {
	matched := patterns.MatchLinkable(p, c.Specs)
	if len(matched) == 0 {
		return CandidateSet{}
	}
	return CandidateSet{Specs: matched, MeasurePaths: c.MeasurePaths, PathFromLeaf: c.PathFromLeaf}
}

// WithPathPrefix prefixes every path in the set with n.
func (c CandidateSet) WithPathPrefix(n *Node) CandidateSet {
	paths := make([]Path, len(c.MeasurePaths))
	for i, p := range c.MeasurePaths {
		paths[i] = p.WithPrefix(n)
	}
	return CandidateSet{Specs: c.Specs, MeasurePaths: paths, PathFromLeaf: c.PathFromLeaf.WithPrefix(n)}
}
