package patterns

import "github.com/roach88/metricq/internal/specs"

// MaxSuggestions is the number of near matches listed in error messages.
const MaxSuggestions = 6

// SpecPattern selects specs out of a candidate list.
type SpecPattern interface {
	// Match returns the candidates that match, in candidate order unless the
	// pattern documents otherwise. Match must not modify candidates.
	Match(candidates []specs.InstanceSpec) []specs.InstanceSpec
}

// PartialMatcher is implemented by patterns that can rank candidates which
// do not match exactly.
type PartialMatcher interface {
	PartiallyMatch(candidates []specs.InstanceSpec, max int) []specs.InstanceSpec
}

// InputDescriber is implemented by patterns that were parsed from a user
// string and can echo it back.
type InputDescriber interface {
	InputStr() string
}

// InputRenderer turns a spec into the string a user would have typed for it.
// Naming schemes implement this; the boolean is false for specs the scheme
// has no spelling for.
type InputRenderer interface {
	InputStr(spec specs.InstanceSpec) (string, bool)
}

// MatchesAny reports whether the pattern matches at least one candidate.
func MatchesAny(p SpecPattern, candidates []specs.InstanceSpec) bool {
	return len(p.Match(candidates)) > 0
}

// PartiallyMatch returns up to max candidates that are close to the pattern.
// Patterns without their own ranking fall back to the first max exact matches.
func PartiallyMatch(p SpecPattern, candidates []specs.InstanceSpec, max int) []specs.InstanceSpec {
	if pm, ok := p.(PartialMatcher); ok {
		return pm.PartiallyMatch(candidates, max)
	}
	matched := p.Match(candidates)
	if len(matched) > max {
		matched = matched[:max]
	}
	return matched
}

// InputStr returns the user input a pattern was built from, if any.
func InputStr(p SpecPattern) (string, bool) {
	if d, ok := p.(InputDescriber); ok {
		return d.InputStr(), true
	}
	return "", false
}

// MatchLinkable applies a pattern to linkable specs and returns the linkable
// matches. Non-linkable results are dropped.
func MatchLinkable(p SpecPattern, candidates []specs.LinkableSpec) []specs.LinkableSpec {
	return onlyLinkable(p.Match(specs.ToInstanceSpecs(candidates)))
}

// MatchAll applies the patterns in sequence, each narrowing the previous result.
func MatchAll(candidates []specs.LinkableSpec, ps ...SpecPattern) []specs.LinkableSpec {
	out := candidates
	for _, p := range ps {
		out = MatchLinkable(p, out)
	}
	return out
}

func onlyLinkable(in []specs.InstanceSpec) []specs.LinkableSpec {
	out := make([]specs.LinkableSpec, 0, len(in))
	for _, s := range in {
		if ls, ok := s.(specs.LinkableSpec); ok {
			out = append(out, ls)
		}
	}
	return out
}

// kind filters used by several patterns.

func dimensionsAndTimeDimensions(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	var out []specs.InstanceSpec
	for _, c := range candidates {
		switch c.(type) {
		case specs.DimensionSpec, specs.TimeDimensionSpec:
			out = append(out, c)
		}
	}
	return out
}

func timeDimensions(candidates []specs.InstanceSpec) []specs.TimeDimensionSpec {
	var out []specs.TimeDimensionSpec
	for _, c := range candidates {
		if td, ok := c.(specs.TimeDimensionSpec); ok {
			out = append(out, td)
		}
	}
	return out
}

func entities(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	var out []specs.InstanceSpec
	for _, c := range candidates {
		if _, ok := c.(specs.EntitySpec); ok {
			out = append(out, c)
		}
	}
	return out
}
