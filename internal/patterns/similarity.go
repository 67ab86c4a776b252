package patterns

import (
	"sort"

	"github.com/xrash/smetrics"

	"github.com/roach88/metricq/internal/specs"
)

// Jaro-Winkler tuning; these are the values the algorithm was published with.
const (
	jaroWinklerBoostThreshold = 0.7
	jaroWinklerPrefixSize     = 4
)

// Similarity scores two strings between 0 (unrelated) and 1 (equal).
func Similarity(a, b string) float64 {
	return smetrics.JaroWinkler(a, b, jaroWinklerBoostThreshold, jaroWinklerPrefixSize)
}

type scored struct {
	spec  specs.InstanceSpec
	score float64
}

// rankBySimilarity orders the renderable candidates by similarity to input,
// best first, and returns at most max. Ties keep candidate order.
func rankBySimilarity(
	input string,
	candidates []specs.InstanceSpec,
	render func(specs.InstanceSpec) (string, bool),
	max int,
) []specs.InstanceSpec {
	var ranked []scored
	seen := make(map[string]struct{})
	for _, c := range candidates {
		name, ok := render(c)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		ranked = append(ranked, scored{spec: c, score: Similarity(input, name)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]specs.InstanceSpec, len(ranked))
	for i, r := range ranked {
		out[i] = r.spec
	}
	return out
}

// SuggestStrings ranks plain strings by similarity to input.
func SuggestStrings(input string, candidates []string, max int) []string {
	type scoredString struct {
		s     string
		score float64
	}
	ranked := make([]scoredString, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scoredString{s: c, score: Similarity(input, c)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.s
	}
	return out
}
