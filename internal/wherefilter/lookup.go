package wherefilter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/metricq/internal/issues"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
)

// Location identifies where a filter is written: on a metric, or on a query
// of a set of metrics. MetricRefs is always sorted.
type Location struct {
	MetricRefs []string
}

// LocationForQuery is the location of a query-level filter.
func LocationForQuery(metrics []string) Location {
	refs := append([]string(nil), metrics...)
	sort.Strings(refs)
	return Location{MetricRefs: refs}
}

// LocationForMetric is the location of a filter defined on a metric, one of
// its input measures, or the input that links it to a parent metric.
func LocationForMetric(metric string) Location {
	return Location{MetricRefs: []string{metric}}
}

func (l Location) String() string {
	return "WhereFilterLocation(" + resolution.FormatList(l.MetricRefs) + ")"
}

// LookupKey identifies one resolved call at one location.
type LookupKey struct {
	Location Location
	Call     specs.CallParameterSet
}

func (k LookupKey) id() string {
	return strings.Join(k.Location.MetricRefs, ",") + "#" + k.Call.Key()
}

func (k LookupKey) String() string {
	return k.Location.String() + " " + k.Call.String()
}

// SpecResolution records the spec a call resolved to and the path through the
// DAG that resolved it.
type SpecResolution struct {
	Key  LookupKey
	Path resolution.Path
	Spec specs.LinkableSpec
}

// WithPathPrefix prepends n to the resolution path.
func (r SpecResolution) WithPathPrefix(n *resolution.Node) SpecResolution {
	r.Path = r.Path.WithPrefix(n)
	return r
}

// Lookup holds every where-filter call resolved for a query and the issues
// found while resolving them. The zero value is empty.
type Lookup struct {
	resolutions []SpecResolution
	issues      issues.IssueSet
}

// NewLookup returns a lookup with the given resolutions and issues.
func NewLookup(resolutions []SpecResolution, issueSet issues.IssueSet) Lookup {
	return Lookup{resolutions: append([]SpecResolution(nil), resolutions...), issues: issueSet}
}

// SpecResolutions returns every resolution in the order they were found.
func (l Lookup) SpecResolutions() []SpecResolution {
	return append([]SpecResolution(nil), l.resolutions...)
}

func (l Lookup) Issues() issues.IssueSet { return l.issues }

// IsEmpty reports whether the lookup has neither resolutions nor issues.
func (l Lookup) IsEmpty() bool { return len(l.resolutions) == 0 && !l.issues.HasIssues() }

// GetSpecResolutions returns the resolutions recorded for key.
func (l Lookup) GetSpecResolutions(key LookupKey) []SpecResolution {
	id := key.id()
	var out []SpecResolution
	for _, r := range l.resolutions {
		if r.Key.id() == id {
			out = append(out, r)
		}
	}
	return out
}

// SpecResolutionExists reports whether key has been resolved.
func (l Lookup) SpecResolutionExists(key LookupKey) bool {
	id := key.id()
	for _, r := range l.resolutions {
		if r.Key.id() == id {
			return true
		}
	}
	return false
}

// CheckedResolvedSpec returns the spec for key. Callers must only ask for
// keys of a lookup without errors. A metric used twice in one DAG records the
// same resolution once per use; anything other than one distinct spec panics.
func (l Lookup) CheckedResolvedSpec(key LookupKey) specs.LinkableSpec {
	found := l.GetSpecResolutions(key)
	if len(found) == 0 {
		panic(fmt.Sprintf("wherefilter: no resolution for %s; all resolutions: %s",
			key, describeResolutions(l.resolutions)))
	}
	spec := found[0].Spec
	for _, r := range found {
		if r.Spec == nil {
			panic(fmt.Sprintf("wherefilter: resolution for %s has no spec", key))
		}
		if !specs.Equal(r.Spec, spec) {
			panic(fmt.Sprintf("wherefilter: conflicting resolutions for %s: %s",
				key, describeResolutions(found)))
		}
	}
	return spec
}

// Merge concatenates resolutions and issues.
func (l Lookup) Merge(others ...Lookup) Lookup {
	out := Lookup{resolutions: append([]SpecResolution(nil), l.resolutions...), issues: l.issues}
	for _, o := range others {
		out.resolutions = append(out.resolutions, o.resolutions...)
		out.issues = out.issues.Merge(o.issues)
	}
	return out
}

// WithPathPrefix prepends n to every resolution path and issue path.
func (l Lookup) WithPathPrefix(n *resolution.Node) Lookup {
	out := Lookup{resolutions: make([]SpecResolution, len(l.resolutions)), issues: l.issues.WithPathPrefix(n)}
	for i, r := range l.resolutions {
		out.resolutions[i] = r.WithPathPrefix(n)
	}
	return out
}

func describeResolutions(rs []SpecResolution) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		spec := "<nil>"
		if r.Spec != nil {
			spec = r.Spec.String()
		}
		parts[i] = r.Key.String() + " -> " + spec
	}
	return "[" + strings.Join(parts, "; ") + "]"
}
