package wherefilter

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/metricq/internal/groupby"
	"github.com/roach88/metricq/internal/issues"
	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/patterns"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
)

// Resolver resolves the calls in every where filter reachable from a DAG's
// sink: query filters, metric filters, input measure filters and metric input
// filters.
type Resolver struct {
	lookup   *manifest.Lookup
	dag      *resolution.DAG
	resolver *groupby.Resolver
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for skipped and failed resolutions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver returns a Resolver over dag.
func NewResolver(lookup *manifest.Lookup, dag *resolution.DAG, opts ...Option) *Resolver {
	r := &Resolver{lookup: lookup, dag: dag, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(r)
	}
	r.resolver = groupby.NewResolver(lookup, dag, groupby.WithLogger(r.logger))
	return r
}

// ResolveLookup walks the DAG from the sink and returns every resolution.
// Resolution paths and issue paths start at the sink.
func (r *Resolver) ResolveLookup() Lookup {
	return r.visit(r.dag.Sink())
}

func (r *Resolver) visit(n *resolution.Node) Lookup {
	switch n.Kind {
	case resolution.KindMeasure, resolution.KindNoMetricsQuery:
		return Lookup{}
	case resolution.KindMetric:
		soFar := r.visitParents(n)
		return soFar.Merge(r.resolveFilters(n, soFar, LocationForMetric(n.Metric), r.metricFilters(n)))
	case resolution.KindQuery:
		soFar := r.visitParents(n)
		return soFar.Merge(r.resolveFilters(n, soFar, LocationForQuery(n.MetricsInQuery), n.Filter.Templates()))
	default:
		panic(fmt.Sprintf("wherefilter: unhandled node kind %v", n.Kind))
	}
}

func (r *Resolver) visitParents(n *resolution.Node) Lookup {
	var out Lookup
	for _, p := range r.dag.Parents(n) {
		out = out.Merge(r.visit(p).WithPathPrefix(n))
	}
	return out
}

// metricFilters returns the filters that apply at a metric node, in order:
// input measure filters, the metric's own filter, then the filter on the
// input that links the metric to its parent metric.
func (r *Resolver) metricFilters(n *resolution.Node) []string {
	metric := r.lookup.MustMetric(n.Metric)

	var out []string
	for _, in := range r.lookup.InputMeasures(metric) {
		out = append(out, in.Filter...)
	}
	out = append(out, metric.Filter...)
	if loc := n.InputLocation; loc != nil {
		inputs := r.lookup.InputMetrics(r.lookup.MustMetric(loc.ParentMetric))
		if loc.Index < 0 || loc.Index >= len(inputs) {
			panic(fmt.Sprintf("wherefilter: metric %q has no input %d", loc.ParentMetric, loc.Index))
		}
		out = append(out, inputs[loc.Index].Filter...)
	}
	return out
}

type pendingCall struct {
	call    specs.CallParameterSet
	pattern patterns.SpecPattern
}

func (r *Resolver) resolveFilters(n *resolution.Node, soFar Lookup, loc Location, templates []string) Lookup {
	path := resolution.NewPath(n)

	var found issues.IssueSet
	var pending []pendingCall
	queued := make(map[string]bool)
	for _, tmpl := range templates {
		sets, err := ParseCallParameterSets(tmpl)
		if err != nil {
			found = found.Add(issues.NewWhereFilterParsing(tmpl, err, path))
			continue
		}
		for _, call := range sets.All() {
			key := LookupKey{Location: loc, Call: call}
			if soFar.SpecResolutionExists(key) {
				r.debug("skipping resolved filter call", "call", call.String(), "location", loc.String())
				continue
			}
			if queued[key.id()] {
				continue
			}
			queued[key.id()] = true
			pending = append(pending, pendingCall{call: call, pattern: patterns.ForCallParameterSet(call)})
		}
	}

	var resolved []SpecResolution
	for _, p := range pending {
		res := r.resolver.ResolveMatchingItemForWhereFilter(p.pattern, n)
		found = found.Merge(res.Issues)
		if res.Spec == nil {
			r.debug("filter call did not resolve", "call", p.call.String(), "node", n.UIDescription())
			continue
		}
		resolved = append(resolved, SpecResolution{
			Key:  LookupKey{Location: loc, Call: p.call},
			Path: path,
			Spec: res.Spec,
		})
	}
	return NewLookup(resolved, found)
}

func (r *Resolver) debug(msg string, args ...any) {
	if r.logger.Enabled(context.Background(), slog.LevelDebug) {
		r.logger.Debug(msg, args...)
	}
}
