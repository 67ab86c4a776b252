package groupby

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/metricq/internal/issues"
	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/patterns"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
)

// Resolution is the outcome of resolving one group-by item. Spec is nil
// exactly when Issues has errors.
type Resolution struct {
	Spec   specs.LinkableSpec
	Issues issues.IssueSet
}

// AvailableItems lists the group-by items available at a node.
type AvailableItems struct {
	Specs  []specs.LinkableSpec
	Issues issues.IssueSet
}

// Resolver resolves group-by items for one DAG.
type Resolver struct {
	lookup *manifest.Lookup
	dag    *resolution.DAG
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger that receives push-down diagnostics at debug level.
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
	return r
}

// DAG returns the DAG the resolver works on.
func (r *Resolver) DAG() *resolution.DAG { return r.dag }

func (r *Resolver) pushDown(start *resolution.Node, sources ...patterns.SpecPattern) pushDownResult {
	v := &pushDown{lookup: r.lookup, dag: r.dag, sources: sources, logger: r.logger}
	return v.visit(start)
}

// ResolveMatchingItemForQuerying resolves a group-by item named in the query.
// Matches that differ only in grain resolve to the finest grain; anything
// else that matches more than one item is ambiguous.
func (r *Resolver) ResolveMatchingItemForQuerying(p patterns.SpecPattern) Resolution {
	result := r.pushDown(r.dag.Sink(), p)
	if result.candidates.IsEmpty() {
		return Resolution{Issues: result.issues}
	}
	result = result.filter(patterns.BaseTimeGrainPattern{})
	return r.single(result, resolution.NewPath(r.dag.Sink()))
}

// ResolveMatchingItemForWhereFilter resolves a where-filter call starting at
// node, the query or metric node that owns the filter. Paths in the returned
// issues start at node.
func (r *Resolver) ResolveMatchingItemForWhereFilter(p patterns.SpecPattern, node *resolution.Node) Resolution {
	result := r.pushDown(node, patterns.BaseTimeGrainPattern{}, p)
	if result.candidates.IsEmpty() {
		return Resolution{Issues: result.issues}
	}
	return r.single(result, resolution.NewPath(node))
}

func (r *Resolver) single(result pushDownResult, ambiguityPath resolution.Path) Resolution {
	if len(result.candidates.Specs) > 1 {
		return Resolution{Issues: result.issues.Add(issues.NewAmbiguousGroupByItem(result.candidates.Specs, ambiguityPath))}
	}
	if result.candidates.IsEmpty() {
		panic("groupby: grain reduction removed every candidate")
	}
	return Resolution{Spec: result.candidates.Specs[0], Issues: result.issues}
}

// ResolveAvailableItems lists every group-by item available at node, or at
// the sink when node is nil.
func (r *Resolver) ResolveAvailableItems(node *resolution.Node) AvailableItems {
	if node == nil {
		node = r.dag.Sink()
	}
	result := r.pushDown(node)
	return AvailableItems{Specs: result.candidates.Specs, Issues: result.issues}
}

// ResolveMetricTimeGrain returns the finest grain metric_time can be queried
// at for every metric in the DAG.
func (r *Resolver) ResolveMetricTimeGrain() (specs.TimeGranularity, error) {
	res := r.ResolveMatchingItemForQuerying(patterns.NewTimeDimensionPattern(specs.TimeDimensionCallParameterSet{
		TimeDimension: specs.MetricTimeElementName,
	}))
	td, ok := res.Spec.(specs.TimeDimensionSpec)
	if res.Spec == nil || !ok {
		return "", fmt.Errorf("resolve %s grain: %d issues", specs.MetricTimeElementName, res.Issues.Len())
	}
	return td.TimeGranularity, nil
}
