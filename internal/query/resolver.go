package query

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/metricq/internal/groupby"
	"github.com/roach88/metricq/internal/issues"
	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
	"github.com/roach88/metricq/internal/wherefilter"
)

// Resolver turns query inputs into a MetricFlowQuerySpec or a mapping from
// inputs to the issues they caused.
type Resolver struct {
	lookup    *manifest.Lookup
	validator *PostResolutionValidator
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for resolution diagnostics. The logger is
// passed on to the DAG builder and the item resolvers.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver returns a Resolver over lookup. The lookup is only read, so
// one Resolver may serve concurrent queries.
func NewResolver(lookup *manifest.Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:    lookup,
		validator: NewPostResolutionValidator(lookup),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the manifest lookup the resolver reads.
func (r *Resolver) Lookup() *manifest.Lookup { return r.lookup }

// ResolveQuery resolves in. Stages run in order and the first stage that
// leaves errors ends resolution, except that group-by items, order-by items
// and filters are all checked before giving up.
func (r *Resolver) ResolveQuery(in QueryInput) Resolution {
	queryNode := resolution.NewDetachedQueryNode(in.MetricNames(), in.Filter.Filter)

	// Metrics.
	var (
		metricSpecs []specs.MetricSpec
		metricIssue []issues.MappingItem
	)
	known := r.lookup.MetricSpecs()
	for _, m := range in.Metrics {
		matched := m.Pattern().Match(known)
		if len(matched) != 1 {
			metricIssue = append(metricIssue, issues.MappingItem{
				Input:  m,
				Issues: issues.NewIssueSet(issues.NewInvalidMetric(m.Name, r.lookup.MetricReferences(), resolution.NewPath(queryNode))),
			})
			continue
		}
		metricSpecs = append(metricSpecs, matched[0].(specs.MetricSpec))
	}
	mapping := issues.NewMapping(metricIssue...)

	// Limit.
	if in.Limit.Limit != nil && *in.Limit.Limit < 0 {
		mapping = mapping.Merge(issues.NewMapping(issues.MappingItem{
			Input:  in.Limit,
			Issues: issues.NewIssueSet(issues.NewInvalidLimit(*in.Limit.Limit, resolution.NewPath(queryNode))),
		}))
	}

	if mapping.HasErrors() {
		r.debug("query rejected before resolution", "query", in.UIDescription())
		return Resolution{Issues: mapping}
	}

	// Group-by items.
	metricNames := make([]string, len(metricSpecs))
	for i, m := range metricSpecs {
		metricNames[i] = m.Element
	}
	dag := resolution.NewBuilder(r.lookup, resolution.WithLogger(r.logger)).Build(metricNames, in.Filter.Filter)
	groupByResolver := groupby.NewResolver(r.lookup, dag, groupby.WithLogger(r.logger))

	var (
		groupBySpecs []specs.LinkableSpec
		groupByItems []issues.MappingItem
	)
	for _, item := range in.GroupBys {
		switch gb := item.(type) {
		case InvalidStringInput:
			groupByItems = append(groupByItems, issues.MappingItem{
				Input:  gb,
				Issues: issues.NewIssueSet(issues.NewGroupByItemParsing(gb.Input)),
			})
		case GroupByInput:
			res := groupByResolver.ResolveMatchingItemForQuerying(gb.Pattern())
			if res.Issues.HasIssues() {
				groupByItems = append(groupByItems, issues.MappingItem{Input: gb, Issues: res.Issues})
			}
			if res.Spec != nil {
				groupBySpecs = append(groupBySpecs, res.Spec)
			}
		}
	}
	mapping = mapping.Merge(issues.NewMapping(groupByItems...))

	// Order-by items.
	orderBys, orderByMapping := r.resolveOrderBys(in.OrderBys, metricSpecs, groupBySpecs, queryNode)
	mapping = mapping.Merge(orderByMapping)

	// Where filters.
	filterLookup := wherefilter.NewResolver(r.lookup, dag, wherefilter.WithLogger(r.logger)).ResolveLookup()
	mapping = mapping.Merge(issues.NewMapping(issues.MappingItem{Input: in.Filter, Issues: filterLookup.Issues()}))

	if mapping.HasErrors() {
		if r.logger.Enabled(context.Background(), slog.LevelDebug) {
			r.logger.Debug("query has resolution errors", "query", in.UIDescription(), "dag", dag.Text())
		}
		return Resolution{DAG: dag, FilterLookup: filterLookup, Issues: mapping}
	}

	// Whole-query validation.
	mapping = mapping.Merge(issues.NewMapping(issues.MappingItem{Input: in, Issues: r.validator.Validate(dag, groupBySpecs)}))
	if mapping.HasErrors() {
		return Resolution{DAG: dag, FilterLookup: filterLookup, Issues: mapping}
	}

	return Resolution{
		QuerySpec:    newQuerySpec(metricSpecs, groupBySpecs, orderBys, in.Limit.Limit, in.Filter.Filter, filterLookup),
		DAG:          dag,
		FilterLookup: filterLookup,
		Issues:       mapping,
	}
}

func (r *Resolver) resolveOrderBys(inputs []OrderByInput, metrics []specs.MetricSpec, groupBy []specs.LinkableSpec,
	queryNode *resolution.Node) ([]specs.OrderBySpec, issues.Mapping) {
	candidates := make([]specs.InstanceSpec, 0, len(metrics)+len(groupBy))
	for _, m := range metrics {
		candidates = append(candidates, m)
	}
	candidates = append(candidates, specs.ToInstanceSpecs(groupBy)...)

	var (
		out   []specs.OrderBySpec
		items []issues.MappingItem
	)
	for _, in := range inputs {
		matched := in.Pattern().Match(candidates)
		if len(matched) != 1 {
			items = append(items, issues.MappingItem{
				Input:  in,
				Issues: issues.NewIssueSet(issues.NewInvalidOrderByItem(in.Name, resolution.NewPath(queryNode))),
			})
			continue
		}
		out = append(out, specs.OrderBySpec{Spec: matched[0], Descending: in.Descending})
	}
	return out, issues.NewMapping(items...)
}

func (r *Resolver) debug(msg string, args ...any) {
	if r.logger.Enabled(context.Background(), slog.LevelDebug) {
		r.logger.Debug(msg, args...)
	}
}
