package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/metricq/internal/issues"
	"github.com/roach88/metricq/internal/naming"
	"github.com/roach88/metricq/internal/patterns"
	"github.com/roach88/metricq/internal/specs"
	"github.com/roach88/metricq/internal/wherefilter"
)

// MetricInput is a metric named in a query.
type MetricInput struct {
	Name    string
	pattern patterns.MetricPattern
}

// NewMetricInput parses a metric name. Names are case-insensitive.
func NewMetricInput(name string) MetricInput {
	return MetricInput{Name: name, pattern: patterns.NewMetricPattern(strings.TrimSpace(name))}
}

func (in MetricInput) UIDescription() string            { return in.Name }
func (in MetricInput) Pattern() patterns.SpecPattern    { return in.pattern }
func (in MetricInput) Renderer() patterns.InputRenderer { return naming.MetricScheme{} }

// MetricName is the lower-cased metric name the input refers to.
func (in MetricInput) MetricName() string { return in.pattern.Name }

// GroupByItemInput is one group-by string of a query: a GroupByInput when
// it follows a naming scheme, an InvalidStringInput otherwise.
type GroupByItemInput interface {
	issues.Input
	groupByItemInput()
}

// GroupByInput is a group-by item named in a query, parsed with the scheme
// it follows.
type GroupByInput struct {
	Name    string
	pattern patterns.SpecPattern
	scheme  naming.Scheme
}

// NewGroupByInput parses name with the first group-by scheme that accepts
// it. ok is false when no scheme does.
func NewGroupByInput(name string) (GroupByInput, bool) {
	scheme, ok := naming.SchemeFor(name, naming.GroupBySchemes)
	if !ok {
		return GroupByInput{}, false
	}
	p, err := scheme.SpecPattern(name)
	if err != nil {
		return GroupByInput{}, false
	}
	return GroupByInput{Name: name, pattern: p, scheme: scheme}, true
}

func (in GroupByInput) UIDescription() string         { return in.Name }
func (in GroupByInput) Pattern() patterns.SpecPattern { return in.pattern }
func (GroupByInput) groupByItemInput()                {}

func (in GroupByInput) Renderer() patterns.InputRenderer {
	if in.scheme == nil {
		return nil
	}
	return in.scheme
}

// InvalidStringInput is a string that could not be parsed into any input.
type InvalidStringInput struct {
	Input string
}

func (in InvalidStringInput) UIDescription() string { return in.Input }
func (InvalidStringInput) groupByItemInput()        {}

// OrderByInput is an order-by item. It matches whichever queried metric or
// group-by item one of its possible inputs selects.
type OrderByInput struct {
	Name           string
	PossibleInputs []issues.NamedInput
	Descending     bool
}

// NewOrderByInput parses an order-by string. A leading '-' sorts
// descending. The item may name a metric or a group-by item in any scheme.
func NewOrderByInput(name string) (OrderByInput, bool) {
	in := OrderByInput{Name: name}
	item := strings.TrimSpace(name)
	if strings.HasPrefix(item, "-") {
		in.Descending = true
		item = strings.TrimSpace(item[1:])
	}
	if (naming.MetricScheme{}).FollowsScheme(item) {
		in.PossibleInputs = append(in.PossibleInputs, NewMetricInput(item))
	}
	if gb, ok := NewGroupByInput(item); ok {
		in.PossibleInputs = append(in.PossibleInputs, gb)
		if call, err := wherefilter.ParseCall(item); err == nil && call.Descending {
			in.Descending = true
		}
	}
	return in, len(in.PossibleInputs) > 0
}

func (in OrderByInput) UIDescription() string { return in.Name }

// Pattern matches whatever any of the possible inputs matches.
func (in OrderByInput) Pattern() patterns.SpecPattern {
	union := patterns.UnionPattern{Patterns: make([]patterns.SpecPattern, len(in.PossibleInputs))}
	for i, possible := range in.PossibleInputs {
		union.Patterns[i] = possible.Pattern()
	}
	return union
}

// LimitInput is the query limit. Nil means no limit.
type LimitInput struct {
	Limit *int
}

func (in LimitInput) UIDescription() string {
	if in.Limit == nil {
		return "None"
	}
	return strconv.Itoa(*in.Limit)
}

// FilterInput is the query's where-filter intersection.
type FilterInput struct {
	Filter specs.WhereFilterIntersection
}

func (in FilterInput) UIDescription() string {
	return "WhereFilter(" + quoteList(in.Filter.Templates()) + ")"
}

// QueryInput is every input of one query. GroupBys keeps the order the
// items were given in, unparseable ones included.
type QueryInput struct {
	Metrics  []MetricInput
	GroupBys []GroupByItemInput
	Filter   FilterInput
	OrderBys []OrderByInput
	Limit    LimitInput
}

func (in QueryInput) UIDescription() string {
	metrics := make([]string, len(in.Metrics))
	for i, m := range in.Metrics {
		metrics[i] = m.UIDescription()
	}
	groupBys := make([]string, len(in.GroupBys))
	for i, g := range in.GroupBys {
		groupBys[i] = g.UIDescription()
	}
	return fmt.Sprintf("Query(%s, %s)", quoteList(metrics), quoteList(groupBys))
}

// MetricNames returns the lower-cased names of the queried metrics.
func (in QueryInput) MetricNames() []string {
	out := make([]string, len(in.Metrics))
	for i, m := range in.Metrics {
		out[i] = m.MetricName()
	}
	return out
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
