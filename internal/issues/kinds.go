package issues

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/patterns"
	"github.com/roach88/metricq/internal/resolution"
	"github.com/roach88/metricq/internal/specs"
)

// InvalidMetric is a queried metric name that matches no metric.
type InvalidMetric struct {
	base
	Metric     string
	Candidates []string
}

func NewInvalidMetric(metric string, candidates []string, path resolution.Path) InvalidMetric {
	return InvalidMetric{base: base{path: path}, Metric: metric, Candidates: candidates}
}

func (i InvalidMetric) UIDescription(Input) string {
	msg := fmt.Sprintf("'%s' does not match any of the known metrics.", i.Metric)
	if suggestions := patterns.SuggestStrings(i.Metric, i.Candidates, patterns.MaxSuggestions); len(suggestions) > 0 {
		msg += "\n\nSuggestions:\n" + indent(formatList(suggestions), "  ")
	}
	return msg
}

func (i InvalidMetric) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	return i
}

// InvalidLimit is a negative limit.
type InvalidLimit struct {
	base
	Limit int
}

func NewInvalidLimit(limit int, path resolution.Path) InvalidLimit {
	return InvalidLimit{base: base{path: path}, Limit: limit}
}

func (i InvalidLimit) UIDescription(Input) string {
	return fmt.Sprintf("The limit %d is not >= 0.", i.Limit)
}

func (i InvalidLimit) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	return i
}

// InvalidOrderByItem is an order-by item that is neither a queried metric nor
// a queried group-by item.
type InvalidOrderByItem struct {
	base
	Item string
}

func NewInvalidOrderByItem(item string, path resolution.Path) InvalidOrderByItem {
	return InvalidOrderByItem{base: base{path: path}, Item: item}
}

func (i InvalidOrderByItem) UIDescription(Input) string {
	return fmt.Sprintf("The order by item '%s' does not match any of the input query items.", i.Item)
}

func (i InvalidOrderByItem) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	return i
}

// NoMatchingGroupByItemsAtRoot means an input matched nothing available at a
// measure node (or, for queries without metrics, in any model).
type NoMatchingGroupByItemsAtRoot struct {
	base
	Candidates []specs.LinkableSpec
}

func NewNoMatchingGroupByItemsAtRoot(candidates []specs.LinkableSpec, path resolution.Path) NoMatchingGroupByItemsAtRoot {
	return NoMatchingGroupByItemsAtRoot{base: base{path: path}, Candidates: candidates}
}

// UIDescription lists the closest candidates when the input was a parsed
// name, and every candidate otherwise.
func (i NoMatchingGroupByItemsAtRoot) UIDescription(input Input) string {
	prefix := "The given input does not match any of the available group by items for " + i.lastNodeDescription() + "."
	if named, ok := input.(NamedInput); ok && named.Renderer() != nil {
		near := patterns.PartiallyMatch(named.Pattern(), specs.ToInstanceSpecs(i.Candidates), patterns.MaxSuggestions)
		if len(near) > 0 {
			linkable := make([]specs.LinkableSpec, 0, len(near))
			for _, s := range near {
				if ls, ok := s.(specs.LinkableSpec); ok {
					linkable = append(linkable, ls)
				}
			}
			return prefix + " Suggestions:\n" + formatList(renderSpecs(input, linkable))
		}
	}
	return prefix + " Available items:\n" + formatList(renderSpecs(input, i.Candidates))
}

func (i NoMatchingGroupByItemsAtRoot) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	return i
}

// NoCommonItemsInParents means every parent of a node had candidates, but no
// candidate was available to all of them.
type NoCommonItemsInParents struct {
	base
	ParentDescriptions  []string
	ParentCandidateSets []resolution.CandidateSet
}

func NewNoCommonItemsInParents(parents []*resolution.Node, sets []resolution.CandidateSet, path resolution.Path) NoCommonItemsInParents {
	descriptions := make([]string, len(parents))
	for i, p := range parents {
		descriptions[i] = p.UIDescription()
	}
	return NoCommonItemsInParents{base: base{path: path}, ParentDescriptions: descriptions, ParentCandidateSets: sets}
}

func (i NoCommonItemsInParents) UIDescription(input Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is built from %s. However, the given input does not match to a common item that is available to those parents:\n\n",
		i.lastNodeDescription(), strings.Join(i.ParentDescriptions, ", "))
	for _, set := range i.ParentCandidateSets {
		from := "?"
		if last := set.PathFromLeaf.Last(); last != nil {
			from = last.UIDescription()
		}
		fmt.Fprintf(&b, "  Matching items for: %s: %s\n", from, strings.Join(renderSpecs(input, set.Specs), ", "))
	}
	b.WriteString("\nFor time dimension inputs, please specify a time grain as ambiguous resolution will only allow " +
		"resolution when the parents have the same defined time grain.")
	return b.String()
}

func (i NoCommonItemsInParents) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	sets := make([]resolution.CandidateSet, len(i.ParentCandidateSets))
	for k, s := range i.ParentCandidateSets {
		sets[k] = s.WithPathPrefix(n)
	}
	i.ParentCandidateSets = sets
	return i
}

// NoCandidatesWithNoneDatePart means a metric that forbids date parts
// received only date-part candidates.
type NoCandidatesWithNoneDatePart struct {
	base
	Candidates []specs.LinkableSpec
}

func NewNoCandidatesWithNoneDatePart(candidates []specs.LinkableSpec, path resolution.Path) NoCandidatesWithNoneDatePart {
	return NoCandidatesWithNoneDatePart{base: base{path: path}, Candidates: candidates}
}

func (i NoCandidatesWithNoneDatePart) UIDescription(input Input) string {
	return i.lastNodeDescription() + " does not allow group-by-items with a date part in the query. Considered group by items:\n" +
		formatList(renderSpecs(input, i.Candidates)) + "\nwere excluded by this metric."
}

func (i NoCandidatesWithNoneDatePart) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	return i
}

// AmbiguousGroupByItem means an input matched more than one item after grain
// reduction.
type AmbiguousGroupByItem struct {
	base
	Candidates []specs.LinkableSpec
}

func NewAmbiguousGroupByItem(candidates []specs.LinkableSpec, path resolution.Path) AmbiguousGroupByItem {
	return AmbiguousGroupByItem{base: base{path: path}, Candidates: candidates}
}

func (i AmbiguousGroupByItem) UIDescription(input Input) string {
	return "The given input is ambiguous and can't be resolved. The input could match:\n" +
		formatList(renderSpecs(input, i.Candidates))
}

func (i AmbiguousGroupByItem) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	return i
}

// WhereFilterParsing is a filter template that could not be parsed.
type WhereFilterParsing struct {
	base
	Template string
	Err      error
}

func NewWhereFilterParsing(template string, err error, path resolution.Path) WhereFilterParsing {
	return WhereFilterParsing{base: base{path: path}, Template: template, Err: err}
}

func (i WhereFilterParsing) UIDescription(Input) string {
	return "Error parsing where filter:\n\n" +
		indent("'"+i.Template+"'", "  ") + "\n\n" +
		"Got exception:\n\n" +
		indent(i.Err.Error(), "  ")
}

func (i WhereFilterParsing) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	return i
}

// OffsetMetricRequiresMetricTime is a derived metric with time offsets queried
// without metric_time.
type OffsetMetricRequiresMetricTime struct {
	base
	Metric       string
	InputMetrics []manifest.MetricInput
}

func NewOffsetMetricRequiresMetricTime(metric string, inputs []manifest.MetricInput, path resolution.Path) OffsetMetricRequiresMetricTime {
	return OffsetMetricRequiresMetricTime{base: base{path: path}, Metric: metric, InputMetrics: inputs}
}

func (i OffsetMetricRequiresMetricTime) UIDescription(Input) string {
	inputs := make([]string, len(i.InputMetrics))
	for k, in := range i.InputMetrics {
		inputs[k] = describeMetricInput(in)
	}
	return fmt.Sprintf("The query includes a metric '%s' that specifies a time offset in input metrics: [%s]. "+
		"However, group-by-items do not include '%s'.", i.Metric, strings.Join(inputs, ", "), specs.MetricTimeElementName)
}

func (i OffsetMetricRequiresMetricTime) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	return i
}

func describeMetricInput(in manifest.MetricInput) string {
	var attrs []string
	if in.Alias != "" {
		attrs = append(attrs, "alias='"+in.Alias+"'")
	}
	if in.OffsetWindow != "" {
		attrs = append(attrs, "offset_window='"+in.OffsetWindow+"'")
	}
	if in.OffsetToGrain != "" {
		attrs = append(attrs, "offset_to_grain='"+string(in.OffsetToGrain)+"'")
	}
	sort.Strings(attrs)
	if len(attrs) == 0 {
		return "MetricInput(name='" + in.Name + "')"
	}
	return "MetricInput(name='" + in.Name + "', " + strings.Join(attrs, ", ") + ")"
}

// CumulativeMetricRequiresMetricTime is a windowed or grain-to-date
// cumulative metric queried without metric_time.
type CumulativeMetricRequiresMetricTime struct {
	base
	Metric string
}

func NewCumulativeMetricRequiresMetricTime(metric string, path resolution.Path) CumulativeMetricRequiresMetricTime {
	return CumulativeMetricRequiresMetricTime{base: base{path: path}, Metric: metric}
}

func (i CumulativeMetricRequiresMetricTime) UIDescription(Input) string {
	return fmt.Sprintf("The query includes a cumulative metric '%s' but the group-by-items do not include '%s'",
		i.Metric, specs.MetricTimeElementName)
}

func (i CumulativeMetricRequiresMetricTime) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	return i
}

// GroupByItemParsing is a group-by string that follows no naming scheme.
type GroupByItemParsing struct {
	base
	Input string
}

func NewGroupByItemParsing(input string) GroupByItemParsing {
	return GroupByItemParsing{Input: input}
}

func (i GroupByItemParsing) UIDescription(Input) string {
	return fmt.Sprintf("The group-by-item '%s' does not match any of the known formats.", i.Input)
}

func (i GroupByItemParsing) WithPathPrefix(n *resolution.Node) Issue {
	i.base = i.base.prefixed(n)
	return i
}
