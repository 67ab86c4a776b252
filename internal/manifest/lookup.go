package manifest

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru"

	"github.com/roach88/metricq/internal/specs"
)

// MaxJoinHops bounds how many entity links a linkable spec may carry.
const MaxJoinHops = 2

// DefaultMemoSize is the number of per-measure candidate lists kept by a Lookup.
const DefaultMemoSize = 256

// Lookup is a read-only index over a Manifest.
//
// A Lookup never mutates the manifest and is safe for concurrent use. The
// memo of group-by candidates per measure is an LRU cache guarded by its own
// lock.
type Lookup struct {
	manifest Manifest

	metrics       map[string]*Metric
	metricOrder   []string
	models        map[string]*SemanticModel
	measureModels map[string]*SemanticModel
	measures      map[string]*Measure
	savedQueries  map[string]*SavedQuery

	memo *lru.Cache
}

// LookupOption configures a Lookup.
type LookupOption func(*lookupConfig)

type lookupConfig struct {
	memoSize int
}

// WithMemoSize overrides DefaultMemoSize.
func WithMemoSize(n int) LookupOption {
	return func(c *lookupConfig) {
		c.memoSize = n
	}
}

// NewLookup indexes m. The manifest is expected to have passed structural
// validation; duplicate names keep their first definition.
func NewLookup(m Manifest, opts ...LookupOption) (*Lookup, error) {
	cfg := lookupConfig{memoSize: DefaultMemoSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	memo, err := lru.New(cfg.memoSize)
	if err != nil {
		return nil, fmt.Errorf("create candidate memo: %w", err)
	}

	l := &Lookup{
		manifest:      m,
		metrics:       make(map[string]*Metric, len(m.Metrics)),
		models:        make(map[string]*SemanticModel, len(m.SemanticModels)),
		measureModels: make(map[string]*SemanticModel),
		measures:      make(map[string]*Measure),
		savedQueries:  make(map[string]*SavedQuery, len(m.SavedQueries)),
		memo:          memo,
	}
	for i := range m.SemanticModels {
		model := &l.manifest.SemanticModels[i]
		if _, ok := l.models[model.Name]; ok {
			continue
		}
		l.models[model.Name] = model
		for j := range model.Measures {
			measure := &model.Measures[j]
			if _, ok := l.measures[measure.Name]; ok {
				continue
			}
			l.measures[measure.Name] = measure
			l.measureModels[measure.Name] = model
		}
	}
	for i := range l.manifest.Metrics {
		metric := &l.manifest.Metrics[i]
		if _, ok := l.metrics[metric.Name]; ok {
			continue
		}
		l.metrics[metric.Name] = metric
		l.metricOrder = append(l.metricOrder, metric.Name)
	}
	for i := range l.manifest.SavedQueries {
		sq := &l.manifest.SavedQueries[i]
		if _, ok := l.savedQueries[sq.Name]; !ok {
			l.savedQueries[sq.Name] = sq
		}
	}
	return l, nil
}

// Manifest returns the indexed manifest.
func (l *Lookup) Manifest() Manifest {
	return l.manifest
}

// MetricReferences returns every metric name in manifest order.
func (l *Lookup) MetricReferences() []string {
	return append([]string(nil), l.metricOrder...)
}

// MetricSpecs returns a spec for every metric in manifest order.
func (l *Lookup) MetricSpecs() []specs.InstanceSpec {
	out := make([]specs.InstanceSpec, len(l.metricOrder))
	for i, name := range l.metricOrder {
		out[i] = specs.MetricSpec{Element: name}
	}
	return out
}

// Metric returns the metric with the given name.
func (l *Lookup) Metric(name string) (*Metric, bool) {
	m, ok := l.metrics[name]
	return m, ok
}

// MustMetric returns the named metric and panics when it does not exist.
// Callers use it only for names that were already resolved.
func (l *Lookup) MustMetric(name string) *Metric {
	m, ok := l.metrics[name]
	if !ok {
		panic(fmt.Sprintf("manifest: unknown metric %q", name))
	}
	return m
}

// SemanticModel returns the model with the given name.
func (l *Lookup) SemanticModel(name string) (*SemanticModel, bool) {
	m, ok := l.models[name]
	return m, ok
}

// Measure returns a measure and the model that defines it.
func (l *Lookup) Measure(name string) (*Measure, *SemanticModel, bool) {
	m, ok := l.measures[name]
	if !ok {
		return nil, nil, false
	}
	return m, l.measureModels[name], true
}

// SavedQuery returns the saved query with the given name.
func (l *Lookup) SavedQuery(name string) (*SavedQuery, bool) {
	sq, ok := l.savedQueries[name]
	return sq, ok
}

// SavedQueryNames returns the saved query names, sorted.
func (l *Lookup) SavedQueryNames() []string {
	names := make([]string, 0, len(l.savedQueries))
	for name := range l.savedQueries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InputMeasures returns the measures a metric reads directly. Ratio and
// derived metrics read other metrics and return nil.
func (l *Lookup) InputMeasures(metric *Metric) []MetricInputMeasure {
	switch metric.Type {
	case MetricTypeSimple, MetricTypeCumulative:
		if metric.TypeParams.Measure == nil {
			return nil
		}
		return []MetricInputMeasure{*metric.TypeParams.Measure}
	case MetricTypeConversion:
		p := metric.TypeParams.ConversionTypeParams
		if p == nil {
			return nil
		}
		return []MetricInputMeasure{p.BaseMeasure, p.ConversionMeasure}
	default:
		return nil
	}
}

// InputMetrics returns the metrics a ratio or derived metric is built from.
func (l *Lookup) InputMetrics(metric *Metric) []MetricInput {
	switch metric.Type {
	case MetricTypeRatio:
		var out []MetricInput
		if metric.TypeParams.Numerator != nil {
			out = append(out, *metric.TypeParams.Numerator)
		}
		if metric.TypeParams.Denominator != nil {
			out = append(out, *metric.TypeParams.Denominator)
		}
		return out
	case MetricTypeDerived:
		return metric.TypeParams.Metrics
	default:
		return nil
	}
}

// MeasureReferences returns every measure a metric depends on, following
// input metrics recursively. Order is depth-first and duplicates are removed.
func (l *Lookup) MeasureReferences(metric *Metric) []string {
	var out []string
	seen := make(map[string]bool)
	visiting := make(map[string]bool)
	var walk func(m *Metric)
	walk = func(m *Metric) {
		if visiting[m.Name] {
			return
		}
		visiting[m.Name] = true
		defer delete(visiting, m.Name)
		for _, in := range l.InputMeasures(m) {
			if !seen[in.Name] {
				seen[in.Name] = true
				out = append(out, in.Name)
			}
		}
		for _, in := range l.InputMetrics(m) {
			if child, ok := l.metrics[in.Name]; ok {
				walk(child)
			}
		}
	}
	walk(metric)
	return out
}

// AggTimeDimension returns the time dimension a measure aggregates over.
func (l *Lookup) AggTimeDimension(measureName string) (*Dimension, bool) {
	measure, model, ok := l.Measure(measureName)
	if !ok {
		return nil, false
	}
	name := measure.AggTimeDimension
	if name == "" && model.Defaults != nil {
		name = model.Defaults.AggTimeDimension
	}
	if name == "" {
		return nil, false
	}
	for i := range model.Dimensions {
		d := &model.Dimensions[i]
		if d.Name == name && d.Type == DimensionTypeTime {
			return d, true
		}
	}
	return nil, false
}

// LocalEntityLinks returns the entities through which the model's own
// dimensions are addressed: its primary, unique and natural entities.
func LocalEntityLinks(model *SemanticModel) []string {
	var out []string
	for _, e := range model.Entities {
		if e.Type.IdentifiesRows() {
			out = append(out, e.Name)
		}
	}
	return out
}

// LinkableSpecsForMeasure returns every group-by item available to a query
// of the measure: metric_time, the model's own elements and elements of
// models reachable through up to MaxJoinHops entity joins.
//
// The result is memoised per measure. Callers must not modify it.
func (l *Lookup) LinkableSpecsForMeasure(measureName string) []specs.LinkableSpec {
	if cached, ok := l.memo.Get(measureName); ok {
		return cached.([]specs.LinkableSpec)
	}
	_, model, ok := l.Measure(measureName)
	if !ok {
		return nil
	}

	var out []specs.LinkableSpec
	if aggTime, ok := l.AggTimeDimension(measureName); ok && aggTime.Granularity().IsValid() {
		out = append(out, timeDimensionSpecs(specs.MetricTimeElementName, nil, aggTime.Granularity())...)
	}
	out = append(out, l.reachableSpecs(model)...)
	out = specs.DedupeLinkable(out)

	l.memo.Add(measureName, out)
	return out
}

// LinkableSpecsForNoMetricsQuery returns the group-by items that can be
// queried without any metric: metric_time at every grain and every model's
// reachable elements.
func (l *Lookup) LinkableSpecsForNoMetricsQuery() []specs.LinkableSpec {
	const key = "\x00no-metrics"
	if cached, ok := l.memo.Get(key); ok {
		return cached.([]specs.LinkableSpec)
	}
	out := timeDimensionSpecs(specs.MetricTimeElementName, nil, specs.GranularityDay)
	for i := range l.manifest.SemanticModels {
		out = append(out, l.reachableSpecs(&l.manifest.SemanticModels[i])...)
	}
	out = specs.DedupeLinkable(out)
	l.memo.Add(key, out)
	return out
}

// reachableSpecs lists the local and joined elements of a model.
func (l *Lookup) reachableSpecs(model *SemanticModel) []specs.LinkableSpec {
	var out []specs.LinkableSpec

	for _, e := range model.Entities {
		out = append(out, specs.EntitySpec{Element: e.Name})
	}
	for _, link := range LocalEntityLinks(model) {
		out = append(out, elementSpecs(model, []string{link}, link)...)
	}

	visited := map[string]bool{model.Name: true}
	l.appendJoined(&out, model, nil, visited)
	return out
}

// appendJoined walks entity joins from model, appending the elements of every
// joined model with the accumulated entity path.
func (l *Lookup) appendJoined(out *[]specs.LinkableSpec, from *SemanticModel, path []string, visited map[string]bool) {
	if len(path) >= MaxJoinHops {
		return
	}
	for _, e := range from.Entities {
		if len(path) > 0 && e.Name == path[len(path)-1] {
			continue
		}
		for i := range l.manifest.SemanticModels {
			target := &l.manifest.SemanticModels[i]
			if visited[target.Name] || !modelIdentifiedBy(target, e.Name) {
				continue
			}
			links := append(append([]string(nil), path...), e.Name)
			*out = append(*out, elementSpecs(target, links, e.Name)...)

			visited[target.Name] = true
			l.appendJoined(out, target, links, visited)
			delete(visited, target.Name)
		}
	}
}

func modelIdentifiedBy(model *SemanticModel, entity string) bool {
	for _, e := range model.Entities {
		if e.Name == entity && e.Type.IdentifiesRows() {
			return true
		}
	}
	return false
}

// elementSpecs lists the dimensions, time dimensions and entities of model
// addressed through links. The entity named by joinEntity is not repeated.
func elementSpecs(model *SemanticModel, links []string, joinEntity string) []specs.LinkableSpec {
	var out []specs.LinkableSpec
	for _, d := range model.Dimensions {
		switch d.Type {
		case DimensionTypeCategorical:
			out = append(out, specs.DimensionSpec{Element: d.Name, EntityLinks: cloneLinks(links)})
		case DimensionTypeTime:
			if d.Granularity().IsValid() {
				out = append(out, timeDimensionSpecs(d.Name, links, d.Granularity())...)
			}
		}
	}
	for _, e := range model.Entities {
		if e.Name == joinEntity {
			continue
		}
		out = append(out, specs.EntitySpec{Element: e.Name, EntityLinks: cloneLinks(links)})
	}
	return out
}

// timeDimensionSpecs lists a time dimension at every grain at or above its
// defined grain, then with every date part that can be extracted at that grain.
func timeDimensionSpecs(element string, links []string, grain specs.TimeGranularity) []specs.LinkableSpec {
	var out []specs.LinkableSpec
	for _, g := range specs.GranularitiesAtOrAbove(grain) {
		out = append(out, specs.TimeDimensionSpec{
			Element:         element,
			EntityLinks:     cloneLinks(links),
			TimeGranularity: g,
		})
	}
	for _, part := range specs.AllDateParts {
		if part.Order() < grain.Order() {
			continue
		}
		out = append(out, specs.TimeDimensionSpec{
			Element:         element,
			EntityLinks:     cloneLinks(links),
			TimeGranularity: grain,
			DatePart:        part,
		})
	}
	return out
}

func cloneLinks(links []string) []string {
	if len(links) == 0 {
		return nil
	}
	return append([]string(nil), links...)
}
