package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/metricq/internal/specs"
)

// Manifest is the parsed semantic layer: models, metrics and saved queries.
type Manifest struct {
	SemanticModels []SemanticModel `json:"semantic_models" yaml:"semantic_models"`
	Metrics        []Metric        `json:"metrics" yaml:"metrics"`
	SavedQueries   []SavedQuery    `json:"saved_queries,omitempty" yaml:"saved_queries"`
}

// SemanticModel is a logical table with entities, measures and dimensions.
type SemanticModel struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description"`
	Relation    string         `json:"relation,omitempty" yaml:"relation"`
	Defaults    *ModelDefaults `json:"defaults,omitempty" yaml:"defaults"`
	Entities    []Entity       `json:"entities,omitempty" yaml:"entities"`
	Measures    []Measure      `json:"measures,omitempty" yaml:"measures"`
	Dimensions  []Dimension    `json:"dimensions,omitempty" yaml:"dimensions"`
}

// ModelDefaults holds model-wide settings inherited by measures.
type ModelDefaults struct {
	AggTimeDimension string `json:"agg_time_dimension,omitempty" yaml:"agg_time_dimension"`
}

// EntityType classifies how an entity identifies rows of a model.
type EntityType string

const (
	EntityTypePrimary EntityType = "primary"
	EntityTypeUnique  EntityType = "unique"
	EntityTypeForeign EntityType = "foreign"
	EntityTypeNatural EntityType = "natural"
)

// IsValid reports whether t is a known entity type.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypePrimary, EntityTypeUnique, EntityTypeForeign, EntityTypeNatural:
		return true
	}
	return false
}

// IdentifiesRows reports whether an entity of this type can be joined to.
func (t EntityType) IdentifiesRows() bool {
	return t == EntityTypePrimary || t == EntityTypeUnique || t == EntityTypeNatural
}

// Entity is a join key of a semantic model.
type Entity struct {
	Name string     `json:"name" yaml:"name"`
	Type EntityType `json:"type" yaml:"type"`
	Expr string     `json:"expr,omitempty" yaml:"expr"`
}

// Measure is an aggregatable expression of a semantic model.
type Measure struct {
	Name             string `json:"name" yaml:"name"`
	Agg              string `json:"agg" yaml:"agg"`
	Expr             string `json:"expr,omitempty" yaml:"expr"`
	AggTimeDimension string `json:"agg_time_dimension,omitempty" yaml:"agg_time_dimension"`
}

// DimensionType distinguishes categorical and time dimensions.
type DimensionType string

const (
	DimensionTypeCategorical DimensionType = "categorical"
	DimensionTypeTime        DimensionType = "time"
)

// Dimension is a group-by-capable column of a semantic model.
type Dimension struct {
	Name       string               `json:"name" yaml:"name"`
	Type       DimensionType        `json:"type" yaml:"type"`
	Expr       string               `json:"expr,omitempty" yaml:"expr"`
	TypeParams *DimensionTypeParams `json:"type_params,omitempty" yaml:"type_params"`
}

// DimensionTypeParams carries time-dimension settings.
type DimensionTypeParams struct {
	TimeGranularity specs.TimeGranularity `json:"time_granularity,omitempty" yaml:"time_granularity"`
}

// Granularity returns the defined grain of a time dimension, or "" when unset.
func (d Dimension) Granularity() specs.TimeGranularity {
	if d.TypeParams == nil {
		return ""
	}
	return d.TypeParams.TimeGranularity
}

// MetricType is the kind of a metric.
type MetricType string

const (
	MetricTypeSimple     MetricType = "simple"
	MetricTypeRatio      MetricType = "ratio"
	MetricTypeCumulative MetricType = "cumulative"
	MetricTypeDerived    MetricType = "derived"
	MetricTypeConversion MetricType = "conversion"
)

// IsValid reports whether t is a known metric type.
func (t MetricType) IsValid() bool {
	switch t {
	case MetricTypeSimple, MetricTypeRatio, MetricTypeCumulative, MetricTypeDerived, MetricTypeConversion:
		return true
	}
	return false
}

// Metric is a named computation over measures or other metrics.
type Metric struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description"`
	Type        MetricType       `json:"type" yaml:"type"`
	TypeParams  MetricTypeParams `json:"type_params" yaml:"type_params"`
	Filter      FilterList       `json:"filter,omitempty" yaml:"filter"`
}

// MetricTypeParams holds the per-type settings of a metric. Which fields are
// meaningful depends on the metric type.
type MetricTypeParams struct {
	Measure              *MetricInputMeasure   `json:"measure,omitempty" yaml:"measure"`
	Numerator            *MetricInput          `json:"numerator,omitempty" yaml:"numerator"`
	Denominator          *MetricInput          `json:"denominator,omitempty" yaml:"denominator"`
	Expr                 string                `json:"expr,omitempty" yaml:"expr"`
	Metrics              []MetricInput         `json:"metrics,omitempty" yaml:"metrics"`
	Window               string                `json:"window,omitempty" yaml:"window"`
	GrainToDate          specs.TimeGranularity `json:"grain_to_date,omitempty" yaml:"grain_to_date"`
	ConversionTypeParams *ConversionTypeParams `json:"conversion_type_params,omitempty" yaml:"conversion_type_params"`
}

// MetricInputMeasure references a measure from a metric, with an optional filter.
type MetricInputMeasure struct {
	Name   string     `json:"name" yaml:"name"`
	Filter FilterList `json:"filter,omitempty" yaml:"filter"`
	Alias  string     `json:"alias,omitempty" yaml:"alias"`
}

// UnmarshalYAML accepts either a bare measure name or a mapping.
func (m *MetricInputMeasure) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Name = node.Value
		return nil
	}
	type plain MetricInputMeasure
	return node.Decode((*plain)(m))
}

// MetricInput references another metric from a ratio or derived metric.
type MetricInput struct {
	Name          string                `json:"name" yaml:"name"`
	Filter        FilterList            `json:"filter,omitempty" yaml:"filter"`
	Alias         string                `json:"alias,omitempty" yaml:"alias"`
	OffsetWindow  string                `json:"offset_window,omitempty" yaml:"offset_window"`
	OffsetToGrain specs.TimeGranularity `json:"offset_to_grain,omitempty" yaml:"offset_to_grain"`
}

// UnmarshalYAML accepts either a bare metric name or a mapping.
func (m *MetricInput) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Name = node.Value
		return nil
	}
	type plain MetricInput
	return node.Decode((*plain)(m))
}

// HasOffset reports whether the input is time-shifted.
func (m MetricInput) HasOffset() bool {
	return m.OffsetWindow != "" || m.OffsetToGrain != ""
}

// ConversionTypeParams configures a conversion metric.
type ConversionTypeParams struct {
	BaseMeasure       MetricInputMeasure `json:"base_measure" yaml:"base_measure"`
	ConversionMeasure MetricInputMeasure `json:"conversion_measure" yaml:"conversion_measure"`
	Entity            string             `json:"entity" yaml:"entity"`
	Window            string             `json:"window,omitempty" yaml:"window"`
}

// SavedQuery is a named, reusable query definition.
type SavedQuery struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description"`
	QueryParams SavedQueryParams `json:"query_params" yaml:"query_params"`
}

// SavedQueryParams are the inputs of a saved query.
type SavedQueryParams struct {
	Metrics []string   `json:"metrics,omitempty" yaml:"metrics"`
	GroupBy []string   `json:"group_by,omitempty" yaml:"group_by"`
	Where   FilterList `json:"where,omitempty" yaml:"where"`
}

// FilterList is a list of where-filter templates. In YAML it may be written
// as a single string or as a sequence of strings.
type FilterList []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (f *FilterList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*f = nil
			return nil
		}
		*f = FilterList{node.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*f = out
		return nil
	default:
		return fmt.Errorf("line %d: filter must be a string or a list of strings", node.Line)
	}
}

// Intersection converts the templates into a filter intersection.
func (f FilterList) Intersection() specs.WhereFilterIntersection {
	return specs.NewWhereFilterIntersection(f...)
}
