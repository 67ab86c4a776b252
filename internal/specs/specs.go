package specs

import (
	"fmt"
	"strings"
)

// Dunder separates entity links, element names and grains in qualified names.
const Dunder = "__"

// MetricTimeElementName is the name of the virtual time dimension that every
// measure exposes through its aggregation time dimension.
const MetricTimeElementName = "metric_time"

// InstanceSpec is a resolved reference to a semantic element.
//
// This is a sealed interface: only the spec types in this package implement it,
// which keeps type switches over specs exhaustive.
type InstanceSpec interface {
	// ElementName returns the name of the element in the semantic manifest.
	ElementName() string
	// Key returns a string that is equal for two specs iff they are equal.
	Key() string
	String() string

	instanceSpec()
}

// LinkableSpec is an InstanceSpec that can be used as a group-by item:
// a dimension, a time dimension or an entity.
type LinkableSpec interface {
	InstanceSpec
	// Links returns the entity path used to reach the element from a measure.
	Links() []string

	linkableSpec()
}

// DimensionSpec references a categorical dimension.
type DimensionSpec struct {
	Element     string
	EntityLinks []string
}

func (s DimensionSpec) ElementName() string { return s.Element }
func (s DimensionSpec) Links() []string     { return s.EntityLinks }
func (s DimensionSpec) Key() string         { return "dimension:" + joinKey(s.EntityLinks, s.Element) }
func (s DimensionSpec) String() string {
	return fmt.Sprintf("DimensionSpec(element_name=%q, entity_links=%s)", s.Element, formatLinks(s.EntityLinks))
}
func (DimensionSpec) instanceSpec() {}
func (DimensionSpec) linkableSpec() {}

// TimeDimensionSpec references a time dimension at a granularity, optionally
// with a date part extracted.
type TimeDimensionSpec struct {
	Element         string
	EntityLinks     []string
	TimeGranularity TimeGranularity
	DatePart        DatePart
}

func (s TimeDimensionSpec) ElementName() string { return s.Element }
func (s TimeDimensionSpec) Links() []string     { return s.EntityLinks }
func (s TimeDimensionSpec) Key() string {
	return "time_dimension:" + joinKey(s.EntityLinks, s.Element) + "|" + string(s.TimeGranularity) + "|" + string(s.DatePart)
}

// KeyWithoutGranularity identifies the spec with the granularity ignored.
func (s TimeDimensionSpec) KeyWithoutGranularity() string {
	return "time_dimension:" + joinKey(s.EntityLinks, s.Element) + "|" + string(s.DatePart)
}

func (s TimeDimensionSpec) String() string {
	if s.DatePart != DatePartNone {
		return fmt.Sprintf("TimeDimensionSpec(element_name=%q, entity_links=%s, time_granularity=%s, date_part=%s)",
			s.Element, formatLinks(s.EntityLinks), s.TimeGranularity, s.DatePart)
	}
	return fmt.Sprintf("TimeDimensionSpec(element_name=%q, entity_links=%s, time_granularity=%s)",
		s.Element, formatLinks(s.EntityLinks), s.TimeGranularity)
}

// WithGranularity returns a copy of the spec at a different granularity.
func (s TimeDimensionSpec) WithGranularity(g TimeGranularity) TimeDimensionSpec {
	s.EntityLinks = append([]string(nil), s.EntityLinks...)
	s.TimeGranularity = g
	return s
}

func (TimeDimensionSpec) instanceSpec() {}
func (TimeDimensionSpec) linkableSpec() {}

// EntitySpec references an entity, possibly through other entities.
type EntitySpec struct {
	Element     string
	EntityLinks []string
}

func (s EntitySpec) ElementName() string { return s.Element }
func (s EntitySpec) Links() []string     { return s.EntityLinks }
func (s EntitySpec) Key() string         { return "entity:" + joinKey(s.EntityLinks, s.Element) }
func (s EntitySpec) String() string {
	return fmt.Sprintf("EntitySpec(element_name=%q, entity_links=%s)", s.Element, formatLinks(s.EntityLinks))
}
func (EntitySpec) instanceSpec() {}
func (EntitySpec) linkableSpec() {}

// MeasureSpec references a measure.
type MeasureSpec struct {
	Element string
}

func (s MeasureSpec) ElementName() string { return s.Element }
func (s MeasureSpec) Key() string         { return "measure:" + s.Element }
func (s MeasureSpec) String() string      { return fmt.Sprintf("MeasureSpec(element_name=%q)", s.Element) }
func (MeasureSpec) instanceSpec()         {}

// MetricSpec references a metric.
type MetricSpec struct {
	Element string
}

func (s MetricSpec) ElementName() string { return s.Element }
func (s MetricSpec) Key() string         { return "metric:" + s.Element }
func (s MetricSpec) String() string      { return fmt.Sprintf("MetricSpec(element_name=%q)", s.Element) }
func (MetricSpec) instanceSpec()         {}

// MetadataSpec references a bookkeeping column added by the query plan.
type MetadataSpec struct {
	Element string
}

func (s MetadataSpec) ElementName() string { return s.Element }
func (s MetadataSpec) Key() string         { return "metadata:" + s.Element }
func (s MetadataSpec) String() string      { return fmt.Sprintf("MetadataSpec(element_name=%q)", s.Element) }
func (MetadataSpec) instanceSpec()         {}

// Equal reports whether two specs are the same.
func Equal(a, b InstanceSpec) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// LinksEqual reports whether two entity paths are identical.
func LinksEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// QualifiedName returns the dunder-joined name of a linkable spec: entity links,
// element name and, for time dimensions, the grain or an extract_<date_part> suffix.
func QualifiedName(spec LinkableSpec) string {
	items := append([]string(nil), spec.Links()...)
	items = append(items, spec.ElementName())
	if td, ok := spec.(TimeDimensionSpec); ok {
		if td.DatePart != DatePartNone {
			items = append(items, DatePartSuffix(td.DatePart))
		} else {
			items = append(items, string(td.TimeGranularity))
		}
	}
	return strings.Join(items, Dunder)
}

// DatePartSuffix is the final name component used for a time dimension with a date part.
func DatePartSuffix(p DatePart) string {
	return "extract_" + string(p)
}

func joinKey(links []string, element string) string {
	return strings.Join(links, ".") + "|" + element
}

func formatLinks(links []string) string {
	quoted := make([]string, len(links))
	for i, l := range links {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
