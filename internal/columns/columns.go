// Package columns maps resolved specs to the warehouse columns that hold
// them and builds the select columns of multi-source joins.
package columns

import (
	"github.com/roach88/metricq/internal/specs"
	"github.com/roach88/metricq/internal/sqlexpr"
)

// Association ties a spec to a column name.
type Association struct {
	ColumnName string
}

// Resolver names the columns that hold each kind of spec. An entity may be
// stored in more than one column, e.g. a natural key and a surrogate key.
type Resolver interface {
	Measure(specs.MeasureSpec) Association
	Dimension(specs.DimensionSpec) Association
	TimeDimension(specs.TimeDimensionSpec) Association
	Entity(specs.EntitySpec) []Association
	Metric(specs.MetricSpec) Association
	Metadata(specs.MetadataSpec) Association
}

// DunderResolver names linkable columns by their dunder-qualified name,
// e.g. listing__country_latest or metric_time__extract_year, and every other
// column by its element name.
type DunderResolver struct{}

var _ Resolver = DunderResolver{}

func (DunderResolver) Measure(s specs.MeasureSpec) Association { return Association{ColumnName: s.Element} }
func (DunderResolver) Metric(s specs.MetricSpec) Association   { return Association{ColumnName: s.Element} }

func (DunderResolver) Metadata(s specs.MetadataSpec) Association {
	return Association{ColumnName: s.Element}
}

func (DunderResolver) Dimension(s specs.DimensionSpec) Association {
	return Association{ColumnName: specs.QualifiedName(s)}
}

func (DunderResolver) TimeDimension(s specs.TimeDimensionSpec) Association {
	return Association{ColumnName: specs.QualifiedName(s)}
}

func (DunderResolver) Entity(s specs.EntitySpec) []Association {
	return []Association{{ColumnName: specs.QualifiedName(s)}}
}

// SelectColumnSet holds select columns grouped by the kind of spec they
// came from.
type SelectColumnSet struct {
	Dimensions     []sqlexpr.SelectColumn
	TimeDimensions []sqlexpr.SelectColumn
	Entities       []sqlexpr.SelectColumn
}

// AsSlice returns dimension, then time dimension, then entity columns.
func (s SelectColumnSet) AsSlice() []sqlexpr.SelectColumn {
	out := make([]sqlexpr.SelectColumn, 0, len(s.Dimensions)+len(s.TimeDimensions)+len(s.Entities))
	out = append(out, s.Dimensions...)
	out = append(out, s.TimeDimensions...)
	return append(out, s.Entities...)
}

// CreateSelectCoalescedColumns selects every linkable spec of set from all
// of aliases, coalescing same-named columns:
//
//	dimensions: [is_instant], aliases: [a, b]
//	->  COALESCE(a.is_instant, b.is_instant) AS is_instant
//
// Column order follows spec order within each kind. It panics when aliases
// is empty.
func CreateSelectCoalescedColumns(r Resolver, aliases []string, set specs.InstanceSpecSet) SelectColumnSet {
	var out SelectColumnSet
	for _, d := range set.Dimensions {
		out.Dimensions = append(out.Dimensions, coalesced(aliases, r.Dimension(d)))
	}
	for _, td := range set.TimeDimensions {
		out.TimeDimensions = append(out.TimeDimensions, coalesced(aliases, r.TimeDimension(td)))
	}
	for _, e := range set.Entities {
		for _, a := range r.Entity(e) {
			out.Entities = append(out.Entities, coalesced(aliases, a))
		}
	}
	return out
}

func coalesced(aliases []string, a Association) sqlexpr.SelectColumn {
	return sqlexpr.SelectColumn{Expr: sqlexpr.CoalescedColumn(aliases, a.ColumnName), Alias: a.ColumnName}
}

// CreateColumnAssociations lists the columns of every spec in set: measures,
// dimensions, time dimensions, entities, metrics, then metadata.
func CreateColumnAssociations(r Resolver, set specs.InstanceSpecSet) []Association {
	var out []Association
	for _, m := range set.Measures {
		out = append(out, r.Measure(m))
	}
	for _, d := range set.Dimensions {
		out = append(out, r.Dimension(d))
	}
	for _, td := range set.TimeDimensions {
		out = append(out, r.TimeDimension(td))
	}
	for _, e := range set.Entities {
		out = append(out, r.Entity(e)...)
	}
	for _, m := range set.Metrics {
		out = append(out, r.Metric(m))
	}
	for _, m := range set.Metadata {
		out = append(out, r.Metadata(m))
	}
	return out
}

// SelectOnlyLinkableSpecs drops measures, metrics and metadata from set.
func SelectOnlyLinkableSpecs(set specs.InstanceSpecSet) specs.InstanceSpecSet {
	return specs.InstanceSpecSet{
		Dimensions:     set.Dimensions,
		TimeDimensions: set.TimeDimensions,
		Entities:       set.Entities,
	}
}
