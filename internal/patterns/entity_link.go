package patterns

import (
	"fmt"
	"strings"

	"github.com/roach88/metricq/internal/specs"
)

// ParameterSetField names a spec attribute an EntityLinkPattern compares.
type ParameterSetField string

const (
	FieldElementName     ParameterSetField = "element_name"
	FieldEntityLinks     ParameterSetField = "entity_links"
	FieldTimeGranularity ParameterSetField = "time_granularity"
	FieldDatePart        ParameterSetField = "date_part"
)

// EntityLinkParameterSet holds the values to compare and which of them count.
// A spec that does not carry a compared attribute (a dimension has no grain)
// compares as the zero value.
type EntityLinkParameterSet struct {
	Fields          []ParameterSetField
	ElementName     string
	EntityLinks     []string
	TimeGranularity specs.TimeGranularity
	DatePart        specs.DatePart
}

func (p EntityLinkParameterSet) value(f ParameterSetField) string {
	switch f {
	case FieldElementName:
		return p.ElementName
	case FieldEntityLinks:
		return strings.Join(p.EntityLinks, specs.Dunder)
	case FieldTimeGranularity:
		return string(p.TimeGranularity)
	case FieldDatePart:
		return string(p.DatePart)
	default:
		panic(fmt.Sprintf("patterns: unhandled field %q", f))
	}
}

func specValue(s specs.InstanceSpec, f ParameterSetField) string {
	switch f {
	case FieldElementName:
		return s.ElementName()
	case FieldEntityLinks:
		if ls, ok := s.(specs.LinkableSpec); ok {
			return strings.Join(ls.Links(), specs.Dunder)
		}
		return ""
	case FieldTimeGranularity:
		if td, ok := s.(specs.TimeDimensionSpec); ok {
			return string(td.TimeGranularity)
		}
		return ""
	case FieldDatePart:
		if td, ok := s.(specs.TimeDimensionSpec); ok {
			return string(td.DatePart)
		}
		return ""
	default:
		panic(fmt.Sprintf("patterns: unhandled field %q", f))
	}
}

// EntityLinkPattern matches specs whose selected attributes equal the
// parameter set's.
type EntityLinkPattern struct {
	Params EntityLinkParameterSet
}

// Match keeps candidates that agree on every field in Params.Fields.
func (p EntityLinkPattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	var out []specs.InstanceSpec
	for _, c := range candidates {
		if p.matches(c) {
			out = append(out, c)
		}
	}
	return out
}

func (p EntityLinkPattern) matches(s specs.InstanceSpec) bool {
	for _, f := range p.Params.Fields {
		if specValue(s, f) != p.Params.value(f) {
			return false
		}
	}
	return true
}

// DimensionPattern matches dimensions and time dimensions by name and entity path.
type DimensionPattern struct {
	EntityLinkPattern
}

// NewDimensionPattern builds a pattern from a Dimension(...) call.
func NewDimensionPattern(call specs.DimensionCallParameterSet) DimensionPattern {
	return DimensionPattern{EntityLinkPattern{Params: EntityLinkParameterSet{
		Fields:      []ParameterSetField{FieldElementName, FieldEntityLinks},
		ElementName: call.Dimension,
		EntityLinks: call.EntityPath,
	}}}
}

func (p DimensionPattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	return p.EntityLinkPattern.Match(dimensionsAndTimeDimensions(candidates))
}

// TimeDimensionPattern matches time dimensions by name, entity path and date
// part, and by grain when one is given.
type TimeDimensionPattern struct {
	EntityLinkPattern
}

// NewTimeDimensionPattern builds a pattern from a TimeDimension(...) call.
func NewTimeDimensionPattern(call specs.TimeDimensionCallParameterSet) TimeDimensionPattern {
	fields := []ParameterSetField{FieldElementName, FieldEntityLinks, FieldDatePart}
	if call.TimeGranularity != "" {
		fields = append(fields, FieldTimeGranularity)
	}
	return TimeDimensionPattern{EntityLinkPattern{Params: EntityLinkParameterSet{
		Fields:          fields,
		ElementName:     call.TimeDimension,
		EntityLinks:     call.EntityPath,
		TimeGranularity: call.TimeGranularity,
		DatePart:        call.DatePart,
	}}}
}

func (p TimeDimensionPattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	var tds []specs.InstanceSpec
	for _, td := range timeDimensions(candidates) {
		tds = append(tds, td)
	}
	return p.EntityLinkPattern.Match(tds)
}

// EntityPattern matches entities by name and entity path.
type EntityPattern struct {
	EntityLinkPattern
}

// NewEntityPattern builds a pattern from an Entity(...) call.
func NewEntityPattern(call specs.EntityCallParameterSet) EntityPattern {
	return EntityPattern{EntityLinkPattern{Params: EntityLinkParameterSet{
		Fields:      []ParameterSetField{FieldElementName, FieldEntityLinks},
		ElementName: call.Entity,
		EntityLinks: call.EntityPath,
	}}}
}

func (p EntityPattern) Match(candidates []specs.InstanceSpec) []specs.InstanceSpec {
	return p.EntityLinkPattern.Match(entities(candidates))
}

// ForCallParameterSet returns the pattern for a where-filter call.
func ForCallParameterSet(call specs.CallParameterSet) SpecPattern {
	switch c := call.(type) {
	case specs.DimensionCallParameterSet:
		return NewDimensionPattern(c)
	case specs.TimeDimensionCallParameterSet:
		return NewTimeDimensionPattern(c)
	case specs.EntityCallParameterSet:
		return NewEntityPattern(c)
	default:
		panic(fmt.Sprintf("patterns: unhandled call parameter set %T", call))
	}
}
