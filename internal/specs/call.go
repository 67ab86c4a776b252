package specs

import "strings"

// CallParameterSet is the parsed form of one item reference inside a where
// filter template, such as Dimension('listing__country') or
// TimeDimension('metric_time', 'month').
//
// Like InstanceSpec, this is a sealed interface.
type CallParameterSet interface {
	// Key is equal for two parameter sets iff they describe the same call.
	Key() string
	String() string

	callParameterSet()
}

// DimensionCallParameterSet is Dimension('<entity path>__<dimension>').
type DimensionCallParameterSet struct {
	EntityPath []string
	Dimension  string
}

func (c DimensionCallParameterSet) Key() string {
	return "Dimension:" + joinKey(c.EntityPath, c.Dimension)
}

func (c DimensionCallParameterSet) String() string {
	return "Dimension('" + strings.Join(append(append([]string(nil), c.EntityPath...), c.Dimension), Dunder) + "')"
}

func (DimensionCallParameterSet) callParameterSet() {}

// TimeDimensionCallParameterSet is TimeDimension('<entity path>__<name>', '<grain>')
// with an optional date part.
type TimeDimensionCallParameterSet struct {
	EntityPath      []string
	TimeDimension   string
	TimeGranularity TimeGranularity
	DatePart        DatePart
}

func (c TimeDimensionCallParameterSet) Key() string {
	return "TimeDimension:" + joinKey(c.EntityPath, c.TimeDimension) + "|" + string(c.TimeGranularity) + "|" + string(c.DatePart)
}

func (c TimeDimensionCallParameterSet) String() string {
	var b strings.Builder
	b.WriteString("TimeDimension('")
	b.WriteString(strings.Join(append(append([]string(nil), c.EntityPath...), c.TimeDimension), Dunder))
	b.WriteString("'")
	if c.TimeGranularity != "" {
		b.WriteString(", '" + string(c.TimeGranularity) + "'")
	}
	if c.DatePart != DatePartNone {
		b.WriteString(", date_part_name='" + string(c.DatePart) + "'")
	}
	b.WriteString(")")
	return b.String()
}

func (TimeDimensionCallParameterSet) callParameterSet() {}

// EntityCallParameterSet is Entity('<entity path>__<entity>').
type EntityCallParameterSet struct {
	EntityPath []string
	Entity     string
}

func (c EntityCallParameterSet) Key() string {
	return "Entity:" + joinKey(c.EntityPath, c.Entity)
}

func (c EntityCallParameterSet) String() string {
	return "Entity('" + strings.Join(append(append([]string(nil), c.EntityPath...), c.Entity), Dunder) + "')"
}

func (EntityCallParameterSet) callParameterSet() {}

// FilterCallParameterSets holds every call found in one filter template, in
// template order per kind.
type FilterCallParameterSets struct {
	Dimensions     []DimensionCallParameterSet
	TimeDimensions []TimeDimensionCallParameterSet
	Entities       []EntityCallParameterSet
}

// All returns dimension, then time dimension, then entity calls.
func (f FilterCallParameterSets) All() []CallParameterSet {
	out := make([]CallParameterSet, 0, f.Len())
	for _, c := range f.Dimensions {
		out = append(out, c)
	}
	for _, c := range f.TimeDimensions {
		out = append(out, c)
	}
	for _, c := range f.Entities {
		out = append(out, c)
	}
	return out
}

// Len returns the number of calls.
func (f FilterCallParameterSets) Len() int {
	return len(f.Dimensions) + len(f.TimeDimensions) + len(f.Entities)
}
