package wherefilter

import (
	"github.com/roach88/metricq/internal/specs"
)

// WhereFilterSpec is a filter rendered against resolved specs. SQL references
// each item by its dunder column name.
type WhereFilterSpec struct {
	Template      string
	SQL           string
	LinkableSpecs []specs.LinkableSpec
}

// SpecFactory renders filters written at one location.
type SpecFactory struct {
	lookup   Lookup
	location Location
}

func NewSpecFactory(lookup Lookup, location Location) *SpecFactory {
	return &SpecFactory{lookup: lookup, location: location}
}

// Create renders one filter. Every call in the filter must have been resolved
// at the factory's location.
func (f *SpecFactory) Create(filter specs.WhereFilter) (WhereFilterSpec, error) {
	t, err := ParseTemplate(filter.Template)
	if err != nil {
		return WhereFilterSpec{}, err
	}

	var linked []specs.LinkableSpec
	sql, err := t.Render(func(call specs.CallParameterSet) (string, error) {
		spec := f.lookup.CheckedResolvedSpec(LookupKey{Location: f.location, Call: call})
		linked = append(linked, spec)
		return specs.QualifiedName(spec), nil
	})
	if err != nil {
		return WhereFilterSpec{}, err
	}
	return WhereFilterSpec{
		Template:      filter.Template,
		SQL:           sql,
		LinkableSpecs: specs.DedupeLinkable(linked),
	}, nil
}

// CreateAll renders every filter of an intersection in order.
func (f *SpecFactory) CreateAll(in specs.WhereFilterIntersection) ([]WhereFilterSpec, error) {
	out := make([]WhereFilterSpec, 0, len(in.Filters))
	for _, filter := range in.Filters {
		spec, err := f.Create(filter)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}
