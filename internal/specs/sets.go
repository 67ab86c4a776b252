package specs

// LinkableSpecSet groups group-by-capable specs by kind.
type LinkableSpecSet struct {
	Dimensions     []DimensionSpec
	TimeDimensions []TimeDimensionSpec
	Entities       []EntitySpec
}

// LinkableSpecSetFromSpecs partitions specs by kind, preserving their relative order.
func LinkableSpecSetFromSpecs(in []LinkableSpec) LinkableSpecSet {
	var set LinkableSpecSet
	for _, s := range in {
		switch v := s.(type) {
		case DimensionSpec:
			set.Dimensions = append(set.Dimensions, v)
		case *DimensionSpec:
			set.Dimensions = append(set.Dimensions, *v)
		case TimeDimensionSpec:
			set.TimeDimensions = append(set.TimeDimensions, v)
		case *TimeDimensionSpec:
			set.TimeDimensions = append(set.TimeDimensions, *v)
		case EntitySpec:
			set.Entities = append(set.Entities, v)
		case *EntitySpec:
			set.Entities = append(set.Entities, *v)
		default:
			panic("specs: unhandled linkable spec type " + s.String())
		}
	}
	return set
}

// AsSlice returns dimensions, then time dimensions, then entities.
func (s LinkableSpecSet) AsSlice() []LinkableSpec {
	out := make([]LinkableSpec, 0, s.Len())
	for _, d := range s.Dimensions {
		out = append(out, d)
	}
	for _, td := range s.TimeDimensions {
		out = append(out, td)
	}
	for _, e := range s.Entities {
		out = append(out, e)
	}
	return out
}

// Len returns the number of specs in the set.
func (s LinkableSpecSet) Len() int {
	return len(s.Dimensions) + len(s.TimeDimensions) + len(s.Entities)
}

// Merge concatenates the sets kind by kind. Duplicates are kept; see Dedupe.
func (s LinkableSpecSet) Merge(others ...LinkableSpecSet) LinkableSpecSet {
	out := LinkableSpecSet{
		Dimensions:     append([]DimensionSpec(nil), s.Dimensions...),
		TimeDimensions: append([]TimeDimensionSpec(nil), s.TimeDimensions...),
		Entities:       append([]EntitySpec(nil), s.Entities...),
	}
	for _, o := range others {
		out.Dimensions = append(out.Dimensions, o.Dimensions...)
		out.TimeDimensions = append(out.TimeDimensions, o.TimeDimensions...)
		out.Entities = append(out.Entities, o.Entities...)
	}
	return out
}

// Dedupe drops repeated specs, keeping the first occurrence.
func (s LinkableSpecSet) Dedupe() LinkableSpecSet {
	return LinkableSpecSetFromSpecs(DedupeLinkable(s.AsSlice()))
}

// DedupeLinkable drops repeated specs from a slice, keeping the first occurrence.
func DedupeLinkable(in []LinkableSpec) []LinkableSpec {
	seen := make(map[string]struct{}, len(in))
	out := make([]LinkableSpec, 0, len(in))
	for _, s := range in {
		k := s.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ContainsLinkable reports whether target is in specs.
func ContainsLinkable(specs []LinkableSpec, target LinkableSpec) bool {
	k := target.Key()
	for _, s := range specs {
		if s.Key() == k {
			return true
		}
	}
	return false
}

// IntersectLinkable returns the specs of first that appear in every other slice,
// in the order of first.
func IntersectLinkable(first []LinkableSpec, others ...[]LinkableSpec) []LinkableSpec {
	keep := make([]LinkableSpec, 0, len(first))
	sets := make([]map[string]struct{}, len(others))
	for i, o := range others {
		sets[i] = make(map[string]struct{}, len(o))
		for _, s := range o {
			sets[i][s.Key()] = struct{}{}
		}
	}
outer:
	for _, s := range first {
		k := s.Key()
		for _, set := range sets {
			if _, ok := set[k]; !ok {
				continue outer
			}
		}
		keep = append(keep, s)
	}
	return DedupeLinkable(keep)
}

// ToInstanceSpecs widens a slice of linkable specs.
func ToInstanceSpecs(in []LinkableSpec) []InstanceSpec {
	out := make([]InstanceSpec, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// InstanceSpecSet groups every kind of spec that can appear as a column.
type InstanceSpecSet struct {
	Measures       []MeasureSpec
	Dimensions     []DimensionSpec
	TimeDimensions []TimeDimensionSpec
	Entities       []EntitySpec
	Metrics        []MetricSpec
	Metadata       []MetadataSpec
}

// InstanceSpecSetFromSpecs partitions specs by kind, preserving their relative order.
func InstanceSpecSetFromSpecs(in []InstanceSpec) InstanceSpecSet {
	var set InstanceSpecSet
	for _, s := range in {
		switch v := s.(type) {
		case MeasureSpec:
			set.Measures = append(set.Measures, v)
		case DimensionSpec:
			set.Dimensions = append(set.Dimensions, v)
		case TimeDimensionSpec:
			set.TimeDimensions = append(set.TimeDimensions, v)
		case EntitySpec:
			set.Entities = append(set.Entities, v)
		case MetricSpec:
			set.Metrics = append(set.Metrics, v)
		case MetadataSpec:
			set.Metadata = append(set.Metadata, v)
		default:
			panic("specs: unhandled instance spec type " + s.String())
		}
	}
	return set
}

// LinkableSpecSet returns only the linkable part of the set.
func (s InstanceSpecSet) LinkableSpecSet() LinkableSpecSet {
	return LinkableSpecSet{
		Dimensions:     s.Dimensions,
		TimeDimensions: s.TimeDimensions,
		Entities:       s.Entities,
	}
}

// AsSlice returns measures, dimensions, time dimensions, entities, metrics, metadata.
func (s InstanceSpecSet) AsSlice() []InstanceSpec {
	var out []InstanceSpec
	for _, m := range s.Measures {
		out = append(out, m)
	}
	out = append(out, ToInstanceSpecs(s.LinkableSpecSet().AsSlice())...)
	for _, m := range s.Metrics {
		out = append(out, m)
	}
	for _, m := range s.Metadata {
		out = append(out, m)
	}
	return out
}
