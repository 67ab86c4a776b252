package specs

// OrderBySpec orders query output by a metric or a group-by item.
type OrderBySpec struct {
	Spec       InstanceSpec
	Descending bool
}

// WhereFilter is a single SQL-like filter template. Item references are written
// as calls inside double braces, for example:
//
//	{{ Dimension('listing__country') }} = 'US'
type WhereFilter struct {
	Template string
}

// WhereFilterIntersection is a conjunction of filters.
type WhereFilterIntersection struct {
	Filters []WhereFilter
}

// Merge concatenates the filters of both intersections.
func (w WhereFilterIntersection) Merge(other WhereFilterIntersection) WhereFilterIntersection {
	out := make([]WhereFilter, 0, len(w.Filters)+len(other.Filters))
	out = append(out, w.Filters...)
	out = append(out, other.Filters...)
	return WhereFilterIntersection{Filters: out}
}

// Templates returns the filter templates in order.
func (w WhereFilterIntersection) Templates() []string {
	out := make([]string, len(w.Filters))
	for i, f := range w.Filters {
		out[i] = f.Template
	}
	return out
}

// NewWhereFilterIntersection builds an intersection from raw templates.
func NewWhereFilterIntersection(templates ...string) WhereFilterIntersection {
	filters := make([]WhereFilter, len(templates))
	for i, t := range templates {
		filters[i] = WhereFilter{Template: t}
	}
	return WhereFilterIntersection{Filters: filters}
}
