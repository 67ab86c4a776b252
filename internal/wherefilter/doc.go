// Package wherefilter parses where-filter templates and resolves the group-by
// items they reference.
//
// A template is SQL with item references in double braces:
//
//	{{ Dimension('listing__country_latest') }} = 'US'
//	{{ TimeDimension('metric_time', 'month') }} >= '2024-01-01'
//	{{ Entity('listing') }} IS NOT NULL
//
// Each braced expression is evaluated with a small Starlark environment that
// only knows the Dimension, TimeDimension and Entity constructors. The
// Resolver walks a resolution DAG and resolves every call to a linkable spec
// at the location that owns the filter. SpecFactory then renders templates
// into SQL using the resolved specs.
package wherefilter
