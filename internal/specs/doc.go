// Package specs defines the resolved references that a metric query compiles to.
//
// A spec names one element of the semantic manifest precisely enough to
// generate SQL for it. Linkable specs (dimensions, time dimensions and
// entities) also carry the entity path used to join from a measure to the
// element:
//
//	DimensionSpec{Element: "country", EntityLinks: []string{"listing", "user"}}
//
// is the dimension "country" of the model whose primary entity is "user",
// reached through "listing". Its qualified name is listing__user__country.
//
// SEALED INTERFACES:
//
// InstanceSpec and LinkableSpec are sealed with unexported marker methods so
// that type switches over specs stay exhaustive:
//
//	switch s := spec.(type) {
//	case DimensionSpec:
//	case TimeDimensionSpec:
//	case EntitySpec:
//	}
//
// EQUALITY:
//
// Spec structs hold slices, so they are not comparable with ==. Key returns a
// canonical string that is equal for equal specs and is used for set
// operations and map keys throughout the resolver.
package specs
