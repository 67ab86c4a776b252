package ir

import (
	"fmt"

	"github.com/roach88/metricq/internal/query"
	"github.com/roach88/metricq/internal/specs"
)

// QuerySpecValue encodes a resolved query. Group-by items are listed in the
// order LinkableSpecs returns them, so the encoding does not depend on the
// order the items were requested in.
func QuerySpecValue(spec *query.MetricFlowQuerySpec) (Object, error) {
	metrics := make(Array, len(spec.Metrics))
	for i, m := range spec.Metrics {
		metrics[i] = String(m.Element)
	}

	linkable := spec.LinkableSpecs()
	groupBy := make(Array, len(linkable))
	for i, s := range linkable {
		v, err := SpecValue(s)
		if err != nil {
			return nil, err
		}
		groupBy[i] = v
	}

	orderBy := make(Array, len(spec.OrderBys))
	for i, o := range spec.OrderBys {
		v, err := SpecValue(o.Spec)
		if err != nil {
			return nil, fmt.Errorf("order_by[%d]: %w", i, err)
		}
		orderBy[i] = Object{"spec": v, "descending": Bool(o.Descending)}
	}

	obj := Object{
		"metrics":  metrics,
		"group_by": groupBy,
		"order_by": orderBy,
		"where":    Strings(spec.FilterIntersection.Templates()),
	}
	if spec.Limit != nil {
		obj["limit"] = Int(*spec.Limit)
	}
	return obj, nil
}

// SpecValue encodes a single instance spec.
func SpecValue(s specs.InstanceSpec) (Object, error) {
	switch v := s.(type) {
	case specs.MetricSpec:
		return Object{"type": String("metric"), "element": String(v.Element)}, nil
	case specs.DimensionSpec:
		return Object{"type": String("dimension"), "element": String(v.Element), "entity_links": Strings(v.EntityLinks)}, nil
	case specs.EntitySpec:
		return Object{"type": String("entity"), "element": String(v.Element), "entity_links": Strings(v.EntityLinks)}, nil
	case specs.TimeDimensionSpec:
		obj := Object{
			"type":         String("time_dimension"),
			"element":      String(v.Element),
			"entity_links": Strings(v.EntityLinks),
			"grain":        String(v.TimeGranularity),
		}
		if v.DatePart != specs.DatePartNone {
			obj["date_part"] = String(v.DatePart)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("cannot encode %T", s)
	}
}

// FingerprintQuerySpec returns the content fingerprint of a resolved query.
func FingerprintQuerySpec(spec *query.MetricFlowQuerySpec) (string, error) {
	obj, err := QuerySpecValue(spec)
	if err != nil {
		return "", err
	}
	return Hash(DomainQuerySpec, obj)
}

// FingerprintRequest returns the fingerprint of a request as written. Unlike
// FingerprintQuerySpec it is defined for requests that fail to resolve, and
// it distinguishes spellings of the same query. The request name is not
// part of it.
func FingerprintRequest(req query.Request) (string, error) {
	obj := Object{
		"saved_query": String(req.SavedQuery),
		"metrics":     Strings(req.Metrics),
		"group_by":    Strings(req.GroupBy),
		"where":       Strings(req.Where),
		"order_by":    Strings(req.OrderBy),
	}
	if req.Limit != nil {
		obj["limit"] = Int(*req.Limit)
	}
	return Hash(DomainRequest, obj)
}
