package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/specs"
)

// CompileManifest parses a CUE value into a Manifest.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// Models, metrics and saved queries are keyed by name:
//
//	semantic_models: bookings_source: {
//		relation: "fct_bookings"
//		defaults: agg_time_dimension: "ds"
//		entities: [{name: "booking", type: "primary"}]
//		measures: [{name: "bookings", agg: "sum", expr: "1"}]
//		dimensions: [{name: "ds", type: "time", type_params: time_granularity: "day"}]
//	}
//	metrics: bookings: {type: "simple", type_params: measure: "bookings"}
//
// Field order follows declaration order in the CUE source.
func CompileManifest(v cue.Value) (*manifest.Manifest, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &manifest.Manifest{}

	models := v.LookupPath(cue.ParsePath("semantic_models"))
	if models.Exists() {
		iter, err := models.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			model, err := CompileSemanticModel(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			m.SemanticModels = append(m.SemanticModels, *model)
		}
	}

	metrics := v.LookupPath(cue.ParsePath("metrics"))
	if metrics.Exists() {
		iter, err := metrics.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			metric, err := CompileMetric(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			m.Metrics = append(m.Metrics, *metric)
		}
	}

	saved := v.LookupPath(cue.ParsePath("saved_queries"))
	if saved.Exists() {
		iter, err := saved.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			sq, err := compileSavedQuery(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			m.SavedQueries = append(m.SavedQueries, *sq)
		}
	}

	return m, nil
}

// CompileSemanticModel parses one semantic model. The name is the struct label.
func CompileSemanticModel(name string, v cue.Value) (*manifest.SemanticModel, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	model := &manifest.SemanticModel{Name: name}
	var err error
	if model.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}
	if model.Relation, err = optionalString(v, "relation"); err != nil {
		return nil, err
	}

	defaults := v.LookupPath(cue.ParsePath("defaults"))
	if defaults.Exists() {
		agg, err := optionalString(defaults, "agg_time_dimension")
		if err != nil {
			return nil, err
		}
		model.Defaults = &manifest.ModelDefaults{AggTimeDimension: agg}
	}

	err = eachListItem(v, "entities", func(item cue.Value) error {
		var e manifest.Entity
		var err error
		if e.Name, err = requiredString(item, "name", fmt.Sprintf("semantic_models.%s.entities", name)); err != nil {
			return err
		}
		typ, err := optionalString(item, "type")
		if err != nil {
			return err
		}
		e.Type = manifest.EntityType(typ)
		if e.Expr, err = optionalString(item, "expr"); err != nil {
			return err
		}
		model.Entities = append(model.Entities, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachListItem(v, "measures", func(item cue.Value) error {
		var ms manifest.Measure
		var err error
		if ms.Name, err = requiredString(item, "name", fmt.Sprintf("semantic_models.%s.measures", name)); err != nil {
			return err
		}
		if ms.Agg, err = optionalString(item, "agg"); err != nil {
			return err
		}
		if ms.Expr, err = optionalString(item, "expr"); err != nil {
			return err
		}
		if ms.AggTimeDimension, err = optionalString(item, "agg_time_dimension"); err != nil {
			return err
		}
		model.Measures = append(model.Measures, ms)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachListItem(v, "dimensions", func(item cue.Value) error {
		var d manifest.Dimension
		var err error
		if d.Name, err = requiredString(item, "name", fmt.Sprintf("semantic_models.%s.dimensions", name)); err != nil {
			return err
		}
		typ, err := optionalString(item, "type")
		if err != nil {
			return err
		}
		d.Type = manifest.DimensionType(typ)
		if d.Expr, err = optionalString(item, "expr"); err != nil {
			return err
		}
		params := item.LookupPath(cue.ParsePath("type_params"))
		if params.Exists() {
			grain, err := optionalString(params, "time_granularity")
			if err != nil {
				return err
			}
			d.TypeParams = &manifest.DimensionTypeParams{TimeGranularity: specs.TimeGranularity(grain)}
		}
		model.Dimensions = append(model.Dimensions, d)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return model, nil
}

// CompileMetric parses one metric. The name is the struct label.
func CompileMetric(name string, v cue.Value) (*manifest.Metric, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	metric := &manifest.Metric{Name: name}
	typ, err := requiredString(v, "type", "metrics."+name)
	if err != nil {
		return nil, err
	}
	metric.Type = manifest.MetricType(typ)
	if metric.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}
	if metric.Filter, err = filterList(v, "filter"); err != nil {
		return nil, err
	}

	params := v.LookupPath(cue.ParsePath("type_params"))
	if !params.Exists() {
		return nil, &CompileError{
			Field:   "metrics." + name + ".type_params",
			Message: "type_params is required",
			Pos:     v.Pos(),
		}
	}
	tp := &metric.TypeParams

	if mv := params.LookupPath(cue.ParsePath("measure")); mv.Exists() {
		in, err := compileInputMeasure(mv)
		if err != nil {
			return nil, err
		}
		tp.Measure = &in
	}
	if nv := params.LookupPath(cue.ParsePath("numerator")); nv.Exists() {
		in, err := compileInputMetric(nv)
		if err != nil {
			return nil, err
		}
		tp.Numerator = &in
	}
	if dv := params.LookupPath(cue.ParsePath("denominator")); dv.Exists() {
		in, err := compileInputMetric(dv)
		if err != nil {
			return nil, err
		}
		tp.Denominator = &in
	}
	err = eachListItem(params, "metrics", func(item cue.Value) error {
		in, err := compileInputMetric(item)
		if err != nil {
			return err
		}
		tp.Metrics = append(tp.Metrics, in)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if tp.Expr, err = optionalString(params, "expr"); err != nil {
		return nil, err
	}
	if tp.Window, err = optionalString(params, "window"); err != nil {
		return nil, err
	}
	grain, err := optionalString(params, "grain_to_date")
	if err != nil {
		return nil, err
	}
	tp.GrainToDate = specs.TimeGranularity(grain)

	if cv := params.LookupPath(cue.ParsePath("conversion_type_params")); cv.Exists() {
		conv := &manifest.ConversionTypeParams{}
		base := cv.LookupPath(cue.ParsePath("base_measure"))
		if base.Exists() {
			if conv.BaseMeasure, err = compileInputMeasure(base); err != nil {
				return nil, err
			}
		}
		target := cv.LookupPath(cue.ParsePath("conversion_measure"))
		if target.Exists() {
			if conv.ConversionMeasure, err = compileInputMeasure(target); err != nil {
				return nil, err
			}
		}
		if conv.Entity, err = optionalString(cv, "entity"); err != nil {
			return nil, err
		}
		if conv.Window, err = optionalString(cv, "window"); err != nil {
			return nil, err
		}
		tp.ConversionTypeParams = conv
	}

	return metric, nil
}

func compileSavedQuery(name string, v cue.Value) (*manifest.SavedQuery, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	sq := &manifest.SavedQuery{Name: name}
	var err error
	if sq.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}
	params := v.LookupPath(cue.ParsePath("query_params"))
	if !params.Exists() {
		return nil, &CompileError{
			Field:   "saved_queries." + name + ".query_params",
			Message: "query_params is required",
			Pos:     v.Pos(),
		}
	}
	if sq.QueryParams.Metrics, err = filterList(params, "metrics"); err != nil {
		return nil, err
	}
	if sq.QueryParams.GroupBy, err = filterList(params, "group_by"); err != nil {
		return nil, err
	}
	if sq.QueryParams.Where, err = filterList(params, "where"); err != nil {
		return nil, err
	}
	return sq, nil
}

// compileInputMeasure accepts a bare measure name or a struct.
func compileInputMeasure(v cue.Value) (manifest.MetricInputMeasure, error) {
	var in manifest.MetricInputMeasure
	if s, err := v.String(); err == nil {
		in.Name = s
		return in, nil
	}
	var err error
	if in.Name, err = requiredString(v, "name", "measure"); err != nil {
		return in, err
	}
	if in.Alias, err = optionalString(v, "alias"); err != nil {
		return in, err
	}
	if in.Filter, err = filterList(v, "filter"); err != nil {
		return in, err
	}
	return in, nil
}

// compileInputMetric accepts a bare metric name or a struct.
func compileInputMetric(v cue.Value) (manifest.MetricInput, error) {
	var in manifest.MetricInput
	if s, err := v.String(); err == nil {
		in.Name = s
		return in, nil
	}
	var err error
	if in.Name, err = requiredString(v, "name", "metric input"); err != nil {
		return in, err
	}
	if in.Alias, err = optionalString(v, "alias"); err != nil {
		return in, err
	}
	if in.Filter, err = filterList(v, "filter"); err != nil {
		return in, err
	}
	if in.OffsetWindow, err = optionalString(v, "offset_window"); err != nil {
		return in, err
	}
	grain, err := optionalString(v, "offset_to_grain")
	if err != nil {
		return in, err
	}
	in.OffsetToGrain = specs.TimeGranularity(grain)
	return in, nil
}

// requiredString reads a string field and fails when it is missing.
func requiredString(v cue.Value, field, context string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   context + "." + field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// optionalString reads a string field, returning "" when it is missing.
func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// filterList reads a field that may be a single string or a list of strings.
func filterList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	if s, err := fv.String(); err == nil {
		return []string{s}, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a string or a list of strings",
			Pos:     fv.Pos(),
		}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// eachListItem calls fn for every element of an optional list field.
func eachListItem(v cue.Value, field string, fn func(cue.Value) error) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	iter, err := fv.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
