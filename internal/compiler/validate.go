package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/metricq/internal/manifest"
)

// Validation error codes (E200-E299)
const (
	ErrDuplicateName         = "E201" // duplicate semantic model, metric or element name
	ErrUnknownMeasure        = "E202" // metric references a measure no model defines
	ErrUnknownInputMetric    = "E203" // ratio/derived metric references an unknown metric
	ErrAggTimeDimension      = "E204" // measure has no usable aggregation time dimension
	ErrMissingGranularity    = "E205" // time dimension without a granularity
	ErrInvalidEnum           = "E206" // invalid granularity, metric, entity or dimension type
	ErrMetricCycle           = "E207" // derived metrics depend on each other
	ErrMissingPrimaryEntity  = "E208" // model declares dimensions but no primary entity
	ErrMissingTypeParameters = "E209" // metric type params incomplete for its type
)

// ValidationError represents a manifest validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a manifest for structural problems.
// Returns all errors found (does not fail-fast).
func Validate(m *manifest.Manifest) []ValidationError {
	var errs []ValidationError

	measures := make(map[string]bool)
	modelNames := make(map[string]bool)
	for i, model := range m.SemanticModels {
		field := fmt.Sprintf("semantic_models[%d]", i)

		// E201: duplicate model name
		if modelNames[model.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate semantic model name: %q", model.Name),
				Code:    ErrDuplicateName,
			})
		}
		modelNames[model.Name] = true

		errs = append(errs, validateSemanticModel(field, &model)...)

		for j, measure := range model.Measures {
			// E201: measure names are global
			if measures[measure.Name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.measures[%d].name", field, j),
					Message: fmt.Sprintf("duplicate measure name: %q", measure.Name),
					Code:    ErrDuplicateName,
				})
			}
			measures[measure.Name] = true
		}
	}

	metricNames := make(map[string]bool)
	for _, metric := range m.Metrics {
		metricNames[metric.Name] = true
	}
	seenMetrics := make(map[string]bool)
	for i, metric := range m.Metrics {
		field := fmt.Sprintf("metrics[%d]", i)

		// E201: duplicate metric name
		if seenMetrics[metric.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate metric name: %q", metric.Name),
				Code:    ErrDuplicateName,
			})
		}
		seenMetrics[metric.Name] = true

		errs = append(errs, validateMetric(field, &metric, measures, metricNames)...)
	}

	// E207: derived metric cycles
	for _, c := range AnalyzeMetricCycles(m.Metrics) {
		errs = append(errs, ValidationError{
			Field:   "metrics",
			Message: c.Message,
			Code:    ErrMetricCycle,
		})
	}

	for i, sq := range m.SavedQueries {
		for j, name := range sq.QueryParams.Metrics {
			if !metricNames[name] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("saved_queries[%d].query_params.metrics[%d]", i, j),
					Message: fmt.Sprintf("saved query %q references unknown metric %q", sq.Name, name),
					Code:    ErrUnknownInputMetric,
				})
			}
		}
	}

	return errs
}

func validateSemanticModel(field string, model *manifest.SemanticModel) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(model.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".name",
			Message: "semantic model name is required",
			Code:    ErrDuplicateName,
		})
	}

	elementNames := make(map[string]bool)
	hasPrimary := false
	for j, e := range model.Entities {
		// E206: invalid entity type
		if !e.Type.IsValid() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.entities[%d].type", field, j),
				Message: fmt.Sprintf("invalid entity type %q, must be \"primary\", \"unique\", \"foreign\" or \"natural\"", e.Type),
				Code:    ErrInvalidEnum,
			})
		}
		if e.Type.IdentifiesRows() {
			hasPrimary = true
		}
		elementNames[e.Name] = true
	}

	timeDims := make(map[string]bool)
	for j, d := range model.Dimensions {
		df := fmt.Sprintf("%s.dimensions[%d]", field, j)

		// E201: duplicate element within a model
		if elementNames[d.Name] {
			errs = append(errs, ValidationError{
				Field:   df + ".name",
				Message: fmt.Sprintf("duplicate element name %q in semantic model %q", d.Name, model.Name),
				Code:    ErrDuplicateName,
			})
		}
		elementNames[d.Name] = true

		switch d.Type {
		case manifest.DimensionTypeCategorical:
		case manifest.DimensionTypeTime:
			timeDims[d.Name] = true
			grain := d.Granularity()
			if grain == "" {
				// E205: time dimension needs a grain
				errs = append(errs, ValidationError{
					Field:   df + ".type_params.time_granularity",
					Message: fmt.Sprintf("time dimension %q requires a time_granularity", d.Name),
					Code:    ErrMissingGranularity,
				})
			} else if !grain.IsValid() {
				// E206: unknown grain
				errs = append(errs, ValidationError{
					Field:   df + ".type_params.time_granularity",
					Message: fmt.Sprintf("invalid time granularity %q", grain),
					Code:    ErrInvalidEnum,
				})
			}
		default:
			errs = append(errs, ValidationError{
				Field:   df + ".type",
				Message: fmt.Sprintf("invalid dimension type %q, must be \"categorical\" or \"time\"", d.Type),
				Code:    ErrInvalidEnum,
			})
		}
	}

	// E208: dimensions are addressed through a primary entity
	if len(model.Dimensions) > 0 && !hasPrimary {
		errs = append(errs, ValidationError{
			Field:   field + ".entities",
			Message: fmt.Sprintf("semantic model %q declares dimensions but has no primary, unique or natural entity", model.Name),
			Code:    ErrMissingPrimaryEntity,
		})
	}

	// E204: every measure needs an aggregation time dimension defined in the model
	defaultAgg := ""
	if model.Defaults != nil {
		defaultAgg = model.Defaults.AggTimeDimension
	}
	for j, measure := range model.Measures {
		agg := measure.AggTimeDimension
		if agg == "" {
			agg = defaultAgg
		}
		mf := fmt.Sprintf("%s.measures[%d]", field, j)
		switch {
		case agg == "":
			errs = append(errs, ValidationError{
				Field:   mf + ".agg_time_dimension",
				Message: fmt.Sprintf("measure %q has no agg_time_dimension and model %q sets no default", measure.Name, model.Name),
				Code:    ErrAggTimeDimension,
			})
		case !timeDims[agg]:
			errs = append(errs, ValidationError{
				Field:   mf + ".agg_time_dimension",
				Message: fmt.Sprintf("agg_time_dimension %q of measure %q is not a time dimension of model %q", agg, measure.Name, model.Name),
				Code:    ErrAggTimeDimension,
			})
		}
	}

	return errs
}

func validateMetric(field string, metric *manifest.Metric, measures, metrics map[string]bool) []ValidationError {
	var errs []ValidationError

	checkMeasure := func(f, name string) {
		// E202: unknown measure
		if !measures[name] {
			errs = append(errs, ValidationError{
				Field:   f,
				Message: fmt.Sprintf("metric %q references unknown measure %q", metric.Name, name),
				Code:    ErrUnknownMeasure,
			})
		}
	}
	checkInput := func(f string, in manifest.MetricInput) {
		// E203: unknown input metric
		if !metrics[in.Name] {
			errs = append(errs, ValidationError{
				Field:   f,
				Message: fmt.Sprintf("metric %q references unknown metric %q", metric.Name, in.Name),
				Code:    ErrUnknownInputMetric,
			})
		}
		if in.OffsetToGrain != "" && !in.OffsetToGrain.IsValid() {
			errs = append(errs, ValidationError{
				Field:   f + ".offset_to_grain",
				Message: fmt.Sprintf("invalid time granularity %q", in.OffsetToGrain),
				Code:    ErrInvalidEnum,
			})
		}
	}
	missing := func(f, what string) {
		errs = append(errs, ValidationError{
			Field:   field + ".type_params." + f,
			Message: fmt.Sprintf("%s metric %q requires %s", metric.Type, metric.Name, what),
			Code:    ErrMissingTypeParameters,
		})
	}

	tp := metric.TypeParams
	switch metric.Type {
	case manifest.MetricTypeSimple, manifest.MetricTypeCumulative:
		if tp.Measure == nil {
			missing("measure", "a measure")
		} else {
			checkMeasure(field+".type_params.measure", tp.Measure.Name)
		}
		if tp.GrainToDate != "" && !tp.GrainToDate.IsValid() {
			errs = append(errs, ValidationError{
				Field:   field + ".type_params.grain_to_date",
				Message: fmt.Sprintf("invalid time granularity %q", tp.GrainToDate),
				Code:    ErrInvalidEnum,
			})
		}
	case manifest.MetricTypeRatio:
		if tp.Numerator == nil {
			missing("numerator", "a numerator")
		} else {
			checkInput(field+".type_params.numerator", *tp.Numerator)
		}
		if tp.Denominator == nil {
			missing("denominator", "a denominator")
		} else {
			checkInput(field+".type_params.denominator", *tp.Denominator)
		}
	case manifest.MetricTypeDerived:
		if len(tp.Metrics) == 0 {
			missing("metrics", "at least one input metric")
		}
		for i, in := range tp.Metrics {
			checkInput(fmt.Sprintf("%s.type_params.metrics[%d]", field, i), in)
		}
	case manifest.MetricTypeConversion:
		if tp.ConversionTypeParams == nil {
			missing("conversion_type_params", "conversion_type_params")
			break
		}
		checkMeasure(field+".type_params.conversion_type_params.base_measure", tp.ConversionTypeParams.BaseMeasure.Name)
		checkMeasure(field+".type_params.conversion_type_params.conversion_measure", tp.ConversionTypeParams.ConversionMeasure.Name)
		if tp.ConversionTypeParams.Entity == "" {
			missing("conversion_type_params.entity", "an entity")
		}
	default:
		// E206: unknown metric type
		errs = append(errs, ValidationError{
			Field:   field + ".type",
			Message: fmt.Sprintf("invalid metric type %q, must be one of simple, ratio, cumulative, derived, conversion", metric.Type),
			Code:    ErrInvalidEnum,
		})
	}

	return errs
}
