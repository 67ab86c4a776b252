// Package naming converts between the strings users type for query items and
// the patterns that select them.
package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/metricq/internal/patterns"
	"github.com/roach88/metricq/internal/specs"
	"github.com/roach88/metricq/internal/wherefilter"
)

// ErrDoesNotFollowScheme is wrapped by SpecPattern for inputs the scheme
// cannot parse.
var ErrDoesNotFollowScheme = errors.New("input does not follow the naming scheme")

// Scheme is one way of naming query items.
type Scheme interface {
	patterns.InputRenderer

	// SpecPattern returns a pattern selecting the items input names.
	SpecPattern(input string) (patterns.SpecPattern, error)
	// FollowsScheme reports whether SpecPattern would accept input.
	FollowsScheme(input string) bool
	// Description explains the expected input format.
	Description() string
}

// GroupBySchemes are tried in order for group-by and order-by inputs.
var GroupBySchemes = []Scheme{ObjectScheme{}, DunderScheme{}}

// SchemeFor returns the first scheme that can parse input.
func SchemeFor(input string, schemes []Scheme) (Scheme, bool) {
	for _, s := range schemes {
		if s.FollowsScheme(input) {
			return s, true
		}
	}
	return nil, false
}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// DunderScheme names items like listing__user__country or metric_time__day.
type DunderScheme struct{}

var _ Scheme = DunderScheme{}

// InputStr returns the dunder name of a group-by item. Time dimensions with a
// date part have no dunder spelling.
func (DunderScheme) InputStr(spec specs.InstanceSpec) (string, bool) {
	l, ok := spec.(specs.LinkableSpec)
	if !ok {
		return "", false
	}
	if td, ok := l.(specs.TimeDimensionSpec); ok && td.DatePart != specs.DatePartNone {
		return "", false
	}
	return specs.QualifiedName(l), true
}

func (s DunderScheme) FollowsScheme(input string) bool {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(input)), specs.Dunder)
	for _, p := range parts {
		if !identifier.MatchString(p) {
			return false
		}
	}
	last := parts[len(parts)-1]
	for _, part := range specs.AllDateParts {
		if last == specs.DatePartSuffix(part) {
			return false
		}
	}
	return true
}

// SpecPattern parses [entity links__]element[__grain].
func (s DunderScheme) SpecPattern(input string) (patterns.SpecPattern, error) {
	if !s.FollowsScheme(input) {
		return nil, fmt.Errorf("%q: %w", input, ErrDoesNotFollowScheme)
	}
	parts := strings.Split(strings.ToLower(strings.TrimSpace(input)), specs.Dunder)
	params := patterns.EntityPathParameterSet{InputString: input}

	if g, err := specs.ParseTimeGranularity(parts[len(parts)-1]); err == nil && len(parts) > 1 {
		params.TimeGranularity = g
		parts = parts[:len(parts)-1]
	}
	params.ElementName = parts[len(parts)-1]
	if len(parts) > 1 {
		params.EntityLinks = parts[:len(parts)-1]
	}
	return patterns.EntityPathPattern{Params: params, Scheme: s}, nil
}

func (DunderScheme) Description() string {
	return "The input string should be a sequence of strings consisting of the entity links, the name of the " +
		"dimension or entity, and a time granularity (if applicable), joined by a double underscore. e.g. " +
		"listing__user__country or metric_time__day."
}

// ObjectScheme names items with constructor calls like
// TimeDimension('metric_time', 'day') or Dimension('listing__country').
type ObjectScheme struct{}

var _ Scheme = ObjectScheme{}

func (ObjectScheme) InputStr(spec specs.InstanceSpec) (string, bool) {
	switch s := spec.(type) {
	case specs.DimensionSpec:
		return specs.DimensionCallParameterSet{EntityPath: s.EntityLinks, Dimension: s.Element}.String(), true
	case specs.TimeDimensionSpec:
		return specs.TimeDimensionCallParameterSet{
			EntityPath:      s.EntityLinks,
			TimeDimension:   s.Element,
			TimeGranularity: s.TimeGranularity,
			DatePart:        s.DatePart,
		}.String(), true
	case specs.EntitySpec:
		return specs.EntityCallParameterSet{EntityPath: s.EntityLinks, Entity: s.Element}.String(), true
	}
	return "", false
}

func (ObjectScheme) FollowsScheme(input string) bool {
	_, err := wherefilter.ParseCall(input)
	return err == nil
}

func (s ObjectScheme) SpecPattern(input string) (patterns.SpecPattern, error) {
	call, err := wherefilter.ParseCall(input)
	if err != nil {
		return nil, fmt.Errorf("%q: %w: %w", input, ErrDoesNotFollowScheme, err)
	}
	params := patterns.EntityPathParameterSet{InputString: input}
	switch c := call.Params.(type) {
	case specs.DimensionCallParameterSet:
		params.ElementName, params.EntityLinks = c.Dimension, c.EntityPath
	case specs.TimeDimensionCallParameterSet:
		params.ElementName, params.EntityLinks = c.TimeDimension, c.EntityPath
		params.TimeGranularity, params.DatePart = c.TimeGranularity, c.DatePart
	case specs.EntityCallParameterSet:
		params.ElementName, params.EntityLinks = c.Entity, c.EntityPath
	}
	return patterns.EntityPathPattern{Params: params, Scheme: s}, nil
}

func (ObjectScheme) Description() string {
	return "The input string should be a Dimension, TimeDimension or Entity call, " +
		"e.g. TimeDimension('metric_time', 'day')."
}

// MetricScheme names metrics by their lower-cased name.
type MetricScheme struct{}

var _ Scheme = MetricScheme{}

func (MetricScheme) InputStr(spec specs.InstanceSpec) (string, bool) {
	m, ok := spec.(specs.MetricSpec)
	return m.Element, ok
}

func (MetricScheme) FollowsScheme(input string) bool {
	return identifier.MatchString(strings.ToLower(strings.TrimSpace(input)))
}

func (s MetricScheme) SpecPattern(input string) (patterns.SpecPattern, error) {
	if !s.FollowsScheme(input) {
		return nil, fmt.Errorf("%q: %w", input, ErrDoesNotFollowScheme)
	}
	return patterns.NewMetricPattern(strings.TrimSpace(input)), nil
}

func (MetricScheme) Description() string {
	return "The input string should be the name of a metric."
}
