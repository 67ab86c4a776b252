package wherefilter

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/roach88/metricq/internal/specs"
)

const maxEvalSteps = uint64(10_000)

// ParseError describes a template or call expression that could not be parsed.
type ParseError struct {
	Template string
	Expr     string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("parse where filter %q: %v", e.Template, e.Err)
	}
	return fmt.Sprintf("parse where filter %q: {{ %s }}: %v", e.Template, e.Expr, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Call is one parsed item reference.
type Call struct {
	Params     specs.CallParameterSet
	Descending bool
}

// Segment is a braced expression inside a template. Start and End are byte
// offsets of the whole "{{ ... }}" span.
type Segment struct {
	Start, End int
	Expr       string
	Call       Call
}

// Template is a parsed where-filter template.
type Template struct {
	Raw      string
	Segments []Segment
}

// ParseTemplate finds and evaluates every braced expression in raw.
func ParseTemplate(raw string) (Template, error) {
	t := Template{Raw: raw}
	rest := 0
	for {
		open := strings.Index(raw[rest:], "{{")
		if open < 0 {
			break
		}
		open += rest
		closing := strings.Index(raw[open+2:], "}}")
		if closing < 0 {
			return Template{}, &ParseError{Template: raw, Err: fmt.Errorf("unterminated '{{' at offset %d", open)}
		}
		end := open + 2 + closing + 2
		expr := strings.TrimSpace(raw[open+2 : end-2])
		if expr == "" {
			return Template{}, &ParseError{Template: raw, Err: fmt.Errorf("empty expression at offset %d", open)}
		}
		call, err := ParseCall(expr)
		if err != nil {
			return Template{}, &ParseError{Template: raw, Expr: expr, Err: err}
		}
		t.Segments = append(t.Segments, Segment{Start: open, End: end, Expr: expr, Call: call})
		rest = end
	}
	return t, nil
}

// CallParameterSets groups the template's calls by kind, dropping repeats.
func (t Template) CallParameterSets() specs.FilterCallParameterSets {
	var out specs.FilterCallParameterSets
	seen := make(map[string]bool, len(t.Segments))
	for _, s := range t.Segments {
		key := s.Call.Params.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		switch c := s.Call.Params.(type) {
		case specs.DimensionCallParameterSet:
			out.Dimensions = append(out.Dimensions, c)
		case specs.TimeDimensionCallParameterSet:
			out.TimeDimensions = append(out.TimeDimensions, c)
		case specs.EntityCallParameterSet:
			out.Entities = append(out.Entities, c)
		}
	}
	return out
}

// Render replaces every braced expression with the text returned by fn.
func (t Template) Render(fn func(specs.CallParameterSet) (string, error)) (string, error) {
	var b strings.Builder
	prev := 0
	for _, s := range t.Segments {
		b.WriteString(t.Raw[prev:s.Start])
		text, err := fn(s.Call.Params)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		prev = s.End
	}
	b.WriteString(t.Raw[prev:])
	return b.String(), nil
}

// ParseCallParameterSets parses a template and returns its calls.
func ParseCallParameterSets(raw string) (specs.FilterCallParameterSets, error) {
	t, err := ParseTemplate(raw)
	if err != nil {
		return specs.FilterCallParameterSets{}, err
	}
	return t.CallParameterSets(), nil
}

// ParseCall evaluates a single call expression such as
// TimeDimension('metric_time', 'month') or Dimension('user__country').grain('day').
func ParseCall(expr string) (Call, error) {
	thread := &starlark.Thread{Name: "where-filter"}
	thread.SetMaxExecutionSteps(maxEvalSteps)

	v, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, "<filter>", expr, constructors)
	if err != nil {
		return Call{}, err
	}
	item, ok := v.(*itemValue)
	if !ok {
		return Call{}, fmt.Errorf("expression must be a Dimension, TimeDimension or Entity call, got %s", v.Type())
	}
	params, err := item.params()
	if err != nil {
		return Call{}, err
	}
	return Call{Params: params, Descending: item.descending}, nil
}

var constructors = starlark.StringDict{
	"Dimension":     starlark.NewBuiltin("Dimension", newDimension),
	"TimeDimension": starlark.NewBuiltin("TimeDimension", newTimeDimension),
	"Entity":        starlark.NewBuiltin("Entity", newEntity),
}

type itemKind int

const (
	kindDimension itemKind = iota
	kindTimeDimension
	kindEntity
)

// itemValue is the Starlark value produced by the constructors. Methods
// return modified copies.
type itemValue struct {
	kind       itemKind
	name       string
	entityPath []string
	grain      specs.TimeGranularity
	datePart   specs.DatePart
	descending bool
}

var (
	_ starlark.Value    = (*itemValue)(nil)
	_ starlark.HasAttrs = (*itemValue)(nil)
)

func (v *itemValue) String() string {
	p, err := v.params()
	if err != nil {
		return v.Type() + "(" + v.name + ")"
	}
	return p.String()
}

func (v *itemValue) Type() string {
	switch v.kind {
	case kindTimeDimension:
		return "TimeDimension"
	case kindEntity:
		return "Entity"
	default:
		return "Dimension"
	}
}

func (v *itemValue) Freeze()               {}
func (v *itemValue) Truth() starlark.Bool  { return starlark.True }
func (v *itemValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", v.Type()) }

func (v *itemValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "grain":
		if v.kind == kindEntity {
			return nil, nil
		}
		return starlark.NewBuiltin("grain", itemGrain).BindReceiver(v), nil
	case "date_part":
		if v.kind == kindEntity {
			return nil, nil
		}
		return starlark.NewBuiltin("date_part", itemDatePart).BindReceiver(v), nil
	case "descending":
		return starlark.NewBuiltin("descending", itemDescending).BindReceiver(v), nil
	}
	return nil, nil
}

func (v *itemValue) AttrNames() []string {
	if v.kind == kindEntity {
		return []string{"descending"}
	}
	return []string{"date_part", "descending", "grain"}
}

// params converts the value into a call parameter set. Names are lower-cased
// and split on the dunder separator; the leading parts extend entity_path.
func (v *itemValue) params() (specs.CallParameterSet, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(v.name)), specs.Dunder)
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid name %q", v.name)
		}
	}
	path := append(append([]string(nil), v.entityPath...), parts[:len(parts)-1]...)
	element := parts[len(parts)-1]

	switch v.kind {
	case kindEntity:
		return specs.EntityCallParameterSet{EntityPath: nilIfEmpty(path), Entity: element}, nil
	case kindDimension:
		// metric_time__<grain> names metric_time at that grain.
		_, err := specs.ParseTimeGranularity(element)
		endsWithGrain := err == nil && len(parts) > 1
		metricTimeGrain := endsWithGrain && path[len(path)-1] == specs.MetricTimeElementName
		if endsWithGrain && !metricTimeGrain {
			return nil, fmt.Errorf("name %q ends with a time granularity; use TimeDimension", v.name)
		}
		if !metricTimeGrain && v.grain == "" && v.datePart == specs.DatePartNone && element != specs.MetricTimeElementName {
			return specs.DimensionCallParameterSet{EntityPath: nilIfEmpty(path), Dimension: element}, nil
		}
	}

	grain := v.grain
	if g, err := specs.ParseTimeGranularity(element); err == nil && len(parts) > 1 {
		if grain != "" && grain != g {
			return nil, fmt.Errorf("name %q conflicts with granularity %q", v.name, grain)
		}
		grain = g
		element = path[len(path)-1]
		path = path[:len(path)-1]
	}
	return specs.TimeDimensionCallParameterSet{
		EntityPath:      nilIfEmpty(path),
		TimeDimension:   element,
		TimeGranularity: grain,
		DatePart:        v.datePart,
	}, nil
}

func newDimension(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var entityPath starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "entity_path?", &entityPath); err != nil {
		return nil, err
	}
	path, err := stringList(b.Name(), entityPath)
	if err != nil {
		return nil, err
	}
	return &itemValue{kind: kindDimension, name: name, entityPath: path}, nil
}

func newTimeDimension(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, grain, datePart string
	var entityPath, descending starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"time_dimension_name", &name,
		"time_granularity_name?", &grain,
		"entity_path?", &entityPath,
		"descending?", &descending,
		"date_part_name?", &datePart,
	); err != nil {
		return nil, err
	}
	path, err := stringList(b.Name(), entityPath)
	if err != nil {
		return nil, err
	}
	v := &itemValue{kind: kindTimeDimension, name: name, entityPath: path}
	if grain != "" {
		if v.grain, err = specs.ParseTimeGranularity(strings.ToLower(grain)); err != nil {
			return nil, err
		}
	}
	if datePart != "" {
		if v.datePart, err = specs.ParseDatePart(strings.ToLower(datePart)); err != nil {
			return nil, err
		}
	}
	if descending != nil && descending != starlark.None {
		v.descending = bool(descending.Truth())
	}
	return v, nil
}

func newEntity(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var entityPath starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "entity_name", &name, "entity_path?", &entityPath); err != nil {
		return nil, err
	}
	path, err := stringList(b.Name(), entityPath)
	if err != nil {
		return nil, err
	}
	return &itemValue{kind: kindEntity, name: name, entityPath: path}, nil
}

func itemGrain(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var grain string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &grain); err != nil {
		return nil, err
	}
	g, err := specs.ParseTimeGranularity(strings.ToLower(grain))
	if err != nil {
		return nil, err
	}
	v := *b.Receiver().(*itemValue)
	v.kind = kindTimeDimension
	v.grain = g
	return &v, nil
}

func itemDatePart(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var part string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &part); err != nil {
		return nil, err
	}
	p, err := specs.ParseDatePart(strings.ToLower(part))
	if err != nil {
		return nil, err
	}
	v := *b.Receiver().(*itemValue)
	v.kind = kindTimeDimension
	v.datePart = p
	return &v, nil
}

func itemDescending(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	desc := true
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0, &desc); err != nil {
		return nil, err
	}
	v := *b.Receiver().(*itemValue)
	v.descending = desc
	return &v, nil
}

func stringList(fn string, v starlark.Value) ([]string, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("%s: entity_path must be a list of strings, got %s", fn, v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()

	var out []string
	var item starlark.Value
	for iter.Next(&item) {
		s, ok := starlark.AsString(item)
		if !ok {
			return nil, fmt.Errorf("%s: entity_path must be a list of strings, got element %s", fn, item.Type())
		}
		out = append(out, strings.ToLower(s))
	}
	return out, nil
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
