package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/metricq/internal/specs"
)

// ErrUnknownSavedQuery is wrapped when a request names a saved query the
// manifest does not define.
var ErrUnknownSavedQuery = errors.New("unknown saved query")

// Request is a query written as strings, the way it appears in query files
// and on the command line.
type Request struct {
	Name       string   `yaml:"name,omitempty" json:"name,omitempty"`
	SavedQuery string   `yaml:"saved_query,omitempty" json:"saved_query,omitempty"`
	Metrics    []string `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	GroupBy    []string `yaml:"group_by,omitempty" json:"group_by,omitempty"`
	Where      []string `yaml:"where,omitempty" json:"where,omitempty"`
	OrderBy    []string `yaml:"order_by,omitempty" json:"order_by,omitempty"`
	Limit      *int     `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// String renders the request on one line for logs and history.
func (r Request) String() string {
	var parts []string
	if r.SavedQuery != "" {
		parts = append(parts, "saved_query="+r.SavedQuery)
	}
	if len(r.Metrics) > 0 {
		parts = append(parts, "metrics="+strings.Join(r.Metrics, ","))
	}
	if len(r.GroupBy) > 0 {
		parts = append(parts, "group_by="+strings.Join(r.GroupBy, ","))
	}
	for _, w := range r.Where {
		parts = append(parts, "where="+w)
	}
	if len(r.OrderBy) > 0 {
		parts = append(parts, "order_by="+strings.Join(r.OrderBy, ","))
	}
	if r.Limit != nil {
		parts = append(parts, fmt.Sprintf("limit=%d", *r.Limit))
	}
	return strings.Join(parts, " ")
}

// Parser resolves string requests.
type Parser struct {
	resolver *Resolver
}

// NewParser returns a Parser that resolves with resolver.
func NewParser(resolver *Resolver) *Parser {
	return &Parser{resolver: resolver}
}

// Resolver returns the resolver the parser uses.
func (p *Parser) Resolver() *Resolver { return p.resolver }

// Parse converts req to resolver inputs. A saved query supplies the metrics
// and group-by items, and its filters come before the request's. Only an
// unknown saved query is an error; every other problem is reported as an
// issue by ResolveQuery.
func (p *Parser) Parse(req Request) (QueryInput, error) {
	metrics, groupBy, where := req.Metrics, req.GroupBy, req.Where
	if req.SavedQuery != "" {
		sq, ok := p.resolver.Lookup().SavedQuery(req.SavedQuery)
		if !ok {
			return QueryInput{}, fmt.Errorf("%w %q, known saved queries: %s",
				ErrUnknownSavedQuery, req.SavedQuery, strings.Join(p.resolver.Lookup().SavedQueryNames(), ", "))
		}
		metrics = append(append([]string(nil), sq.QueryParams.Metrics...), metrics...)
		groupBy = append(append([]string(nil), sq.QueryParams.GroupBy...), groupBy...)
		where = append(append([]string(nil), sq.QueryParams.Where...), where...)
	}

	var in QueryInput
	for _, m := range metrics {
		in.Metrics = append(in.Metrics, NewMetricInput(m))
	}
	for _, g := range groupBy {
		gb, ok := NewGroupByInput(g)
		if !ok {
			in.GroupBys = append(in.GroupBys, InvalidStringInput{Input: g})
			continue
		}
		in.GroupBys = append(in.GroupBys, gb)
	}
	for _, o := range req.OrderBy {
		ob, _ := NewOrderByInput(o)
		in.OrderBys = append(in.OrderBys, ob)
	}
	in.Filter = FilterInput{Filter: specs.NewWhereFilterIntersection(where...)}
	in.Limit = LimitInput{Limit: req.Limit}
	return in, nil
}

// ParseAndResolve parses req and resolves it.
func (p *Parser) ParseAndResolve(req Request) (Resolution, error) {
	in, err := p.Parse(req)
	if err != nil {
		return Resolution{}, err
	}
	return p.resolver.ResolveQuery(in), nil
}
