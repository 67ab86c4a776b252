// Package querysql renders sqlexpr trees and resolved queries as SQL text.
package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/metricq/internal/columns"
	"github.com/roach88/metricq/internal/query"
	"github.com/roach88/metricq/internal/specs"
	"github.com/roach88/metricq/internal/sqlexpr"
)

// OrderBy is one ORDER BY entry.
type OrderBy struct {
	Column     string
	Descending bool
}

// JoinCondition is one "<left> = <right>" term of a join.
type JoinCondition struct {
	Left  sqlexpr.Expr
	Right sqlexpr.Expr
}

// Join is a FULL OUTER JOIN of a source onto everything before it, or a
// CROSS JOIN when On is empty.
type Join struct {
	Source string
	Alias  string
	On     []JoinCondition
}

// Select is a SELECT statement over a source and the sources joined to it.
//
//	SELECT <columns> FROM <from> [<alias>] [<joins>] [WHERE <where> AND ...] [ORDER BY ...] [LIMIT n]
type Select struct {
	Columns   []sqlexpr.SelectColumn
	From      string
	FromAlias string
	Joins     []Join
	Where     []string
	OrderBy   []OrderBy
	Limit     *int
}

// SQLCompiler renders SQL text. Output is deterministic: the same input
// always renders the same text.
type SQLCompiler struct {
	// Indent, when set, puts each clause on its own line.
	Indent bool
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// CompileExpr renders an expression.
func (c *SQLCompiler) CompileExpr(e sqlexpr.Expr) (string, error) {
	switch expr := e.(type) {
	case nil:
		return "", fmt.Errorf("cannot compile nil expression")
	case sqlexpr.ColumnReference:
		return compileColumn(expr), nil
	case *sqlexpr.ColumnReference:
		return compileColumn(*expr), nil
	case sqlexpr.Function:
		return c.compileFunction(expr)
	case *sqlexpr.Function:
		return c.compileFunction(*expr)
	case sqlexpr.StringLiteral:
		return quote(expr.Value), nil
	case *sqlexpr.StringLiteral:
		return quote(expr.Value), nil
	case sqlexpr.Raw:
		return expr.SQL, nil
	case *sqlexpr.Raw:
		return expr.SQL, nil
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

func compileColumn(c sqlexpr.ColumnReference) string {
	if c.TableAlias == "" {
		return c.ColumnName
	}
	return c.TableAlias + "." + c.ColumnName
}

func (c *SQLCompiler) compileFunction(f sqlexpr.Function) (string, error) {
	if len(f.Args) == 0 {
		return "", fmt.Errorf("%s requires at least one argument", f.Name)
	}
	args := make([]string, len(f.Args))
	for i, arg := range f.Args {
		s, err := c.CompileExpr(arg)
		if err != nil {
			return "", fmt.Errorf("compile %s argument %d: %w", f.Name, i, err)
		}
		args[i] = s
	}
	return string(f.Name) + "(" + strings.Join(args, ", ") + ")", nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// CompileSelectColumn renders "<expr> AS <alias>", dropping the alias when
// the expression is an unqualified reference to a column of the same name.
func (c *SQLCompiler) CompileSelectColumn(col sqlexpr.SelectColumn) (string, error) {
	expr, err := c.CompileExpr(col.Expr)
	if err != nil {
		return "", err
	}
	if col.Alias == "" || expr == col.Alias {
		return expr, nil
	}
	return expr + " AS " + col.Alias, nil
}

// CompileSelectColumns renders a comma-separated select list. The columns
// are validated first and every problem is reported.
func (c *SQLCompiler) CompileSelectColumns(cols []sqlexpr.SelectColumn) (string, error) {
	if res := sqlexpr.Validate(cols); !res.Valid {
		return "", fmt.Errorf("invalid select columns: %s", strings.Join(res.Problems, "; "))
	}
	parts := make([]string, len(cols))
	for i, col := range cols {
		s, err := c.CompileSelectColumn(col)
		if err != nil {
			return "", fmt.Errorf("compile column %q: %w", col.Alias, err)
		}
		parts[i] = s
	}
	return strings.Join(parts, c.sep(",")), nil
}

// CompileSelect renders a SELECT statement.
func (c *SQLCompiler) CompileSelect(s Select) (string, error) {
	if len(s.Columns) == 0 {
		return "", fmt.Errorf("select requires at least one column")
	}
	if s.From == "" {
		return "", fmt.Errorf("select requires a source")
	}
	if s.Limit != nil && *s.Limit < 0 {
		return "", fmt.Errorf("limit %d is negative", *s.Limit)
	}
	cols, err := c.CompileSelectColumns(s.Columns)
	if err != nil {
		return "", err
	}

	clauses := []string{"SELECT " + cols, "FROM " + withAlias(s.From, s.FromAlias)}
	for _, j := range s.Joins {
		join, err := c.compileJoin(j)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, join)
	}
	if len(s.Where) > 0 {
		clauses = append(clauses, "WHERE "+joinConditions(s.Where))
	}
	if len(s.OrderBy) > 0 {
		keys := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			keys[i] = o.Column
			if o.Descending {
				keys[i] += " DESC"
			}
		}
		clauses = append(clauses, "ORDER BY "+strings.Join(keys, ", "))
	}
	if s.Limit != nil {
		clauses = append(clauses, "LIMIT "+strconv.Itoa(*s.Limit))
	}
	if c.Indent {
		return strings.Join(clauses, "\n"), nil
	}
	return strings.Join(clauses, " "), nil
}

func (c *SQLCompiler) compileJoin(j Join) (string, error) {
	if j.Source == "" || j.Alias == "" {
		return "", fmt.Errorf("join requires a source and an alias")
	}
	if len(j.On) == 0 {
		return "CROSS JOIN " + withAlias(j.Source, j.Alias), nil
	}
	conds := make([]string, len(j.On))
	for i, cond := range j.On {
		left, err := c.CompileExpr(cond.Left)
		if err != nil {
			return "", fmt.Errorf("compile join on %s: %w", j.Alias, err)
		}
		right, err := c.CompileExpr(cond.Right)
		if err != nil {
			return "", fmt.Errorf("compile join on %s: %w", j.Alias, err)
		}
		conds[i] = left + " = " + right
	}
	return "FULL OUTER JOIN " + withAlias(j.Source, j.Alias) + " ON " + strings.Join(conds, " AND "), nil
}

func withAlias(source, alias string) string {
	if alias == "" {
		return source
	}
	return source + " " + alias
}

func (c *SQLCompiler) sep(s string) string {
	if c.Indent {
		return s + "\n  "
	}
	return s + " "
}

// FromQuerySpec builds the outer SELECT of a resolved query over from, a
// relation holding one column per group-by item and metric. Group-by columns
// come first in dimension, time dimension, entity order, then metrics.
func FromQuerySpec(spec *query.MetricFlowQuerySpec, r columns.Resolver, from string) (Select, error) {
	set := specs.InstanceSpecSet{
		Dimensions:     spec.Dimensions,
		TimeDimensions: spec.TimeDimensions,
		Entities:       spec.Entities,
		Metrics:        spec.Metrics,
	}
	var cols []sqlexpr.SelectColumn
	for _, a := range columns.CreateColumnAssociations(r, columns.SelectOnlyLinkableSpecs(set)) {
		cols = append(cols, sqlexpr.SelectColumn{Expr: sqlexpr.ColumnReference{ColumnName: a.ColumnName}, Alias: a.ColumnName})
	}
	for _, m := range spec.Metrics {
		name := r.Metric(m).ColumnName
		cols = append(cols, sqlexpr.SelectColumn{Expr: sqlexpr.ColumnReference{ColumnName: name}, Alias: name})
	}

	filters, err := spec.FilterSpecs()
	if err != nil {
		return Select{}, fmt.Errorf("render where filters: %w", err)
	}
	where := make([]string, len(filters))
	for i, f := range filters {
		where[i] = f.SQL
	}

	orderBys := make([]OrderBy, len(spec.OrderBys))
	for i, o := range spec.OrderBys {
		names := columns.CreateColumnAssociations(r, specs.InstanceSpecSetFromSpecs([]specs.InstanceSpec{o.Spec}))
		if len(names) == 0 {
			return Select{}, fmt.Errorf("order by %s: no column", o.Spec)
		}
		orderBys[i] = OrderBy{Column: names[0].ColumnName, Descending: o.Descending}
	}

	return Select{Columns: cols, From: from, Where: where, OrderBy: orderBys, Limit: spec.Limit}, nil
}

// FromJoinedQuerySpec builds the outer SELECT of a resolved query whose
// metrics are computed in separate relations, sources[i] holding the
// group-by columns and metric i. The sources are full outer joined on the
// group-by columns, which are coalesced across them. Where filters are
// applied to each source before the join.
func FromJoinedQuerySpec(spec *query.MetricFlowQuerySpec, r columns.Resolver, sources []string) (Select, error) {
	if len(sources) != len(spec.Metrics) {
		return Select{}, fmt.Errorf("got %d sources for %d metrics", len(sources), len(spec.Metrics))
	}
	if len(sources) == 0 {
		return Select{}, fmt.Errorf("select requires a source")
	}
	flat, err := FromQuerySpec(spec, r, sources[0])
	if err != nil {
		return Select{}, err
	}

	aliases := make([]string, len(sources))
	relations := make([]string, len(sources))
	for i, src := range sources {
		aliases[i] = fmt.Sprintf("subq_%d", i)
		relations[i] = src
		if len(flat.Where) > 0 {
			relations[i] = "(SELECT * FROM " + src + " WHERE " + joinConditions(flat.Where) + ")"
		}
	}

	linkable := columns.SelectOnlyLinkableSpecs(specs.InstanceSpecSet{
		Dimensions:     spec.Dimensions,
		TimeDimensions: spec.TimeDimensions,
		Entities:       spec.Entities,
	})
	cols := columns.CreateSelectCoalescedColumns(r, aliases, linkable).AsSlice()
	for i, m := range spec.Metrics {
		name := r.Metric(m).ColumnName
		cols = append(cols, sqlexpr.SelectColumn{Expr: sqlexpr.ColumnReference{TableAlias: aliases[i], ColumnName: name}, Alias: name})
	}

	groupBy := columns.CreateColumnAssociations(r, linkable)
	joins := make([]Join, 0, len(sources)-1)
	for i := 1; i < len(sources); i++ {
		j := Join{Source: relations[i], Alias: aliases[i]}
		for _, a := range groupBy {
			j.On = append(j.On, JoinCondition{
				Left:  sqlexpr.CoalescedColumn(aliases[:i], a.ColumnName),
				Right: sqlexpr.ColumnReference{TableAlias: aliases[i], ColumnName: a.ColumnName},
			})
		}
		joins = append(joins, j)
	}

	return Select{
		Columns:   cols,
		From:      relations[0],
		FromAlias: aliases[0],
		Joins:     joins,
		OrderBy:   flat.OrderBy,
		Limit:     flat.Limit,
	}, nil
}

func joinConditions(conds []string) string {
	wrapped := make([]string, len(conds))
	for i, c := range conds {
		wrapped[i] = "(" + c + ")"
	}
	return strings.Join(wrapped, " AND ")
}
