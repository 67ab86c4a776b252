package sqlexpr

import "fmt"

// Expr is a SQL expression.
//
// This is a sealed interface: only types in this package implement it.
type Expr interface {
	exprNode()
}

// ColumnReference names a column, optionally qualified by a table alias.
//
//	ColumnReference{TableAlias: "a", ColumnName: "is_instant"}  ->  a.is_instant
type ColumnReference struct {
	TableAlias string
	ColumnName string
}

func (ColumnReference) exprNode() {}

// FunctionName is a SQL function the tree can express.
type FunctionName string

const (
	FunctionCoalesce FunctionName = "COALESCE"
	FunctionMax      FunctionName = "MAX"
)

// Function applies a SQL function to its arguments.
type Function struct {
	Name FunctionName
	Args []Expr
}

func (Function) exprNode() {}

// StringLiteral is a quoted string constant.
type StringLiteral struct {
	Value string
}

func (StringLiteral) exprNode() {}

// Raw is SQL text passed through unchanged, such as a rendered where filter.
type Raw struct {
	SQL string
}

func (Raw) exprNode() {}

// SelectColumn is one entry of a SELECT list.
type SelectColumn struct {
	Expr  Expr
	Alias string
}

// Coalesce returns COALESCE(args...).
func Coalesce(args ...Expr) Function {
	return Function{Name: FunctionCoalesce, Args: args}
}

// CoalescedColumn references column in every table alias, coalescing when
// there is more than one alias:
//
//	["a"]       ->  a.is_instant
//	["a", "b"]  ->  COALESCE(a.is_instant, b.is_instant)
//
// It panics when aliases is empty.
func CoalescedColumn(aliases []string, column string) Expr {
	switch len(aliases) {
	case 0:
		panic(fmt.Sprintf("sqlexpr: no table aliases to select %q from", column))
	case 1:
		return ColumnReference{TableAlias: aliases[0], ColumnName: column}
	}
	args := make([]Expr, len(aliases))
	for i, alias := range aliases {
		args[i] = ColumnReference{TableAlias: alias, ColumnName: column}
	}
	return Coalesce(args...)
}
