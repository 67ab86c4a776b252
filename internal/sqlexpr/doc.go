// Package sqlexpr is a small SQL expression tree for the select columns a
// resolved query produces.
//
// The tree is the boundary between spec transforms and SQL text. Transforms
// such as the coalesce builder in package columns produce expressions;
// package querysql renders them.
//
//	[linkable specs] -> [columns transform] -> [sqlexpr tree] -> [querysql text]
//
// SEALED INTERFACE:
//
// Expr is sealed with a marker method, so renderers can switch over every
// expression kind:
//
//	switch e := expr.(type) {
//	case ColumnReference:
//	case Function:
//	case StringLiteral:
//	case Raw:
//	}
//
// Expressions are plain values. Both value and pointer forms are accepted
// by the renderer and the validator.
package sqlexpr
