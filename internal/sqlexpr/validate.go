package sqlexpr

import (
	"fmt"
	"regexp"
)

// ValidationResult lists the problems found in a select list.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that every column has an identifier alias, that aliases
// are unique and that every expression is well formed. It reports every
// problem rather than stopping at the first.
//
// Validate is a pure function with no side effects.
func Validate(columns []SelectColumn) ValidationResult {
	v := &validator{problems: []string{}}
	seen := make(map[string]bool)
	for i, c := range columns {
		switch {
		case c.Alias == "":
			v.addProblem("column %d: empty alias", i)
		case !identifier.MatchString(c.Alias):
			v.addProblem("column %d: alias %q is not an identifier", i, c.Alias)
		case seen[c.Alias]:
			v.addProblem("column %d: duplicate alias %q", i, c.Alias)
		}
		seen[c.Alias] = true
		v.validateExpr(c.Expr)
	}
	return ValidationResult{Valid: len(v.problems) == 0, Problems: v.problems}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateExpr(e Expr) {
	switch expr := e.(type) {
	case nil:
		v.addProblem("nil expression")
	case ColumnReference:
		v.validateColumn(expr)
	case *ColumnReference:
		v.validateColumn(*expr)
	case Function:
		v.validateFunction(expr)
	case *Function:
		v.validateFunction(*expr)
	case StringLiteral, *StringLiteral:
	case Raw:
		if expr.SQL == "" {
			v.addProblem("empty raw expression")
		}
	case *Raw:
		if expr.SQL == "" {
			v.addProblem("empty raw expression")
		}
	default:
		v.addProblem("unknown expression type %T", e)
	}
}

func (v *validator) validateColumn(c ColumnReference) {
	if !identifier.MatchString(c.ColumnName) {
		v.addProblem("column name %q is not an identifier", c.ColumnName)
	}
	if c.TableAlias != "" && !identifier.MatchString(c.TableAlias) {
		v.addProblem("table alias %q is not an identifier", c.TableAlias)
	}
}

func (v *validator) validateFunction(f Function) {
	if f.Name == "" {
		v.addProblem("function without a name")
	}
	if len(f.Args) == 0 {
		v.addProblem("%s without arguments", f.Name)
	}
	for _, arg := range f.Args {
		v.validateExpr(arg)
	}
}
