package sqlexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalescedColumn(t *testing.T) {
	testCases := []struct {
		name    string
		aliases []string
		want    Expr
	}{
		{
			name:    "single alias",
			aliases: []string{"a"},
			want:    ColumnReference{TableAlias: "a", ColumnName: "is_instant"},
		},
		{
			name:    "two aliases",
			aliases: []string{"a", "b"},
			want: Function{Name: FunctionCoalesce, Args: []Expr{
				ColumnReference{TableAlias: "a", ColumnName: "is_instant"},
				ColumnReference{TableAlias: "b", ColumnName: "is_instant"},
			}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CoalescedColumn(tc.aliases, "is_instant"))
		})
	}
}

func TestCoalescedColumn_PanicsWithoutAliases(t *testing.T) {
	assert.Panics(t, func() { CoalescedColumn(nil, "is_instant") })
}

func TestExpr_Sealed(t *testing.T) {
	for _, e := range []Expr{ColumnReference{}, Function{}, StringLiteral{}, Raw{}} {
		switch e.(type) {
		case ColumnReference, Function, StringLiteral, Raw:
		default:
			t.Fatalf("unexpected expression type %T", e)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := []SelectColumn{
		{Expr: CoalescedColumn([]string{"a", "b"}, "is_instant"), Alias: "is_instant"},
		{Expr: &ColumnReference{ColumnName: "bookings"}, Alias: "bookings"},
		{Expr: Raw{SQL: "1"}, Alias: "one"},
	}
	got := Validate(valid)
	assert.True(t, got.Valid)
	assert.Empty(t, got.Problems)

	invalid := []SelectColumn{
		{Expr: ColumnReference{ColumnName: "x"}, Alias: ""},
		{Expr: ColumnReference{ColumnName: "y"}, Alias: "y"},
		{Expr: ColumnReference{ColumnName: "z"}, Alias: "y"},
		{Expr: Coalesce(), Alias: "c"},
		{Expr: ColumnReference{TableAlias: "a b", ColumnName: "1x"}, Alias: "d"},
		{Expr: nil, Alias: "e"},
	}
	got = Validate(invalid)
	assert.False(t, got.Valid)
	assert.Equal(t, []string{
		"column 0: empty alias",
		`column 2: duplicate alias "y"`,
		"COALESCE without arguments",
		`column name "1x" is not an identifier`,
		`table alias "a b" is not an identifier`,
		"nil expression",
	}, got.Problems)
}
