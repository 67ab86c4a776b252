package querysql_test

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/metricq/internal/columns"
	"github.com/roach88/metricq/internal/query"
	"github.com/roach88/metricq/internal/querysql"
	"github.com/roach88/metricq/internal/specs"
	"github.com/roach88/metricq/internal/sqlexpr"
	"github.com/roach88/metricq/internal/testutil"
)

func TestCompileExpr(t *testing.T) {
	compiler := querysql.NewSQLCompiler()

	testCases := []struct {
		name string
		expr sqlexpr.Expr
		want string
	}{
		{name: "coalesce", expr: sqlexpr.CoalescedColumn([]string{"a", "b"}, "is_instant"), want: "COALESCE(a.is_instant, b.is_instant)"},
		{name: "single alias", expr: sqlexpr.CoalescedColumn([]string{"a"}, "is_instant"), want: "a.is_instant"},
		{name: "pointer", expr: &sqlexpr.ColumnReference{ColumnName: "bookings"}, want: "bookings"},
		{name: "literal", expr: sqlexpr.StringLiteral{Value: "it's"}, want: "'it''s'"},
		{name: "nested", expr: sqlexpr.Function{Name: sqlexpr.FunctionMax, Args: []sqlexpr.Expr{sqlexpr.Coalesce(sqlexpr.Raw{SQL: "x"}, sqlexpr.StringLiteral{Value: "y"})}}, want: "MAX(COALESCE(x, 'y'))"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := compiler.CompileExpr(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompileExpr_Errors(t *testing.T) {
	compiler := querysql.NewSQLCompiler()

	_, err := compiler.CompileExpr(nil)
	assert.Error(t, err)

	_, err = compiler.CompileExpr(sqlexpr.Coalesce())
	assert.Error(t, err)
}

func TestCompileSelectColumns_Coalesced(t *testing.T) {
	set := columns.CreateSelectCoalescedColumns(columns.DunderResolver{}, []string{"a", "b"}, specs.InstanceSpecSet{
		Dimensions: []specs.DimensionSpec{{Element: "is_instant"}},
		Entities:   []specs.EntitySpec{{Element: "listing"}},
	})

	got, err := querysql.NewSQLCompiler().CompileSelectColumns(set.AsSlice())
	require.NoError(t, err)
	assert.Equal(t, "COALESCE(a.is_instant, b.is_instant) AS is_instant, COALESCE(a.listing, b.listing) AS listing", got)
}

func TestCompileSelectColumns_RejectsInvalid(t *testing.T) {
	_, err := querysql.NewSQLCompiler().CompileSelectColumns([]sqlexpr.SelectColumn{
		{Expr: sqlexpr.ColumnReference{ColumnName: "a"}, Alias: "x"},
		{Expr: sqlexpr.ColumnReference{ColumnName: "b"}, Alias: "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate alias "x"`)
}

func TestCompileSelect_Errors(t *testing.T) {
	compiler := querysql.NewSQLCompiler()
	col := []sqlexpr.SelectColumn{{Expr: sqlexpr.ColumnReference{ColumnName: "a"}, Alias: "a"}}
	negative := -1

	testCases := []struct {
		name string
		sel  querysql.Select
	}{
		{name: "no columns", sel: querysql.Select{From: "t"}},
		{name: "no source", sel: querysql.Select{Columns: col}},
		{name: "negative limit", sel: querysql.Select{Columns: col, From: "t", Limit: &negative}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compiler.CompileSelect(tc.sel)
			assert.Error(t, err)
		})
	}
}

func TestFromQuerySpec(t *testing.T) {
	limit := 10
	res, err := query.NewParser(query.NewResolver(testutil.SimpleLookup())).ParseAndResolve(query.Request{
		Metrics: []string{"bookings"},
		GroupBy: []string{"metric_time__month", "listing__country_latest"},
		Where:   []string{"{{ Dimension('booking__is_instant') }}"},
		OrderBy: []string{"-bookings"},
		Limit:   &limit,
	})
	require.NoError(t, err)
	spec, err := res.CheckedQuerySpec()
	require.NoError(t, err)

	sel, err := querysql.FromQuerySpec(spec, columns.DunderResolver{}, "bookings_agg")
	require.NoError(t, err)

	flat, err := querysql.NewSQLCompiler().CompileSelect(sel)
	require.NoError(t, err)
	assert.Equal(t, "SELECT listing__country_latest, metric_time__month, bookings FROM bookings_agg "+
		"WHERE (booking__is_instant) ORDER BY bookings DESC LIMIT 10", flat)

	indented, err := (&querysql.SQLCompiler{Indent: true}).CompileSelect(sel)
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "bookings_by_country_month", []byte(indented))
}

func TestFromJoinedQuerySpec(t *testing.T) {
	res, err := query.NewParser(query.NewResolver(testutil.SimpleLookup())).ParseAndResolve(query.Request{
		Metrics: []string{"bookings", "listings"},
		GroupBy: []string{"metric_time__month", "listing__country_latest"},
		Where:   []string{"{{ Dimension('listing__is_lux_latest') }}"},
		OrderBy: []string{"-bookings"},
	})
	require.NoError(t, err)
	spec, err := res.CheckedQuerySpec()
	require.NoError(t, err)

	sel, err := querysql.FromJoinedQuerySpec(spec, columns.DunderResolver{}, []string{"bookings_agg", "listings_agg"})
	require.NoError(t, err)

	flat, err := querysql.NewSQLCompiler().CompileSelect(sel)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COALESCE(subq_0.listing__country_latest, subq_1.listing__country_latest) AS listing__country_latest, "+
		"COALESCE(subq_0.metric_time__month, subq_1.metric_time__month) AS metric_time__month, "+
		"subq_0.bookings AS bookings, subq_1.listings AS listings "+
		"FROM (SELECT * FROM bookings_agg WHERE (listing__is_lux_latest)) subq_0 "+
		"FULL OUTER JOIN (SELECT * FROM listings_agg WHERE (listing__is_lux_latest)) subq_1 "+
		"ON subq_0.listing__country_latest = subq_1.listing__country_latest AND subq_0.metric_time__month = subq_1.metric_time__month "+
		"ORDER BY bookings DESC", flat)

	indented, err := (&querysql.SQLCompiler{Indent: true}).CompileSelect(sel)
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "bookings_listings_joined", []byte(indented))
}

func TestFromJoinedQuerySpec_NoGroupBy(t *testing.T) {
	res, err := query.NewParser(query.NewResolver(testutil.SimpleLookup())).ParseAndResolve(query.Request{
		Metrics: []string{"bookings", "listings", "revenue"},
	})
	require.NoError(t, err)
	spec, err := res.CheckedQuerySpec()
	require.NoError(t, err)

	sel, err := querysql.FromJoinedQuerySpec(spec, columns.DunderResolver{}, []string{"a_agg", "b_agg", "c_agg"})
	require.NoError(t, err)
	got, err := querysql.NewSQLCompiler().CompileSelect(sel)
	require.NoError(t, err)
	assert.Equal(t, "SELECT subq_0.bookings AS bookings, subq_1.listings AS listings, subq_2.revenue AS revenue "+
		"FROM a_agg subq_0 CROSS JOIN b_agg subq_1 CROSS JOIN c_agg subq_2", got)

	_, err = querysql.FromJoinedQuerySpec(spec, columns.DunderResolver{}, []string{"a_agg"})
	assert.Error(t, err)
}

func TestCompileSelect_JoinCoalescesEarlierSources(t *testing.T) {
	sel := querysql.Select{
		Columns:   []sqlexpr.SelectColumn{{Expr: sqlexpr.CoalescedColumn([]string{"a", "b", "c"}, "is_instant"), Alias: "is_instant"}},
		From:      "x",
		FromAlias: "a",
		Joins: []querysql.Join{
			{Source: "y", Alias: "b", On: []querysql.JoinCondition{{
				Left:  sqlexpr.CoalescedColumn([]string{"a"}, "is_instant"),
				Right: sqlexpr.ColumnReference{TableAlias: "b", ColumnName: "is_instant"},
			}}},
			{Source: "z", Alias: "c", On: []querysql.JoinCondition{{
				Left:  sqlexpr.CoalescedColumn([]string{"a", "b"}, "is_instant"),
				Right: sqlexpr.ColumnReference{TableAlias: "c", ColumnName: "is_instant"},
			}}},
		},
	}
	got, err := querysql.NewSQLCompiler().CompileSelect(sel)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COALESCE(a.is_instant, b.is_instant, c.is_instant) AS is_instant FROM x a "+
		"FULL OUTER JOIN y b ON a.is_instant = b.is_instant "+
		"FULL OUTER JOIN z c ON COALESCE(a.is_instant, b.is_instant) = c.is_instant", got)

	sel.Joins = append(sel.Joins, querysql.Join{Source: "w"})
	_, err = querysql.NewSQLCompiler().CompileSelect(sel)
	assert.Error(t, err)
}
