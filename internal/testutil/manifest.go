package testutil

import (
	"github.com/roach88/metricq/internal/manifest"
	"github.com/roach88/metricq/internal/specs"
)

// SimpleManifest returns a small bookings marketplace manifest used across
// package tests. Every call returns a fresh copy.
//
// Models: bookings_source (booking, listing, guest), listings_latest
// (listing, user), users_source (user), revenue_source (monthly grain),
// visits_source and buys_source (conversion inputs joined on user).
func SimpleManifest() manifest.Manifest {
	day := &manifest.DimensionTypeParams{TimeGranularity: specs.GranularityDay}
	month := &manifest.DimensionTypeParams{TimeGranularity: specs.GranularityMonth}

	return manifest.Manifest{
		SemanticModels: []manifest.SemanticModel{
			{
				Name:     "bookings_source",
				Relation: "fct_bookings",
				Defaults: &manifest.ModelDefaults{AggTimeDimension: "ds"},
				Entities: []manifest.Entity{
					{Name: "booking", Type: manifest.EntityTypePrimary, Expr: "booking_id"},
					{Name: "listing", Type: manifest.EntityTypeForeign, Expr: "listing_id"},
					{Name: "guest", Type: manifest.EntityTypeForeign, Expr: "guest_id"},
				},
				Measures: []manifest.Measure{
					{Name: "bookings", Agg: "sum", Expr: "1"},
					{Name: "booking_value", Agg: "sum"},
					{Name: "instant_bookings", Agg: "sum_boolean", Expr: "is_instant"},
					{Name: "booking_payments", Agg: "sum", Expr: "booking_value", AggTimeDimension: "paid_at"},
				},
				Dimensions: []manifest.Dimension{
					{Name: "is_instant", Type: manifest.DimensionTypeCategorical},
					{Name: "ds", Type: manifest.DimensionTypeTime, TypeParams: day},
					{Name: "paid_at", Type: manifest.DimensionTypeTime, TypeParams: day},
				},
			},
			{
				Name:     "listings_latest",
				Relation: "dim_listings",
				Defaults: &manifest.ModelDefaults{AggTimeDimension: "created_at"},
				Entities: []manifest.Entity{
					{Name: "listing", Type: manifest.EntityTypePrimary, Expr: "listing_id"},
					{Name: "user", Type: manifest.EntityTypeForeign, Expr: "user_id"},
				},
				Measures: []manifest.Measure{
					{Name: "listings", Agg: "sum", Expr: "1"},
				},
				Dimensions: []manifest.Dimension{
					{Name: "country_latest", Type: manifest.DimensionTypeCategorical},
					{Name: "is_lux_latest", Type: manifest.DimensionTypeCategorical},
					{Name: "created_at", Type: manifest.DimensionTypeTime, TypeParams: day},
				},
			},
			{
				Name:     "users_source",
				Relation: "dim_users",
				Entities: []manifest.Entity{
					{Name: "user", Type: manifest.EntityTypePrimary, Expr: "user_id"},
				},
				Dimensions: []manifest.Dimension{
					{Name: "home_state", Type: manifest.DimensionTypeCategorical},
				},
			},
			{
				Name:     "revenue_source",
				Relation: "fct_revenue",
				Defaults: &manifest.ModelDefaults{AggTimeDimension: "ds"},
				Entities: []manifest.Entity{
					{Name: "revenue_instance", Type: manifest.EntityTypePrimary, Expr: "revenue_id"},
					{Name: "user", Type: manifest.EntityTypeForeign, Expr: "user_id"},
				},
				Measures: []manifest.Measure{
					{Name: "revenue", Agg: "sum"},
				},
				Dimensions: []manifest.Dimension{
					{Name: "ds", Type: manifest.DimensionTypeTime, TypeParams: month},
				},
			},
			{
				Name:     "visits_source",
				Relation: "fct_visits",
				Defaults: &manifest.ModelDefaults{AggTimeDimension: "ds"},
				Entities: []manifest.Entity{
					{Name: "visit", Type: manifest.EntityTypePrimary, Expr: "visit_id"},
					{Name: "user", Type: manifest.EntityTypeForeign, Expr: "user_id"},
				},
				Measures: []manifest.Measure{
					{Name: "visits", Agg: "count", Expr: "1"},
				},
				Dimensions: []manifest.Dimension{
					{Name: "referrer_id", Type: manifest.DimensionTypeCategorical},
					{Name: "ds", Type: manifest.DimensionTypeTime, TypeParams: day},
				},
			},
			{
				Name:     "buys_source",
				Relation: "fct_buys",
				Defaults: &manifest.ModelDefaults{AggTimeDimension: "ds"},
				Entities: []manifest.Entity{
					{Name: "buy", Type: manifest.EntityTypePrimary, Expr: "buy_id"},
					{Name: "user", Type: manifest.EntityTypeForeign, Expr: "user_id"},
				},
				Measures: []manifest.Measure{
					{Name: "buys", Agg: "count", Expr: "1"},
				},
				Dimensions: []manifest.Dimension{
					{Name: "ds", Type: manifest.DimensionTypeTime, TypeParams: day},
				},
			},
		},
		Metrics: []manifest.Metric{
			simple("bookings", "bookings"),
			simple("booking_value", "booking_value"),
			simple("instant_bookings", "instant_bookings"),
			simple("listings", "listings"),
			simple("revenue", "revenue"),
			simple("booking_payments", "booking_payments"),
			{
				Name: "instant_booking_value",
				Type: manifest.MetricTypeSimple,
				TypeParams: manifest.MetricTypeParams{
					Measure: &manifest.MetricInputMeasure{Name: "booking_value"},
				},
				Filter: manifest.FilterList{"{{ Dimension('booking__is_instant') }}"},
			},
			{
				Name: "bookings_per_listing",
				Type: manifest.MetricTypeRatio,
				TypeParams: manifest.MetricTypeParams{
					Numerator:   &manifest.MetricInput{Name: "bookings"},
					Denominator: &manifest.MetricInput{Name: "listings"},
				},
			},
			{
				Name: "trailing_7_days_booking_value",
				Type: manifest.MetricTypeCumulative,
				TypeParams: manifest.MetricTypeParams{
					Measure: &manifest.MetricInputMeasure{Name: "booking_value"},
					Window:  "7 days",
				},
			},
			{
				Name: "booking_value_mtd",
				Type: manifest.MetricTypeCumulative,
				TypeParams: manifest.MetricTypeParams{
					Measure:     &manifest.MetricInputMeasure{Name: "booking_value"},
					GrainToDate: specs.GranularityMonth,
				},
			},
			{
				Name: "all_time_bookings",
				Type: manifest.MetricTypeCumulative,
				TypeParams: manifest.MetricTypeParams{
					Measure: &manifest.MetricInputMeasure{Name: "bookings"},
				},
			},
			{
				Name: "bookings_growth_2_weeks",
				Type: manifest.MetricTypeDerived,
				TypeParams: manifest.MetricTypeParams{
					Expr: "bookings - bookings_2_weeks_ago",
					Metrics: []manifest.MetricInput{
						{Name: "bookings"},
						{Name: "bookings", OffsetWindow: "14 days", Alias: "bookings_2_weeks_ago"},
					},
				},
			},
			{
				Name: "bookings_growth_since_start_of_month",
				Type: manifest.MetricTypeDerived,
				TypeParams: manifest.MetricTypeParams{
					Expr: "bookings - bookings_at_start_of_month",
					Metrics: []manifest.MetricInput{
						{Name: "bookings"},
						{Name: "bookings", OffsetToGrain: specs.GranularityMonth, Alias: "bookings_at_start_of_month"},
					},
				},
			},
			{
				Name: "lux_booking_fraction",
				Type: manifest.MetricTypeDerived,
				TypeParams: manifest.MetricTypeParams{
					Expr: "lux_bookings / bookings",
					Metrics: []manifest.MetricInput{
						{
							Name:   "bookings",
							Alias:  "lux_bookings",
							Filter: manifest.FilterList{"{{ Dimension('listing__is_lux_latest') }}"},
						},
						{Name: "bookings"},
					},
				},
			},
			{
				Name: "visit_buy_conversion_rate",
				Type: manifest.MetricTypeConversion,
				TypeParams: manifest.MetricTypeParams{
					ConversionTypeParams: &manifest.ConversionTypeParams{
						BaseMeasure:       manifest.MetricInputMeasure{Name: "visits"},
						ConversionMeasure: manifest.MetricInputMeasure{Name: "buys"},
						Entity:            "user",
						Window:            "7 days",
					},
				},
			},
		},
		SavedQueries: []manifest.SavedQuery{
			{
				Name: "bookings_by_listing_country",
				QueryParams: manifest.SavedQueryParams{
					Metrics: []string{"bookings"},
					GroupBy: []string{"listing__country_latest", "metric_time__day"},
					Where:   manifest.FilterList{"{{ Dimension('booking__is_instant') }}"},
				},
			},
		},
	}
}

// SimpleLookup indexes SimpleManifest. Panics on error.
func SimpleLookup() *manifest.Lookup {
	l, err := manifest.NewLookup(SimpleManifest())
	if err != nil {
		panic(err)
	}
	return l
}

func simple(name, measure string) manifest.Metric {
	return manifest.Metric{
		Name: name,
		Type: manifest.MetricTypeSimple,
		TypeParams: manifest.MetricTypeParams{
			Measure: &manifest.MetricInputMeasure{Name: measure},
		},
	}
}
