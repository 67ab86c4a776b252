// Package query resolves semantic-layer queries.
//
// A query names metrics, group-by items, where filters, order-by items and a
// limit. Resolver checks each input against the manifest and produces a
// MetricFlowQuerySpec when every input resolves. Otherwise the result maps
// each offending input to the issues it caused, with the resolution path
// that led to each issue.
//
// Parser accepts the string forms users write:
//
//	metrics:  bookings
//	group_by: listing__country_latest, metric_time__month,
//	          TimeDimension('metric_time', 'week', date_part_name='year')
//	order_by: -bookings
//	where:    {{ Dimension('booking__is_instant') }}
package query
