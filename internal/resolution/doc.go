// Package resolution builds the DAG used to resolve group-by items.
//
// The DAG mirrors how a query is computed: the sink is the query, its parents
// are the queried metrics, a derived or ratio metric's parents are its input
// metrics, and a base metric's parents are its input measures. A query
// without metrics has a single NoMetricsQuery parent that stands for every
// semantic model.
//
// Nodes live in an arena owned by the DAG and refer to their parents by
// NodeID. Node IDs are assigned in construction order: parents are built
// before their child, depth first, in input order, so the sink always has the
// highest ID and the same query always produces the same IDs.
//
// A Path records the nodes walked from the node where a resolution started to
// the node where something was found (or went wrong). Paths are persistent
// lists: prefixing a path shares the rest of it.
package resolution
