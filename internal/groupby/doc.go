// Package groupby resolves group-by items against a resolution DAG.
//
// Candidates are pushed down from the leaves of the DAG: each measure node
// starts from every group-by item its measure can be grouped by, filters them
// with the requested patterns, and hands what is left to its child. Metric
// and query nodes keep only the candidates that all of their parents agree
// on. The result at the start node is either a non-empty candidate set or a
// set of issues explaining where candidates ran out, never both.
package groupby
