// Package issues describes what went wrong while resolving a query.
//
// Query problems are never Go errors. Each resolver input (a metric name, a
// group-by item, the where filter, ...) is mapped to an IssueSet, and the
// resolution either produces a query spec or a non-empty Mapping, never both.
//
// Issues are immutable. Every issue records the resolution path on which it
// was found; when a result computed below a node is handed up to that node,
// the issue is re-rooted with WithPathPrefix, which also re-roots its parent
// issues.
package issues
