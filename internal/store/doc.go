// Package store keeps a SQLite history of query resolutions.
//
// Each resolution is one row of the resolutions table, written once and
// never updated. Rows belong to a run (a UUIDv7 shared by every resolution
// of one CLI invocation or batch) and carry a logical sequence number within
// it. Wall-clock time is not recorded.
//
// Every query that returns rows orders them by seq ASC, id COLLATE BINARY
// ASC, and returns an empty slice rather than nil when nothing matches.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - a single open connection, since SQLite has one writer
package store
