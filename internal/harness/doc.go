// Package harness runs query resolution scenarios against a manifest and
// compares the outcome with expectations and golden snapshots.
//
// # Scenario Format
//
//	name: bookings
//	description: "Bookings resolve at the requested grain"
//	manifest: ../manifests/simple
//	cases:
//	  - name: by_month
//	    request:
//	      metrics: [bookings]
//	      group_by: [metric_time__month]
//	    expect:
//	      status: resolved
//	      group_by: [metric_time__month]
//	  - name: negative_limit
//	    request: {metrics: [bookings], limit: -1}
//	    expect:
//	      status: failed
//	      issues: ["is not >= 0"]
//
// The manifest path is relative to the scenario file.
//
// # Expectations
//
//   - status: resolved, failed or error
//   - issues: substrings that must each appear in some rendered issue
//   - metrics, group_by: the resolved metric names and group-by items, in
//     dunder form, in order
//
// # Determinism
//
// Every case is recorded in an in-memory history store under a run named
// after the scenario, so case N always has seq N. Snapshots contain the
// resolved spec encoding rather than its fingerprint, which keeps golden
// files readable and diffable.
package harness
