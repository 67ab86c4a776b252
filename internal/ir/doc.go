// Package ir encodes resolved queries as canonical JSON and derives content
// fingerprints from that encoding.
//
// Two queries that resolve to the same specs have the same fingerprint, no
// matter how their inputs were spelled: "Bookings" and "bookings", or
// "metric_time" and "metric_time__day" when day is the default grain.
//
// Constraints on the encoding:
//   - no floats and no null, numbers are int64
//   - object keys sorted by UTF-16 code units (RFC 8785)
//   - strings NFC normalized
package ir
