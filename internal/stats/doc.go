// Package stats computes derived statistics over stored trace sessions.
//
// Every entry point takes ad-hoc attribute constraints (queryir.Attrs),
// turns them into a predicate restricted to the table's allow-list and
// runs the selection through the store. Unknown attributes are dropped
// and logged at DEBUG.
//
// Empty selections are not errors: sums, averages and standard deviations
// over no rows are 0, and the CDF of no (or only zero) values is the
// single point (0, 0).
//
// The Engine holds no state besides the store handle and is safe for
// concurrent use.
package stats
