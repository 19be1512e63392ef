// Package producer contains the execution engine that drives repeated
// asynchronous record production against a partitioned log for load
// generation.
//
// An Executor performs one production cycle per Execute call: it draws a
// partition and a record from its suppliers, issues one asynchronous send
// (or a transactional batch of sends), and registers a completion
// continuation that updates the cumulative tally and notifies the
// observer. Executors are passive; a caller loop (see internal/runner)
// drives them.
package producer
