// Package executor runs batches of independent tasks with a bounded number
// of workers, returning results in submission order.
package executor
