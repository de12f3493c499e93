// Package reconcile turns cumulative billing snapshots into period deltas
// by subtracting the stored induction baselines.
package reconcile
