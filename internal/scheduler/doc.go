// Package scheduler drives the fetch, reconcile and deliver cycle. A short
// periodic tick is the single clock: it triggers rounds, detects overdue
// catch-up after a host suspend, and throttles the countdown log. The
// scheduler also runs the one-shot induction round that captures baselines
// for billing accounts.
package scheduler
