// Package store persists per-campaign baselines captured during the
// induction round. The in-memory store is the default; the Postgres store
// survives restarts so a redeployed process keeps reconciling without a
// fresh induction.
package store
