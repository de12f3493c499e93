// Package model defines shared data types used across the collector.
//
// Conventions:
//   - Metric values: float64 (deltas against a baseline may go negative)
//   - Money: major currency units after minor-unit conversion at ingestion
//   - Account IDs: canonical "act_<digits>" form plus the bare numeric form
//   - Baseline keys: "<numeric account id>-<campaign id>"
package model
