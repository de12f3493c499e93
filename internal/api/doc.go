// Package api implements the metrics-source REST client.
//
// The client exposes the five reads the collector needs:
//   - account metadata
//   - campaign roster (paged, including deleted campaigns)
//   - campaign-level insights for a date range (paged)
//   - campaign-level insights over the account lifetime (paged)
//   - billing-detail node (best effort, nil when unavailable)
//
// Every call is independently catchable; retries apply to 5xx and 429.
package api
