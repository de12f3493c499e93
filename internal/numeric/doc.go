// Package numeric is the ingestion-time normalization boundary.
//
// The metrics source reports values in several historical shapes: plain
// numbers, numeric strings, and nested result structures. Everything is
// coerced here, once, so the rest of the collector only ever sees the
// canonical metric schema. Unparsable values default to zero.
package numeric
