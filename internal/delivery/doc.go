// Package delivery posts round results to the downstream collector with
// at-most-once semantics per delivery tag.
package delivery
