// Package fetcher assembles one account's block of a round: metadata,
// campaign roster, insight rows and billing details, fetched concurrently
// and folded into a model.AccountBlock.
package fetcher
