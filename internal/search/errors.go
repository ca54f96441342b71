package search

import "errors"

var (
	// ErrNotFound is returned when the index or endpoint does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidEndpoint is returned for endpoints outside the configured
	// allow-list. Messages carrying one are never retried.
	ErrInvalidEndpoint = errors.New("invalid search endpoint")
)
