package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing data source, collection or record.
	ErrNotFound = errors.New("not found")
	// ErrNotInitialized signals a query against a data source whose index was never built.
	ErrNotInitialized = errors.New("search engine not initialized")
	// ErrTerminated signals use of an engine or worker after termination.
	ErrTerminated = errors.New("search engine terminated")
	// ErrUnknownSort signals a sort key missing from the configuration.
	ErrUnknownSort = errors.New("unknown sort key")
	// ErrUnknownFacet signals a filter or aggregation on an unconfigured facet.
	ErrUnknownFacet = errors.New("unknown facet")
	// ErrInvalidConfig signals an invalid facet configuration.
	ErrInvalidConfig = errors.New("invalid facet configuration")
	// ErrInvalidRequest signals invalid query parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// FetchError wraps a data-fetch failure (missing file, bad JSON, HTTP error) with its source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError creates a data-fetch error for the given source.
func NewFetchError(source string, err error) error {
	return &FetchError{Source: source, Err: err}
}
