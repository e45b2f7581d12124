package facetdex

import "github.com/kailas-cloud/facetdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound       = domain.ErrNotFound
	ErrNotInitialized = domain.ErrNotInitialized
	ErrTerminated     = domain.ErrTerminated
	ErrUnknownSort    = domain.ErrUnknownSort
	ErrUnknownFacet   = domain.ErrUnknownFacet
	ErrInvalidConfig  = domain.ErrInvalidConfig
	ErrInvalidRequest = domain.ErrInvalidRequest
)

// FetchError reports a data source whose documents could not be loaded.
type FetchError = domain.FetchError
