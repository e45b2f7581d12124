package facetdex

import (
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/engine"
	"github.com/kailas-cloud/facetdex/internal/insights"
	exploreuc "github.com/kailas-cloud/facetdex/internal/usecase/explore"
)

// Query and result types.
type (
	// Request is a faceted query against one data source.
	Request = engine.Request
	// Result is a page of documents plus the aggregations of every facet.
	Result = engine.Result
	// Aggregation holds the buckets of one facet.
	Aggregation = engine.Aggregation
	// Bucket is one facet value with its document count.
	Bucket = engine.Bucket
	// Pagination describes the returned page.
	Pagination = engine.Pagination

	// InsightsRequest is a query plus the facet to chart and an optional facet to group by.
	InsightsRequest = exploreuc.InsightsRequest
	// InsightsResult holds grouped buckets and their summary sentence.
	InsightsResult = exploreuc.InsightsResult
	// InsightsRow is one grouped bucket.
	InsightsRow = insights.Row
)

// Configuration and document types.
type (
	// Config is the facet configuration of a data source.
	Config = facet.Config
	// FacetConfig configures one facet.
	FacetConfig = facet.Aggregation
	// Sorting is one named sort order.
	Sorting = facet.Sorting
	// Document is a flattened search document.
	Document = facet.Document
)

// DefaultConfigs returns the built-in facet configurations keyed by data source.
func DefaultConfigs() map[string]Config {
	return facet.DefaultSearchConfig()
}
