package engine

import "github.com/kailas-cloud/facetdex/internal/domain/facet"

// Page size defaults.
const (
	DefaultPerPage = 25
	DefaultPage    = 1
	MaxPage        = 1 << 20
)

// Request is a faceted query against one data source.
type Request struct {
	DataSource string              `json:"dataSource"`
	Query      string              `json:"query"`
	Page       int                 `json:"page,omitempty"`
	PerPage    int                 `json:"perPage,omitempty"`
	Sort       string              `json:"sort,omitempty"`
	Filters    map[string][]string `json:"filters,omitempty"`
}

// Bucket is one facet value with the number of matching documents.
type Bucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
	Selected bool   `json:"selected"`
}

// Aggregation holds the buckets of one facet.
type Aggregation struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Buckets []Bucket `json:"buckets"`
}

// Pagination describes the returned page.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// Result is a page of documents plus the aggregations of every configured facet.
type Result struct {
	Pagination   Pagination             `json:"pagination"`
	Items        []facet.Document       `json:"items"`
	Aggregations map[string]Aggregation `json:"aggregations"`
}
