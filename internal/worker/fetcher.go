package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
)

// Fetcher loads the flattened documents of a data source.
type Fetcher interface {
	Fetch(ctx context.Context, basePath, dataSource string) ([]facet.Document, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, basePath, dataSource string) ([]facet.Document, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, basePath, dataSource string) ([]facet.Document, error) {
	return f(ctx, basePath, dataSource)
}

// HTTPFetcher reads {basePath}/api/search/{dataSource}.json.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher. A nil client gets a 30s timeout default.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

// SearchDataURL returns the location of a data source's flattened documents.
func SearchDataURL(basePath, dataSource string) string {
	return fmt.Sprintf("%s/api/search/%s.json", strings.TrimRight(basePath, "/"), url.PathEscape(dataSource))
}

// Fetch downloads and decodes the documents. Any failure is a domain.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, basePath, dataSource string) ([]facet.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, SearchDataURL(basePath, dataSource), nil)
	if err != nil {
		return nil, domain.NewFetchError(dataSource, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(dataSource, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewFetchError(dataSource, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewFetchError(dataSource, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var docs []facet.Document
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, domain.NewFetchError(dataSource, fmt.Errorf("decode documents: %w", err))
	}
	return docs, nil
}
