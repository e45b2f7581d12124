package engine

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
)

// Registry holds one index per data source. It is not safe for concurrent use: a single
// owner (the worker goroutine) drives it.
type Registry struct {
	indexes    map[string]*Index
	terminated bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{indexes: make(map[string]*Index)}
}

// Initialize builds the index for key. A key that is already initialized is left untouched.
func (r *Registry) Initialize(key string, docs []facet.Document, cfg facet.Config) error {
	if r.terminated {
		return domain.ErrTerminated
	}
	if _, ok := r.indexes[key]; ok {
		return nil
	}
	return r.build(key, docs, cfg)
}

// Reload discards the index for key and builds a new one. On failure the previous index stays.
func (r *Registry) Reload(key string, docs []facet.Document, cfg facet.Config) error {
	if r.terminated {
		return domain.ErrTerminated
	}
	return r.build(key, docs, cfg)
}

func (r *Registry) build(key string, docs []facet.Document, cfg facet.Config) error {
	ix, err := Build(docs, cfg)
	if err != nil {
		return fmt.Errorf("build index %q: %w", key, err)
	}
	r.indexes[key] = ix
	return nil
}

// Index returns the index of a data source.
func (r *Registry) Index(key string) (*Index, error) {
	if r.terminated {
		return nil, domain.ErrTerminated
	}
	ix, ok := r.indexes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotInitialized, key)
	}
	return ix, nil
}

// Query runs req against the index of req.DataSource.
func (r *Registry) Query(req Request) (*Result, error) {
	ix, err := r.Index(req.DataSource)
	if err != nil {
		return nil, err
	}
	return ix.Search(req)
}

// Keys returns the initialized data sources in lexical order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.indexes))
	for k := range r.indexes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Terminate drops every index. Later calls fail with domain.ErrTerminated.
func (r *Registry) Terminate() {
	r.indexes = map[string]*Index{}
	r.terminated = true
}
