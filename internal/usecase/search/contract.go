package search

import (
	"context"

	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/record"
)

// Corpus reads raw record collections.
type Corpus interface {
	Collection(ctx context.Context, name string) ([]record.Record, error)
}

// Flattener turns raw records into expanded facet documents.
type Flattener interface {
	All(recs []record.Record, cfg facet.Config) []facet.Document
}

// PayloadCache is the optional shared cache of encoded payloads.
type PayloadCache interface {
	Get(ctx context.Context, dataSource string) ([]byte, bool)
	Put(ctx context.Context, dataSource string, payload []byte)
	Invalidate(ctx context.Context, dataSources ...string) error
}
