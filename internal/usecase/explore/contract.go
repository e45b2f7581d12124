package explore

import (
	"context"

	"github.com/kailas-cloud/facetdex/internal/domain/facet"
)

// Payloads provides the flattened documents and facet configuration of every data source.
type Payloads interface {
	DataSources() []string
	Config(dataSource string) (facet.Config, error)
	Documents(ctx context.Context, dataSource string) ([]facet.Document, error)
	Invalidate(ctx context.Context, dataSource string) error
}
