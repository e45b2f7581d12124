package health

import "context"

// IndexChecker reports whether every data source can answer queries.
type IndexChecker interface {
	Ready(ctx context.Context) error
}

// CachePinger checks shared payload cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
