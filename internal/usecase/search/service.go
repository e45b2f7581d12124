package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/metrics"
)

const warmupConcurrency = 4

type entry struct {
	docs    []facet.Document
	payload []byte
}

// Service builds and caches the flattened search payload of every data source. Each data source
// reads the raw collection of the same name.
type Service struct {
	corpus    Corpus
	flattener Flattener
	configs   map[string]facet.Config
	cache     PayloadCache
	logger    *zap.Logger

	mu      sync.RWMutex
	entries map[string]entry
	gen     map[string]uint64 // bumped by Invalidate; builds from an older generation are not stored
	group   singleflight.Group
}

// New creates a search payload service. cache can be nil.
func New(
	corpus Corpus, flattener Flattener, configs map[string]facet.Config,
	cache PayloadCache, logger *zap.Logger,
) *Service {
	return &Service{
		corpus:    corpus,
		flattener: flattener,
		configs:   configs,
		cache:     cache,
		logger:    logger,
		entries:   make(map[string]entry),
		gen:       make(map[string]uint64),
	}
}

// DataSources returns the configured data sources in name order.
func (s *Service) DataSources() []string {
	out := make([]string, 0, len(s.configs))
	for ds := range s.configs {
		out = append(out, ds)
	}
	sort.Strings(out)
	return out
}

// Config returns the facet configuration of a data source.
func (s *Service) Config(dataSource string) (facet.Config, error) {
	cfg, ok := s.configs[dataSource]
	if !ok {
		return facet.Config{}, fmt.Errorf("%w: data source %q", domain.ErrNotFound, dataSource)
	}
	return cfg.Clone(), nil
}

// Documents returns the flattened documents of a data source.
func (s *Service) Documents(ctx context.Context, dataSource string) ([]facet.Document, error) {
	e, err := s.load(ctx, dataSource)
	if err != nil {
		return nil, err
	}
	return e.docs, nil
}

// Payload returns the JSON encoding of Documents.
func (s *Service) Payload(ctx context.Context, dataSource string) ([]byte, error) {
	e, err := s.load(ctx, dataSource)
	if err != nil {
		return nil, err
	}
	return e.payload, nil
}

// Warmup builds every data source in parallel. The first failure cancels the rest.
func (s *Service) Warmup(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupConcurrency)
	for _, ds := range s.DataSources() {
		g.Go(func() error {
			_, err := s.load(ctx, ds)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	return nil
}

// Invalidate drops the cached payload of a data source from the shared cache and memory. Builds
// already in flight finish for their callers but are not kept, so the next load reads the corpus.
func (s *Service) Invalidate(ctx context.Context, dataSource string) error {
	if _, err := s.Config(dataSource); err != nil {
		return err
	}
	var cacheErr error
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, dataSource); err != nil {
			cacheErr = fmt.Errorf("invalidate %s: %w", dataSource, err)
		}
	}

	s.mu.Lock()
	delete(s.entries, dataSource)
	s.gen[dataSource]++
	s.group.Forget(dataSource)
	s.mu.Unlock()
	return cacheErr
}

func (s *Service) load(ctx context.Context, dataSource string) (entry, error) {
	cfg, err := s.Config(dataSource)
	if err != nil {
		return entry{}, err
	}

	s.mu.RLock()
	e, ok := s.entries[dataSource]
	gen := s.gen[dataSource]
	s.mu.RUnlock()
	metrics.CacheResult("memory", ok)
	if ok {
		return e, nil
	}

	v, err, _ := s.group.Do(dataSource, func() (any, error) {
		built, err := s.build(ctx, dataSource, cfg)
		if err != nil {
			return entry{}, err
		}
		s.mu.Lock()
		if s.gen[dataSource] == gen {
			s.entries[dataSource] = built
		}
		s.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return entry{}, err //nolint:wrapcheck // wrapped by build
	}
	return v.(entry), nil
}

func (s *Service) build(ctx context.Context, dataSource string, cfg facet.Config) (entry, error) {
	log := s.logger.With(zap.String("data_source", dataSource))

	if s.cache != nil {
		if payload, ok := s.cache.Get(ctx, dataSource); ok {
			var docs []facet.Document
			if err := json.Unmarshal(payload, &docs); err == nil {
				log.Debug("payload_cache_hit", zap.Int("documents", len(docs)))
				return entry{docs: docs, payload: payload}, nil
			}
			log.Warn("payload_cache_undecodable")
		}
	}

	start := time.Now()
	recs, err := s.corpus.Collection(ctx, dataSource)
	if err != nil {
		return entry{}, fmt.Errorf("read %s: %w", dataSource, err)
	}
	docs := s.flattener.All(recs, cfg)

	payload, err := json.Marshal(docs)
	if err != nil {
		return entry{}, fmt.Errorf("encode %s: %w", dataSource, err)
	}
	if s.cache != nil {
		s.cache.Put(ctx, dataSource, payload)
	}

	log.Info("payload_built",
		zap.Int("records", len(recs)),
		zap.Int("bytes", len(payload)),
		zap.Duration("duration", time.Since(start)),
	)
	return entry{docs: docs, payload: payload}, nil
}
