package facetdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/facetdex/internal/db/redis"
	"github.com/kailas-cloud/facetdex/internal/domain/tag"
	"github.com/kailas-cloud/facetdex/internal/flatten"
	"github.com/kailas-cloud/facetdex/internal/repository/corpus"
	"github.com/kailas-cloud/facetdex/internal/repository/payloadcache"
	exploreuc "github.com/kailas-cloud/facetdex/internal/usecase/explore"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/facetdex/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "facetdex:"
	defaultCacheTTL         = time.Hour
)

// Internal interfaces for substitution in tests.
type exploreUseCase interface {
	Config(dataSource string) (Config, error)
	Search(ctx context.Context, req Request) (*Result, error)
	Insights(ctx context.Context, req InsightsRequest) (*InsightsResult, error)
	Reload(ctx context.Context, dataSource string) error
}

type payloadUseCase interface {
	DataSources() []string
	Payload(ctx context.Context, dataSource string) ([]byte, error)
}

// Client is the facetdex SDK entry point. It is safe for concurrent use.
type Client struct {
	explore   exploreUseCase
	payloads  payloadUseCase
	healthSvc healthUseCase
	closers   []func()
	obs       *observer
}

// New reads the corpus, builds every data source index and returns a ready Client.
// The provided context bounds the initial build.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.fsys == nil {
		return nil, errors.New("facetdex: corpus required (use WithDataDir or WithFS)")
	}
	if cfg.configs == nil {
		cfg.configs = DefaultConfigs()
	}
	if len(cfg.configs) == 0 {
		return nil, errors.New("facetdex: no data sources configured")
	}

	tags := tag.Default()
	if cfg.tagFile != "" {
		var err error
		if tags, err = tag.Load(cfg.tagFile); err != nil {
			return nil, fmt.Errorf("facetdex: %w", err)
		}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}
	var (
		cache  searchuc.PayloadCache
		pinger healthuc.CachePinger
	)
	if len(cfg.redisAddrs) > 0 {
		store, err := createCache(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, store.Close)

		codec, err := payloadcache.ParseCodec(cfg.compression)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("facetdex: %w", err)
		}
		prefix := cfg.keyPrefix
		if prefix == "" {
			prefix = defaultKeyPrefix
		}
		cache = payloadcache.New(store, payloadcache.Options{
			KeyPrefix: prefix,
			TTL:       defaultCacheTTL,
			Codec:     codec,
		}, nil, zap.NewNop())
		pinger = store
	}

	logger := zap.NewNop()
	searchSvc := searchuc.New(corpus.New(cfg.fsys), flatten.New(tags), cfg.configs, cache, logger)
	exploreSvc := exploreuc.New(searchSvc, exploreuc.Options{
		DefaultPageSize: cfg.defaultPageSize,
		MaxPageSize:     cfg.maxPageSize,
	}, logger)
	c.closers = append([]func(){exploreSvc.Close}, c.closers...)

	start := time.Now()
	err = searchSvc.Warmup(ctx)
	if err == nil {
		err = exploreSvc.Start(ctx)
	}
	obs.observe("build", "", start, err)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("facetdex: build indexes: %w", err)
	}

	c.explore = exploreSvc
	c.payloads = searchSvc
	c.healthSvc = healthuc.New(exploreSvc, pinger)
	return c, nil
}

func createCache(ctx context.Context, cfg *clientConfig) (*dbRedis.Store, error) {
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.redisAddrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("facetdex: create redis store: %w", err)
	}
	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("facetdex: cache not ready: %w", err)
	}
	return s, nil
}

// Close stops the search worker and releases the cache connection.
func (c *Client) Close() {
	for _, fn := range c.closers {
		fn()
	}
	c.closers = nil
}

// DataSources returns the configured data sources in name order.
func (c *Client) DataSources() []string {
	return c.payloads.DataSources()
}

// Config returns the facet configuration of a data source, including combination facets.
func (c *Client) Config(dataSource string) (Config, error) {
	cfg, err := c.explore.Config(dataSource)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Search runs a faceted query.
func (c *Client) Search(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", req.DataSource, start, err) }()

	if res, err = c.explore.Search(ctx, req); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	c.obs.matched("search", req.DataSource, res.Pagination.Total)
	return res, nil
}

// Insights groups the buckets of a facet over every matching document.
func (c *Client) Insights(ctx context.Context, req InsightsRequest) (res *InsightsResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("insights", req.DataSource, start, err) }()

	if res, err = c.explore.Insights(ctx, req); err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}
	c.obs.matched("insights", req.DataSource, res.Total)
	return res, nil
}

// Payload returns the flattened documents of a data source as JSON.
func (c *Client) Payload(ctx context.Context, dataSource string) (payload []byte, err error) {
	start := time.Now()
	defer func() { c.obs.observe("payload", dataSource, start, err) }()

	if payload, err = c.payloads.Payload(ctx, dataSource); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return payload, nil
}

// Reload re-reads a data source from the corpus and rebuilds its index. The previous index
// keeps serving if the rebuild fails.
func (c *Client) Reload(ctx context.Context, dataSource string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("reload", dataSource, start, err) }()

	if err = c.explore.Reload(ctx, dataSource); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}
