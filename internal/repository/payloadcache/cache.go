// Package payloadcache keeps flattened search payloads in a shared key-value store so that
// server replicas do not re-flatten the corpus after a restart.
package payloadcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/db"
)

// store is the consumer interface for the payload cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Options configures a Cache.
type Options struct {
	KeyPrefix string
	TTL       time.Duration
	Codec     Codec
}

// Cache stores compressed payloads keyed by data source.
type Cache struct {
	store      store
	opts       Options
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a payload cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly; may be nil.
func New(s store, opts Options, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	if opts.Codec == "" {
		opts.Codec = CodecZSTD
	}
	return &Cache{
		store:      s,
		opts:       opts,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns the cached payload of a data source. Store failures count as misses.
func (c *Cache) Get(ctx context.Context, dataSource string) ([]byte, bool) {
	key := c.key(dataSource)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("payload_cache_get_failed", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return nil, false
	}

	payload, err := decode(data)
	if err != nil {
		c.logger.Warn("payload_cache_corrupt", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return nil, false
	}

	c.inc("hit")
	return payload, true
}

// Put stores the payload of a data source. Failures are logged, never returned.
func (c *Cache) Put(ctx context.Context, dataSource string, payload []byte) {
	key := c.key(dataSource)

	data, err := encode(c.opts.Codec, payload)
	if err != nil {
		c.logger.Warn("payload_cache_encode_failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.opts.TTL); err != nil {
		c.logger.Warn("payload_cache_put_failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.logger.Debug("payload_cached",
		zap.String("data_source", dataSource),
		zap.Int("raw_bytes", len(payload)),
		zap.Int("stored_bytes", len(data)),
	)
}

// Invalidate drops the cached payloads of the given data sources.
func (c *Cache) Invalidate(ctx context.Context, dataSources ...string) error {
	keys := make([]string, len(dataSources))
	for i, ds := range dataSources {
		keys[i] = c.key(ds)
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate payloads: %w", err)
	}
	return nil
}

func (c *Cache) key(dataSource string) string {
	return c.opts.KeyPrefix + "payload:" + dataSource
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
