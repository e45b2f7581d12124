package facetdex

import (
	"io/fs"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	fsys    fs.FS
	configs map[string]Config
	tagFile string

	redisAddrs  []string
	password    string
	keyPrefix   string
	compression string

	defaultPageSize int
	maxPageSize     int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDataDir reads the raw record corpus from a directory.
func WithDataDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.fsys = os.DirFS(dir)
	})
}

// WithFS reads the raw record corpus from fsys, e.g. an embed.FS.
func WithFS(fsys fs.FS) Option {
	return optionFunc(func(c *clientConfig) {
		c.fsys = fsys
	})
}

// WithDataSources restricts the client to the named built-in data sources.
func WithDataSources(names ...string) Option {
	return optionFunc(func(c *clientConfig) {
		all := DefaultConfigs()
		c.configs = make(map[string]Config, len(names))
		for _, n := range names {
			if cfg, ok := all[n]; ok {
				c.configs[n] = cfg
			}
		}
	})
}

// WithDataSource adds or replaces a data source with a custom facet configuration.
func WithDataSource(name string, cfg Config) Option {
	return optionFunc(func(c *clientConfig) {
		if c.configs == nil {
			c.configs = DefaultConfigs()
		}
		c.configs[name] = cfg
	})
}

// WithTagTable loads the tag hierarchy from a YAML file instead of the built-in table.
func WithTagTable(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.tagFile = path
	})
}

// WithRedis shares flattened payloads through a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.password = password
	})
}

// WithCacheCompression sets the payload cache codec: "zstd" (default), "lz4" or "none".
func WithCacheCompression(codec string) Option {
	return optionFunc(func(c *clientConfig) {
		c.compression = codec
	})
}

// WithKeyPrefix sets the payload cache key prefix. Default: "facetdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithPageSizes sets the default and maximum page sizes.
// Defaults: 25 and 1000.
func WithPageSizes(defaultSize, maxSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultPageSize = defaultSize
		c.maxPageSize = maxSize
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
