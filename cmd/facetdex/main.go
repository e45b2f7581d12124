package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/config"
	dbRedis "github.com/kailas-cloud/facetdex/internal/db/redis"
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/tag"
	"github.com/kailas-cloud/facetdex/internal/flatten"
	logpkg "github.com/kailas-cloud/facetdex/internal/logger"
	"github.com/kailas-cloud/facetdex/internal/metrics"
	"github.com/kailas-cloud/facetdex/internal/repository/corpus"
	"github.com/kailas-cloud/facetdex/internal/repository/payloadcache"
	chiTransport "github.com/kailas-cloud/facetdex/internal/transport/chi"
	exploreuc "github.com/kailas-cloud/facetdex/internal/usecase/explore"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/facetdex/internal/usecase/search"
	"github.com/kailas-cloud/facetdex/internal/version"
	"github.com/kailas-cloud/facetdex/internal/worker"
)

const cacheReadinessTimeout = 10 * time.Second

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting facetdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("data_dir", cfg.Data.Dir),
		zap.Strings("data_sources", cfg.Data.DataSources),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	metrics.RegisterSearchMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional shared payload cache
	var (
		payloadCache searchuc.PayloadCache
		cachePinger  healthuc.CachePinger
	)
	if cfg.Cache.Driver == config.CacheRedis {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, cacheReadinessTimeout); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		codec, err := payloadcache.ParseCodec(cfg.Cache.Compression)
		if err != nil {
			logger.Fatal("Invalid cache compression", zap.Error(err))
		}
		payloadCache = payloadcache.New(store, payloadcache.Options{
			KeyPrefix: cfg.Cache.KeyPrefix,
			TTL:       time.Duration(cfg.Cache.TTLSec) * time.Second,
			Codec:     codec,
		}, metrics.PayloadCacheTotal.MustCurryWith(prometheus.Labels{"layer": "redis"}), logger)
		cachePinger = store
		logger.Info("Connected to payload cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	tags := tag.Default()
	if cfg.Search.TagTable != "" {
		if tags, err = tag.Load(cfg.Search.TagTable); err != nil {
			logger.Fatal("Failed to load tag table", zap.Error(err))
		}
	}

	configs := selectConfigs(facet.DefaultSearchConfig(), cfg.Data.DataSources, logger)

	// Use case services
	corpusRepo := corpus.New(os.DirFS(cfg.Data.Dir))
	searchSvc := searchuc.New(corpusRepo, flatten.New(tags), configs, payloadCache, logger)

	start := time.Now()
	if err := searchSvc.Warmup(ctx); err != nil {
		logger.Fatal("Failed to build search payloads", zap.Error(err))
	}

	exploreSvc := exploreuc.New(searchSvc, exploreuc.Options{
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
	}, logger, worker.WithObserver(metrics.WorkerObserver{}))
	defer exploreSvc.Close()

	if err := exploreSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to build search indexes", zap.Error(err))
	}
	logger.Info("Search indexes ready", zap.Duration("duration", time.Since(start)))

	healthSvc := healthuc.New(exploreSvc, cachePinger)

	limiter := chiTransport.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Run(ctx)

	server := chiTransport.NewServer(searchSvc, corpusRepo, exploreSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Use(chiMiddleware.Timeout(time.Duration(cfg.Search.QueryTimeoutSec) * time.Second))
	server.Mount(r, chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys), limiter.Middleware)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      gzhttp.GzipHandler(r),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// selectConfigs keeps the facet configurations of the enabled data sources.
func selectConfigs(all map[string]facet.Config, enabled []string, logger *zap.Logger) map[string]facet.Config {
	out := make(map[string]facet.Config, len(enabled))
	for _, ds := range enabled {
		cfg, ok := all[ds]
		if !ok {
			logger.Fatal("No facet configuration for data source", zap.String("data_source", ds))
		}
		out[ds] = cfg
	}
	return out
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
