package explore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/engine"
	"github.com/kailas-cloud/facetdex/internal/insights"
	"github.com/kailas-cloud/facetdex/internal/metrics"
	"github.com/kailas-cloud/facetdex/internal/worker"
)

// Options bounds query pagination.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// InsightsRequest is a query plus the facet to chart and an optional facet to group by.
type InsightsRequest struct {
	engine.Request
	Facet   string `json:"facet"`
	GroupBy string `json:"groupBy,omitempty"`
}

// InsightsResult holds the grouped buckets of a facet and their one-sentence summary.
type InsightsResult struct {
	Query   string         `json:"query"`
	Facet   string         `json:"facet"`
	GroupBy string         `json:"groupBy,omitempty"`
	Total   int            `json:"total"`
	Rows    []insights.Row `json:"rows"`
	Label   string         `json:"label"`
}

// Service answers faceted queries through a background search worker.
type Service struct {
	payloads Payloads
	worker   *worker.Worker
	client   *worker.Client
	opts     Options
	logger   *zap.Logger
}

// New creates an explorer whose worker fetches documents from payloads in process.
func New(payloads Payloads, opts Options, logger *zap.Logger, wopts ...worker.Option) *Service {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = engine.DefaultPerPage
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}

	fetch := worker.FetcherFunc(func(ctx context.Context, _, dataSource string) ([]facet.Document, error) {
		return payloads.Documents(ctx, dataSource)
	})
	w := worker.New(fetch, append([]worker.Option{worker.WithLogger(logger)}, wopts...)...)

	return &Service{
		payloads: payloads,
		worker:   w,
		client:   worker.NewClient(w),
		opts:     opts,
		logger:   logger,
	}
}

// Start runs the worker and loads every data source. ctx bounds the initial loads only; the
// worker runs until Close.
func (s *Service) Start(ctx context.Context) error {
	s.worker.Start(context.WithoutCancel(ctx))
	for _, ds := range s.payloads.DataSources() {
		if err := s.load(ctx, ds, false); err != nil {
			return err
		}
	}
	return nil
}

// Close terminates the worker.
func (s *Service) Close() {
	s.worker.Terminate()
}

// Config returns the facet configuration of a data source with combination facets registered.
func (s *Service) Config(dataSource string) (facet.Config, error) {
	cfg, err := s.payloads.Config(dataSource)
	if err != nil {
		return facet.Config{}, fmt.Errorf("get config: %w", err)
	}
	return cfg.WithCombinations(), nil
}

// Search runs a faceted query.
func (s *Service) Search(ctx context.Context, req engine.Request) (*engine.Result, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}
	start := time.Now()
	defer metrics.ObserveQuery(req.DataSource, "search", start)

	res, err := s.client.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.DataSource, err)
	}
	return res, nil
}

// Insights runs the query over every matching document and groups the buckets of req.Facet by
// the values of req.GroupBy.
func (s *Service) Insights(ctx context.Context, req InsightsRequest) (*InsightsResult, error) {
	if req.Facet == "" {
		return nil, fmt.Errorf("%w: facet is required", domain.ErrInvalidRequest)
	}
	docs, err := s.payloads.Documents(ctx, req.DataSource)
	if err != nil {
		return nil, fmt.Errorf("insights %s: %w", req.DataSource, err)
	}
	q := req.Request
	q.Page, q.PerPage = 1, max(len(docs), 1)

	start := time.Now()
	defer metrics.ObserveQuery(req.DataSource, "insights", start)

	res, err := s.client.Insights(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("insights %s: %w", req.DataSource, err)
	}

	primary, ok := res.Aggregations[req.Facet]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFacet, req.Facet)
	}
	var groupBy []engine.Bucket
	if req.GroupBy != "" {
		agg, ok := res.Aggregations[req.GroupBy]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFacet, req.GroupBy)
		}
		groupBy = agg.Buckets
	}

	rows := insights.GroupedBuckets(req.Facet, primary.Buckets, req.GroupBy, groupBy, res.Items)
	return &InsightsResult{
		Query:   req.Query,
		Facet:   req.Facet,
		GroupBy: req.GroupBy,
		Total:   res.Pagination.Total,
		Rows:    rows,
		Label:   insights.SummaryLabel(insights.Buckets(rows), primary.Title),
	}, nil
}

// Ready checks that every data source answers an identity query.
func (s *Service) Ready(ctx context.Context) error {
	for _, ds := range s.payloads.DataSources() {
		if _, err := s.client.Search(ctx, engine.Request{DataSource: ds, PerPage: 1}); err != nil {
			return fmt.Errorf("data source %s: %w", ds, err)
		}
	}
	return nil
}

// Reload drops cached payloads of a data source and rebuilds its index.
func (s *Service) Reload(ctx context.Context, dataSource string) error {
	if err := s.payloads.Invalidate(ctx, dataSource); err != nil {
		return fmt.Errorf("reload %s: %w", dataSource, err)
	}
	return s.load(ctx, dataSource, true)
}

func (s *Service) load(ctx context.Context, dataSource string, reload bool) error {
	cfg, err := s.payloads.Config(dataSource)
	if err != nil {
		return fmt.Errorf("load %s: %w", dataSource, err)
	}
	if err := s.client.Load(ctx, worker.LoadPayload{DataSource: dataSource, Config: cfg, Reload: reload}); err != nil {
		return fmt.Errorf("load %s: %w", dataSource, err)
	}

	if res, err := s.client.Search(ctx, engine.Request{DataSource: dataSource, PerPage: 1}); err == nil {
		metrics.IndexDocuments.WithLabelValues(dataSource).Set(float64(res.Pagination.Total))
	}
	return nil
}

func (s *Service) normalize(req *engine.Request) error {
	if req.Page < 0 || req.PerPage < 0 {
		return fmt.Errorf("%w: page and perPage must not be negative", domain.ErrInvalidRequest)
	}
	if req.Page > engine.MaxPage {
		return fmt.Errorf("%w: page %d exceeds %d", domain.ErrInvalidRequest, req.Page, engine.MaxPage)
	}
	if req.PerPage > s.opts.MaxPageSize {
		return fmt.Errorf("%w: perPage %d exceeds %d", domain.ErrInvalidRequest, req.PerPage, s.opts.MaxPageSize)
	}
	if req.Page == 0 {
		req.Page = engine.DefaultPage
	}
	if req.PerPage == 0 {
		req.PerPage = s.opts.DefaultPageSize
	}
	return nil
}
