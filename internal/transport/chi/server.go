package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/engine"
	logpkg "github.com/kailas-cloud/facetdex/internal/logger"
	exploreuc "github.com/kailas-cloud/facetdex/internal/usecase/explore"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// ErrorCode is the machine-readable error kind of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest    ErrorCode = "bad_request"
	ErrorCodeUnauthorized  ErrorCode = "unauthorized"
	ErrorCodeNotFound      ErrorCode = "not_found"
	ErrorCodeRateLimited   ErrorCode = "rate_limited"
	ErrorCodeUnavailable   ErrorCode = "unavailable"
	ErrorCodeInternalError ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// ReloadResponse is the body of a successful reload.
type ReloadResponse struct {
	DataSource string `json:"dataSource"`
	Status     string `json:"status"`
}

// Payloads serves the flattened documents of a data source as JSON.
type Payloads interface {
	Payload(ctx context.Context, dataSource string) ([]byte, error)
}

// Corpus serves raw records.
type Corpus interface {
	Raw(ctx context.Context, name string) ([]byte, error)
	Slugs(ctx context.Context, collection string) ([]string, error)
}

// Explorer answers faceted queries.
type Explorer interface {
	Config(dataSource string) (facet.Config, error)
	Search(ctx context.Context, req engine.Request) (*engine.Result, error)
	Insights(ctx context.Context, req exploreuc.InsightsRequest) (*exploreuc.InsightsResult, error)
	Reload(ctx context.Context, dataSource string) error
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers of the search API.
type Server struct {
	payloads      Payloads
	corpus        Corpus
	explorer      Explorer
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	payloads Payloads,
	corpus Corpus,
	explorer Explorer,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		payloads: payloads,
		corpus:   corpus,
		explorer: explorer,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		fetchErrorHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrUnknownSort, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrUnknownFacet, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrInvalidConfig, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrNotInitialized, http.StatusServiceUnavailable, ErrorCodeUnavailable),
		sentinelHandler(domain.ErrTerminated, http.StatusServiceUnavailable, ErrorCodeUnavailable),
	}
	return s
}

// Mount registers every route on r. admin guards the reload endpoint and limit the query
// endpoints; either may be nil.
func (s *Server) Mount(r chi.Router, admin, limit func(http.Handler) http.Handler) {
	if admin == nil {
		admin = passThrough
	}
	if limit == nil {
		limit = passThrough
	}

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search/{dataSource}.json", s.SearchData)
		r.Get("/slugs/{collection}.json", s.ListSlugs)
		r.Get("/{collection}.json", s.GetCollection)
		r.Get("/{collection}/{slug}.json", s.GetRecord)
	})

	r.Group(func(r chi.Router) {
		r.Use(limit)
		r.Post("/search/{dataSource}", s.Search)
		r.Post("/insights/{dataSource}", s.Insights)
		r.Get("/config/{dataSource}", s.GetConfig)
	})

	r.With(admin).Post("/admin/reload/{dataSource}", s.Reload)
}

func passThrough(next http.Handler) http.Handler { return next }

// SearchData handles GET /api/search/{dataSource}.json.
func (s *Server) SearchData(w http.ResponseWriter, r *http.Request) {
	payload, err := s.payloads.Payload(r.Context(), chi.URLParam(r, "dataSource"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeRaw(w, payload)
}

// GetCollection handles GET /api/{collection}.json.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	data, err := s.corpus.Raw(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeRaw(w, data)
}

// GetRecord handles GET /api/{collection}/{slug}.json.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection") + "/" + chi.URLParam(r, "slug")
	data, err := s.corpus.Raw(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeRaw(w, data)
}

// ListSlugs handles GET /api/slugs/{collection}.json.
func (s *Server) ListSlugs(w http.ResponseWriter, r *http.Request) {
	slugs, err := s.corpus.Slugs(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slugs)
}

// Search handles POST /search/{dataSource}.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if !s.decodeBody(w, r, &req) {
		return
	}
	req.DataSource = chi.URLParam(r, "dataSource")

	res, err := s.explorer.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Insights handles POST /insights/{dataSource}.
func (s *Server) Insights(w http.ResponseWriter, r *http.Request) {
	var req exploreuc.InsightsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	req.DataSource = chi.URLParam(r, "dataSource")

	res, err := s.explorer.Insights(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetConfig handles GET /config/{dataSource}.
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.explorer.Config(chi.URLParam(r, "dataSource"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Reload handles POST /admin/reload/{dataSource}.
func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	ds := chi.URLParam(r, "dataSource")
	if err := s.explorer.Reload(r.Context(), ds); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	logpkg.FromContext(r.Context(), s.logger).Info("data_source_reloaded", zap.String("data_source", ds))
	writeJSON(w, http.StatusOK, ReloadResponse{DataSource: ds, Status: "reloaded"})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeBody reads an optional JSON body into v. An empty body leaves v untouched.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.handleDomainError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return false
	}
	return true
}

func writeRaw(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals. Fetch errors
// keep their source and cause so a missing or unparsable data file is reported by name.
func safeDomainMessage(err error) string {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidRequest,
		domain.ErrUnknownSort,
		domain.ErrUnknownFacet,
		domain.ErrInvalidConfig,
		domain.ErrRateLimited,
		domain.ErrNotInitialized,
		domain.ErrTerminated,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// fetchErrorHandler reports any data-fetch failure, including a parse error, as not found.
func fetchErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		return false
	}
	writeError(w, http.StatusNotFound, ErrorCodeNotFound, msg)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
