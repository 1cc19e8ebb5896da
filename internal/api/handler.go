// Package api serves the table backend over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"duck-tables/internal/dataset"
	"duck-tables/internal/domain"
	"duck-tables/internal/engine"
	"duck-tables/internal/middleware"
	"duck-tables/internal/service/comparison"
	"duck-tables/internal/service/preset"
	"duck-tables/internal/service/table"
)

const maxBodyBytes = 1 << 20

type catalogService interface {
	Datasets() []engine.Dataset
	Describe(ctx context.Context, dataset string) ([]engine.Column, error)
}

type tableService interface {
	Explain(ctx context.Context, req table.Request) (*table.Plan, error)
	Run(ctx context.Context, req table.Request) (*table.Page, error)
}

type comparisonService interface {
	Compare(ctx context.Context, req comparison.Request) (*comparison.Result, error)
	Trend(ctx context.Context, req comparison.TrendRequest) (*comparison.Result, error)
}

type presetService interface {
	Create(ctx context.Context, req preset.SaveRequest) (*domain.Preset, error)
	Update(ctx context.Context, req preset.SaveRequest) (*domain.Preset, error)
	Get(ctx context.Context, name string) (*preset.Preset, error)
	List(ctx context.Context, dataset string, page domain.PageRequest) ([]domain.Preset, int, error)
	Delete(ctx context.Context, name string) error
	Run(ctx context.Context, name string, page domain.PageRequest) (*table.Page, error)
}

type refresher interface {
	Refresh(ctx context.Context) (*dataset.Manifest, error)
}

// Services are the backends of the handler. Refresher may be nil when the
// datasets come from a manifest instead of the mock generator.
type Services struct {
	Catalog     catalogService
	Tables      tableService
	Comparisons comparisonService
	Presets     presetService
	Refresher   refresher
}

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimit          middleware.RateLimitConfig
	RequestTimeout     time.Duration
}

// APIHandler implements the /v1 endpoints.
type APIHandler struct {
	svc    Services
	logger *slog.Logger
}

// NewHandler creates an APIHandler.
func NewHandler(svc Services, logger *slog.Logger) *APIHandler {
	return &APIHandler{svc: svc, logger: logger}
}

// NewRouter mounts the handler under /v1 with request IDs, access logging,
// panic recovery, CORS and rate limiting. ctx bounds the rate limiter's
// background sweeper.
func NewRouter(ctx context.Context, h *APIHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.NewRateLimiter(ctx, cfg.RateLimit).Handler)
		if cfg.RequestTimeout > 0 {
			r.Use(chimw.Timeout(cfg.RequestTimeout))
		}
		h.Mount(r)
	})
	return r
}

// Mount registers the /v1 routes on r.
func (h *APIHandler) Mount(r chi.Router) {
	r.Get("/datasets", h.ListDatasets)
	r.Get("/datasets/{name}/columns", h.DescribeDataset)
	r.Post("/datasets/refresh", h.RefreshDatasets)

	r.Post("/sql/query", h.BuildQuery)
	r.Post("/sql/join", h.BuildJoinQuery)
	r.Post("/sql/lag", h.BuildLag)
	r.Post("/format", h.FormatValues)

	r.Post("/tables/query", h.RunTable)
	r.Post("/tables/explain", h.ExplainTable)

	r.Post("/comparisons", h.Compare)
	r.Post("/comparisons/trend", h.Trend)

	r.Get("/presets", h.ListPresets)
	r.Post("/presets", h.CreatePreset)
	r.Get("/presets/{name}", h.GetPreset)
	r.Put("/presets/{name}", h.UpdatePreset)
	r.Delete("/presets/{name}", h.DeletePreset)
	r.Post("/presets/{name}/run", h.RunPreset)
}

// decodeJSON reads a single JSON document into v. Unknown fields are
// rejected; numbers inside untyped values stay exact as json.Number.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ErrValidation("request body is required")
		}
		return domain.ErrValidation("invalid request body: %v", err)
	}
	if dec.More() {
		return domain.ErrValidation("request body must contain a single JSON document")
	}
	return nil
}

// handle decodes a request of type Req, calls fn and writes its result as 200.
func handle[Req, Resp any](h *APIHandler, fn func(context.Context, Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func pageFromQuery(r *http.Request) (domain.PageRequest, error) {
	var p domain.PageRequest
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, domain.ErrValidation("invalid page %q", v)
		}
		p.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > domain.MaxPageSize {
			return p, domain.ErrValidation("invalid page_size %q", v)
		}
		p.PageSize = n
	}
	return p, nil
}
