package api

import (
	"context"
	"net/http"

	"duck-tables/internal/service/comparison"
	"duck-tables/internal/service/table"
)

// RunTable handles POST /v1/tables/query.
func (h *APIHandler) RunTable(w http.ResponseWriter, r *http.Request) {
	handle(h, func(ctx context.Context, req table.Request) (*table.Page, error) {
		return h.svc.Tables.Run(ctx, req)
	})(w, r)
}

// ExplainTable handles POST /v1/tables/explain.
func (h *APIHandler) ExplainTable(w http.ResponseWriter, r *http.Request) {
	handle(h, func(ctx context.Context, req table.Request) (*table.Plan, error) {
		return h.svc.Tables.Explain(ctx, req)
	})(w, r)
}

// Compare handles POST /v1/comparisons.
func (h *APIHandler) Compare(w http.ResponseWriter, r *http.Request) {
	handle(h, func(ctx context.Context, req comparison.Request) (*comparison.Result, error) {
		return h.svc.Comparisons.Compare(ctx, req)
	})(w, r)
}

// Trend handles POST /v1/comparisons/trend.
func (h *APIHandler) Trend(w http.ResponseWriter, r *http.Request) {
	handle(h, func(ctx context.Context, req comparison.TrendRequest) (*comparison.Result, error) {
		return h.svc.Comparisons.Trend(ctx, req)
	})(w, r)
}
