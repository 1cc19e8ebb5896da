package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"duck-tables/internal/domain"
	"duck-tables/internal/engine"
)

// DatasetList is the body of GET /v1/datasets.
type DatasetList struct {
	Data []engine.Dataset `json:"data"`
}

// ColumnList is the body of GET /v1/datasets/{name}/columns.
type ColumnList struct {
	Dataset string          `json:"dataset"`
	Columns []engine.Column `json:"columns"`
}

// ListDatasets handles GET /v1/datasets.
func (h *APIHandler) ListDatasets(w http.ResponseWriter, _ *http.Request) {
	ds := h.svc.Catalog.Datasets()
	if ds == nil {
		ds = []engine.Dataset{}
	}
	writeJSON(w, http.StatusOK, DatasetList{Data: ds})
}

// DescribeDataset handles GET /v1/datasets/{name}/columns.
func (h *APIHandler) DescribeDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cols, err := h.svc.Catalog.Describe(r.Context(), name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ColumnList{Dataset: name, Columns: cols})
}

// RefreshDatasets handles POST /v1/datasets/refresh.
func (h *APIHandler) RefreshDatasets(w http.ResponseWriter, r *http.Request) {
	if h.svc.Refresher == nil {
		writeError(w, r, h.logger, domain.ErrConflict("datasets come from a manifest and cannot be regenerated"))
		return
	}
	m, err := h.svc.Refresher.Refresh(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DatasetList{Data: m.Datasets})
}

func errRequired(field string) error {
	return domain.ErrValidation("%s is required", field)
}
