package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"duck-tables/internal/domain"
	"duck-tables/internal/service/preset"
	"duck-tables/internal/service/table"
)

// PresetList is the body of GET /v1/presets.
type PresetList struct {
	Data      []domain.Preset `json:"data"`
	Total     int             `json:"total"`
	Page      int             `json:"page"`
	PageCount int             `json:"page_count"`
}

// PresetBody is a preset with its decoded request.
type PresetBody struct {
	domain.Preset
	Request table.Request `json:"request"`
}

// ListPresets handles GET /v1/presets?dataset=&page=&page_size=.
func (h *APIHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	list, total, err := h.svc.Presets.List(r.Context(), r.URL.Query().Get("dataset"), page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []domain.Preset{}
	}
	writeJSON(w, http.StatusOK, PresetList{Data: list, Total: total, Page: page.Page, PageCount: page.PageCount(total)})
}

// CreatePreset handles POST /v1/presets.
func (h *APIHandler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	var req preset.SaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.svc.Presets.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetPreset handles GET /v1/presets/{name}.
func (h *APIHandler) GetPreset(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Presets.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, PresetBody{Preset: p.Preset, Request: p.Table})
}

// UpdatePreset handles PUT /v1/presets/{name}. The name in the path wins
// over one in the body.
func (h *APIHandler) UpdatePreset(w http.ResponseWriter, r *http.Request) {
	var req preset.SaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.Name = chi.URLParam(r, "name")
	p, err := h.svc.Presets.Update(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePreset handles DELETE /v1/presets/{name}.
func (h *APIHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Presets.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunPreset handles POST /v1/presets/{name}/run?page=&page_size=.
func (h *APIHandler) RunPreset(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out, err := h.svc.Presets.Run(r.Context(), chi.URLParam(r, "name"), page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
