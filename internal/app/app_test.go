package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-tables/internal/api"
	"duck-tables/internal/config"
	"duck-tables/internal/domain"
	"duck-tables/internal/service/table"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		MockDataDir:        filepath.Join(dir, "mock"),
		MockSeed:           7,
		MockRows:           60,
		MetaDBPath:         filepath.Join(dir, "meta.sqlite"),
		QueryTimeout:       10 * time.Second,
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
	}
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), Deps{Cfg: cfg, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNew_MockData(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)
	require.NotNil(t, a.Refresher)
	assert.Len(t, a.Engine.Datasets(), 3)

	h := a.Router(t.Context())

	w := serve(t, h, http.MethodGet, "/v1/presets")
	require.Equal(t, http.StatusOK, w.Code)
	var list api.PresetList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, len(demoPresets), list.Total)

	for _, p := range demoPresets {
		t.Run(p.Name, func(t *testing.T) {
			w := serve(t, h, http.MethodPost, "/v1/presets/"+p.Name+"/run")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var page table.Page
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
			assert.NotEmpty(t, page.Rows)
			assert.NotEmpty(t, page.Footers)
		})
	}

	w = serve(t, h, http.MethodPost, "/v1/datasets/refresh")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(2), a.Refresher.Generation())
}

func TestNew_SeedsOnce(t *testing.T) {
	cfg := testConfig(t)
	first := newApp(t, cfg)
	require.NoError(t, first.Close())

	second := newApp(t, cfg)
	_, total, err := second.Services.Presets.List(context.Background(), "", domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, len(demoPresets), total)
}

func TestNew_Manifest(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kpis.csv"), []byte("team,score\nred,3\nblue,4\n"), 0o644))
	cfg.DatasetsFile = filepath.Join(dir, "datasets.yaml")
	require.NoError(t, os.WriteFile(cfg.DatasetsFile, []byte("datasets:\n  - {name: kpis, path: kpis.csv}\n"), 0o644))

	a := newApp(t, cfg)
	assert.Nil(t, a.Refresher)
	assert.Nil(t, a.Scheduler)
	require.NoError(t, a.Start(t.Context()))

	h := a.Router(t.Context())
	assert.Equal(t, http.StatusConflict, serve(t, h, http.MethodPost, "/v1/datasets/refresh").Code)

	w := serve(t, h, http.MethodGet, "/v1/datasets/kpis/columns")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"score"`)

	_, total, err := a.Services.Presets.List(context.Background(), "", domain.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestNew_MissingManifest(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatasetsFile = filepath.Join(t.TempDir(), "nope.yaml")
	_, err := New(context.Background(), Deps{Cfg: cfg, Logger: slog.New(slog.DiscardHandler)})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStart_Schedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.MockRefreshCron = "@every 1h"
	a := newApp(t, cfg)
	require.NoError(t, a.Start(t.Context()))
	assert.WithinDuration(t, time.Now().Add(time.Hour), a.Scheduler.Next(), time.Minute)
}
