package app

import (
	"context"
	"fmt"

	"duck-tables/internal/dataset"
)

// restoreDatasets registers the startup datasets. Registered tables live in
// DuckDB and are lost when an in-memory engine restarts, so this runs on
// every start: either one mock generation or the configured manifest.
func (a *App) restoreDatasets(ctx context.Context) error {
	if a.Refresher != nil {
		m, err := a.Refresher.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("generate mock data: %w", err)
		}
		a.logger.Info("mock datasets ready", "dir", a.cfg.MockDataDir, "datasets", len(m.Datasets))
		return nil
	}

	m, err := dataset.Load(a.cfg.DatasetsFile)
	if err != nil {
		return err
	}
	if err := dataset.RegisterAll(ctx, a.Engine, m.Datasets, a.logger); err != nil {
		return err
	}
	a.logger.Info("datasets registered", "manifest", a.cfg.DatasetsFile, "datasets", len(m.Datasets))
	return nil
}
