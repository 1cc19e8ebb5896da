// Package dataset loads the YAML manifest that lists the files to register
// with the engine, and registers them.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"duck-tables/internal/domain"
	"duck-tables/internal/engine"
)

// registerConcurrency bounds how many datasets load at once.
const registerConcurrency = 4

// Manifest is the on-disk list of datasets:
//
//	datasets:
//	  - name: sales
//	    path: sales.csv
//	    description: Daily sales per region
type Manifest struct {
	Datasets []engine.Dataset `json:"datasets" yaml:"datasets"`
}

// Load reads and validates a manifest file. Relative dataset paths are
// resolved against the manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // manifest path comes from config
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(data []byte, baseDir string) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, domain.ErrValidation("parse manifest: %v", err)
	}

	for i := range m.Datasets {
		ds := &m.Datasets[i]
		ds.Name = strings.TrimSpace(ds.Name)
		if ds.Name == "" {
			return nil, domain.ErrValidation("dataset #%d has no name", i+1)
		}
		if ds.Path == "" {
			return nil, domain.ErrValidation("dataset %q has no path", ds.Name)
		}
		if !filepath.IsAbs(ds.Path) && baseDir != "" {
			ds.Path = filepath.Join(baseDir, ds.Path)
		}
	}

	names := lo.Map(m.Datasets, func(ds engine.Dataset, _ int) string { return ds.Name })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return nil, domain.ErrValidation("duplicate dataset names: %s", strings.Join(dups, ", "))
	}
	return &m, nil
}

// Write stores the manifest as YAML. Dataset paths are written as given.
func (m *Manifest) Write(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // manifest is not secret
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// Registrar is the part of the engine RegisterAll needs.
type Registrar interface {
	RegisterDataset(ctx context.Context, ds engine.Dataset) error
}

// RegisterAll registers every dataset with bounded parallelism. The first
// failure cancels the remaining loads and is returned.
func RegisterAll(ctx context.Context, reg Registrar, datasets []engine.Dataset, logger *slog.Logger) error {
	if len(datasets) == 0 {
		logger.Info("no datasets to register")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(registerConcurrency)

	for i := range datasets {
		ds := datasets[i]
		g.Go(func() error {
			if err := reg.RegisterDataset(gctx, ds); err != nil {
				logger.Warn("dataset registration failed", "dataset", ds.Name, "error", err)
				return fmt.Errorf("dataset %q: %w", ds.Name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("register datasets: %w", err)
	}
	logger.Info("datasets registered", "total", len(datasets))
	return nil
}
