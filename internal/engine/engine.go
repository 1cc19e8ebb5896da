// Package engine owns the embedded DuckDB database that table queries run
// against. An Engine is an explicit handle: it is opened once, passed to the
// services that need it and closed when the process shuts down.
package engine

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	"github.com/samber/lo"

	"duck-tables/internal/domain"
	"duck-tables/internal/duckdbsql"
)

// ErrClosed is returned by every operation on a closed Engine.
var ErrClosed = errors.New("engine is closed")

// Options configures Open. The zero value is an in-memory database with
// DuckDB's default thread count and memory limit.
type Options struct {
	Path        string // database file; empty means in-memory
	Threads     int    // 0 keeps the DuckDB default
	MemoryLimit string // e.g. "2GB"; empty keeps the DuckDB default
}

// Format is the on-disk format of a dataset file.
type Format string

// Supported dataset formats.
const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

var readers = map[Format]string{
	FormatCSV:     "read_csv_auto",
	FormatParquet: "read_parquet",
	FormatJSON:    "read_json_auto",
}

// Dataset is a file materialised as a DuckDB table.
type Dataset struct {
	Name        string `json:"name" yaml:"name"`
	Path        string `json:"path" yaml:"path"`
	Format      Format `json:"format,omitempty" yaml:"format,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Engine is a DuckDB database plus the datasets registered in it. It is safe
// for concurrent use.
type Engine struct {
	db     *sql.DB
	logger *slog.Logger

	mu       sync.RWMutex
	closed   bool
	datasets map[string]Dataset
}

// Open opens (or creates) the DuckDB database described by opts.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("duckdb", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	if opts.Threads > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET threads = %d", opts.Threads)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set threads: %w", err)
		}
	}
	if opts.MemoryLimit != "" {
		if _, err := db.ExecContext(ctx, "SET memory_limit = "+duckdbsql.QuoteString(opts.MemoryLimit)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set memory_limit: %w", err)
		}
	}

	logger.Info("duckdb opened", "path", lo.Ternary(opts.Path == "", ":memory:", opts.Path),
		"threads", opts.Threads, "memory_limit", opts.MemoryLimit)
	return &Engine{db: db, logger: logger, datasets: make(map[string]Dataset)}, nil
}

// Close releases the database. Calling it more than once is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.logger.Info("duckdb closed")
	return e.db.Close()
}

// WithEngine opens an engine, hands it to fn and always closes it.
func WithEngine(ctx context.Context, opts Options, logger *slog.Logger, fn func(*Engine) error) (err error) {
	eng, err := Open(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, eng.Close())
	}()
	return fn(eng)
}

// RegisterDataset (re)creates the table ds.Name from the file at ds.Path.
// An empty format is inferred from the file extension.
func (e *Engine) RegisterDataset(ctx context.Context, ds Dataset) error {
	if strings.TrimSpace(ds.Name) == "" {
		return domain.ErrValidation("dataset name is required")
	}
	if strings.TrimSpace(ds.Path) == "" {
		return domain.ErrValidation("dataset %q has no path", ds.Name)
	}
	format, err := resolveFormat(ds)
	if err != nil {
		return err
	}
	ds.Format = format

	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s(%s)",
		duckdbsql.QuoteIdent(ds.Name), readers[format], duckdbsql.QuoteString(ds.Path))

	// Loads share the read lock; Close waits for them.
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return ErrClosed
	}
	_, err = e.db.ExecContext(ctx, stmt)
	e.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("register dataset %q: %w", ds.Name, err)
	}

	e.mu.Lock()
	e.datasets[ds.Name] = ds
	e.mu.Unlock()
	e.logger.Info("dataset registered", "dataset", ds.Name, "format", format, "path", ds.Path)
	return nil
}

// DropDataset removes a registered dataset and its table.
func (e *Engine) DropDataset(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if _, ok := e.datasets[name]; !ok {
		return domain.ErrNotFound("dataset %q not found", name)
	}
	if _, err := e.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+duckdbsql.QuoteIdent(name)); err != nil {
		return fmt.Errorf("drop dataset %q: %w", name, err)
	}
	delete(e.datasets, name)
	e.logger.Info("dataset dropped", "dataset", name)
	return nil
}

// Datasets lists the registered datasets ordered by name.
func (e *Engine) Datasets() []Dataset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := lo.Values(e.datasets)
	slices.SortFunc(out, func(a, b Dataset) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// Dataset returns the registered dataset called name.
func (e *Engine) Dataset(name string) (Dataset, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ds, ok := e.datasets[name]
	if !ok {
		return Dataset{}, domain.ErrNotFound("dataset %q not found", name)
	}
	return ds, nil
}

func resolveFormat(ds Dataset) (Format, error) {
	f := Format(strings.ToLower(string(ds.Format)))
	if f == "" {
		switch strings.ToLower(filepath.Ext(ds.Path)) {
		case ".csv", ".tsv":
			f = FormatCSV
		case ".parquet":
			f = FormatParquet
		case ".json", ".jsonl", ".ndjson":
			f = FormatJSON
		default:
			return "", domain.ErrValidation("cannot infer format of dataset %q from %q", ds.Name, ds.Path)
		}
	}
	if _, ok := readers[f]; !ok {
		return "", domain.ErrValidation("dataset %q has unsupported format %q", ds.Name, ds.Format)
	}
	return f, nil
}
