// Package repository implements the domain repositories on the SQLite
// metastore.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"duck-tables/internal/db"
	"duck-tables/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// PresetRepo implements domain.PresetRepository. Writes go to the write
// pool, reads to the read pool.
type PresetRepo struct {
	write *sql.DB
	read  *sql.DB
	now   func() time.Time
}

// NewPresetRepo creates a PresetRepo over m.
func NewPresetRepo(m *db.Metastore) *PresetRepo {
	return &PresetRepo{write: m.Write, read: m.Read, now: time.Now}
}

var _ domain.PresetRepository = (*PresetRepo)(nil)

const presetColumns = `id, name, description, dataset, request, created_at, updated_at`

// Create inserts p with a new ID. A taken name is a ConflictError.
func (r *PresetRepo) Create(ctx context.Context, p *domain.Preset) (*domain.Preset, error) {
	now := r.now().UTC().Format(timeLayout)
	id := domain.NewID()
	_, err := r.write.ExecContext(ctx,
		`INSERT INTO presets (id, name, description, dataset, request, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.Name, p.Description, p.Dataset, string(p.Request), now, now)
	if err != nil {
		return nil, mapDBError(err, p.Name)
	}
	return r.getByName(ctx, r.write, p.Name)
}

// GetByName returns the preset called name.
func (r *PresetRepo) GetByName(ctx context.Context, name string) (*domain.Preset, error) {
	return r.getByName(ctx, r.read, name)
}

func (r *PresetRepo) getByName(ctx context.Context, q *sql.DB, name string) (*domain.Preset, error) {
	row := q.QueryRowContext(ctx, `SELECT `+presetColumns+` FROM presets WHERE name = ?`, name)
	p, err := scanPreset(row)
	if err != nil {
		return nil, mapDBError(err, name)
	}
	return p, nil
}

// List returns one page of presets ordered by name, optionally restricted
// to a dataset, plus the total count.
func (r *PresetRepo) List(ctx context.Context, dataset string, page domain.PageRequest) ([]domain.Preset, int, error) {
	where, args := "", []any{}
	if dataset != "" {
		where, args = ` WHERE dataset = ?`, append(args, dataset)
	}

	var total int
	if err := r.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM presets`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count presets: %w", err)
	}

	rows, err := r.read.QueryContext(ctx,
		`SELECT `+presetColumns+` FROM presets`+where+` ORDER BY name LIMIT ? OFFSET ?`,
		append(args, page.Limit(), page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan preset: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list presets: %w", err)
	}
	return out, total, nil
}

// Update replaces the description, dataset and request of the preset named
// p.Name.
func (r *PresetRepo) Update(ctx context.Context, p *domain.Preset) (*domain.Preset, error) {
	res, err := r.write.ExecContext(ctx,
		`UPDATE presets SET description = ?, dataset = ?, request = ?, updated_at = ? WHERE name = ?`,
		p.Description, p.Dataset, string(p.Request), r.now().UTC().Format(timeLayout), p.Name)
	if err != nil {
		return nil, mapDBError(err, p.Name)
	}
	if err := requireAffected(res, p.Name); err != nil {
		return nil, err
	}
	return r.getByName(ctx, r.write, p.Name)
}

// Delete removes the preset called name.
func (r *PresetRepo) Delete(ctx context.Context, name string) error {
	res, err := r.write.ExecContext(ctx, `DELETE FROM presets WHERE name = ?`, name)
	if err != nil {
		return mapDBError(err, name)
	}
	return requireAffected(res, name)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(s scanner) (*domain.Preset, error) {
	var (
		p                domain.Preset
		request          string
		created, updated string
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Dataset, &request, &created, &updated); err != nil {
		return nil, err
	}
	p.Request = []byte(request)

	var err error
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("preset %q created_at: %w", p.Name, err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("preset %q updated_at: %w", p.Name, err)
	}
	return &p, nil
}

func requireAffected(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("preset %q not found", name)
	}
	return nil
}

func mapDBError(err error, name string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("preset %q not found", name)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrConflict("preset %q already exists", name)
	}
	return err
}
