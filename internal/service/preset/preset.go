// Package preset saves table requests under a name and runs them later.
package preset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"duck-tables/internal/domain"
	"duck-tables/internal/service/table"
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

type tables interface {
	Explain(ctx context.Context, req table.Request) (*table.Plan, error)
	Run(ctx context.Context, req table.Request) (*table.Page, error)
}

// Preset is a saved request with its decoded body.
type Preset struct {
	domain.Preset
	Table table.Request `json:"-"`
}

// SaveRequest creates or replaces a preset.
type SaveRequest struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Request     table.Request `json:"request" yaml:"request"`
}

// Service validates presets against the table compiler before storing them.
type Service struct {
	repo   domain.PresetRepository
	tables tables
	logger *slog.Logger
}

// NewService creates a preset Service.
func NewService(repo domain.PresetRepository, tables tables, logger *slog.Logger) *Service {
	return &Service{repo: repo, tables: tables, logger: logger}
}

// Create stores a new preset. The request must compile.
func (s *Service) Create(ctx context.Context, req SaveRequest) (*domain.Preset, error) {
	p, err := s.encode(ctx, req)
	if err != nil {
		return nil, err
	}
	out, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("preset created", "preset", out.Name, "dataset", out.Dataset)
	return out, nil
}

// Update replaces an existing preset.
func (s *Service) Update(ctx context.Context, req SaveRequest) (*domain.Preset, error) {
	p, err := s.encode(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, p)
}

// Get returns a preset with its decoded request.
func (s *Service) Get(ctx context.Context, name string) (*Preset, error) {
	p, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	out := &Preset{Preset: *p}
	if err := json.Unmarshal(p.Request, &out.Table); err != nil {
		return nil, fmt.Errorf("decode preset %q: %w", name, err)
	}
	return out, nil
}

// List returns one page of presets.
func (s *Service) List(ctx context.Context, dataset string, page domain.PageRequest) ([]domain.Preset, int, error) {
	return s.repo.List(ctx, dataset, page)
}

// Delete removes a preset.
func (s *Service) Delete(ctx context.Context, name string) error {
	return s.repo.Delete(ctx, name)
}

// Run executes a saved preset on the given page. A zero page size keeps the
// saved one.
func (s *Service) Run(ctx context.Context, name string, page domain.PageRequest) (*table.Page, error) {
	p, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	req := p.Table
	req.Page = page.Page
	if page.PageSize > 0 {
		req.PageSize = page.PageSize
	}
	return s.tables.Run(ctx, req)
}

func (s *Service) encode(ctx context.Context, req SaveRequest) (*domain.Preset, error) {
	if !validName.MatchString(req.Name) {
		return nil, domain.ErrValidation("preset name %q must be lower-case letters, digits, '-' or '_'", req.Name)
	}
	if _, err := s.tables.Explain(ctx, req.Request); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req.Request)
	if err != nil {
		return nil, fmt.Errorf("encode preset %q: %w", req.Name, err)
	}
	return &domain.Preset{
		Name:        req.Name,
		Description: req.Description,
		Dataset:     req.Request.Dataset,
		Request:     body,
	}, nil
}
