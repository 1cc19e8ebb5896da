package domain

import "context"

// PresetRepository stores presets by unique name.
type PresetRepository interface {
	Create(ctx context.Context, p *Preset) (*Preset, error)
	GetByName(ctx context.Context, name string) (*Preset, error)
	List(ctx context.Context, dataset string, page PageRequest) ([]Preset, int, error)
	Update(ctx context.Context, p *Preset) (*Preset, error)
	Delete(ctx context.Context, name string) error
}
