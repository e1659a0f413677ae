package memory

import (
	"context"
	"fmt"

	"github.com/marmos91/dittobrowse/pkg/folder"
)

// Provider serves a single flat in-memory collection at the provider root.
//
// It backs sources of type "memory": scratch favorites lists and demo data
// that do not need to survive a restart.
type Provider struct {
	folder *MemoryFolder
}

// NewProvider creates a provider whose root holds items. cfg.Path is filled
// in from the location on first Open when left empty.
func NewProvider(cfg Config, items ...folder.ContentInfo) *Provider {
	return &Provider{folder: NewMemoryFolder(cfg, items...)}
}

// Open returns the collection. Only the provider root exists.
func (p *Provider) Open(ctx context.Context, loc folder.Location) (folder.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if loc.Sub != "" {
		return nil, fmt.Errorf("memory folder %q: %w", loc.Path(), folder.ErrNotFound)
	}

	p.folder.mu.Lock()
	if p.folder.cfg.Path == "" {
		p.folder.cfg.Path = loc.Path()
	}
	if p.folder.cfg.Name == "" {
		p.folder.cfg.Name = loc.Source
	}
	p.folder.mu.Unlock()

	return p.folder, nil
}

// Folder returns the underlying collection.
func (p *Provider) Folder() *MemoryFolder {
	return p.folder
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
