// Package persona exposes the persona lookup collaborator consumed at
// session creation. The coordination core treats persona records as an
// external key-value lookup; this package defines the interface plus an
// in-memory directory for tests and demos.
package persona

import (
	"context"
	"sync"

	"github.com/hupe1980/personamesh/core"
)

// Directory resolves persona ids to persona records. Unknown ids are
// silently omitted, never errors; the resulting set may be smaller than
// requested.
type Directory interface {
	GetPersonas(ctx context.Context, ids []string) ([]core.Persona, error)
}

// InMemoryDirectory is a Directory backed by a process-local map. It is safe
// for concurrent use.
type InMemoryDirectory struct {
	mu       sync.RWMutex
	personas map[string]core.Persona
}

// NewInMemoryDirectory constructs a directory seeded with the given personas.
func NewInMemoryDirectory(personas ...core.Persona) *InMemoryDirectory {
	d := &InMemoryDirectory{personas: make(map[string]core.Persona, len(personas))}
	for _, p := range personas {
		d.personas[p.ID] = p
	}
	return d
}

// Add inserts or replaces a persona record.
func (d *InMemoryDirectory) Add(p core.Persona) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.personas[p.ID] = p
}

// GetPersonas implements Directory. Order of requested ids is preserved for
// the ids that resolve.
func (d *InMemoryDirectory) GetPersonas(_ context.Context, ids []string) ([]core.Persona, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]core.Persona, 0, len(ids))
	for _, id := range ids {
		if p, ok := d.personas[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
