// Package registry resolves builder identifiers to their definitions.
package registry

import (
	"sort"

	"github.com/forgeci/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// Registry holds the immutable builder catalog for one process lifetime.
type Registry struct {
	builders map[string]*domain.Builder
}

// New creates a registry from the given builders.
func New(all []*domain.Builder) (*Registry, error) {
	builders := make(map[string]*domain.Builder, len(all))
	for _, b := range all {
		if _, exists := builders[b.ID]; exists {
			return nil, zerr.With(zerr.New("duplicate builder id"), "builder", b.ID)
		}
		builders[b.ID] = b
	}
	return &Registry{builders: builders}, nil
}

// Resolve returns the builder with the given identifier.
func (r *Registry) Resolve(id string) (*domain.Builder, error) {
	b, ok := r.builders[id]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownBuilder, ""), "builder", id)
	}
	return b, nil
}

// IDs returns all builder identifiers in lexical order, for the CLI.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.builders))
	for id := range r.builders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
