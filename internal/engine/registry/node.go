package registry

import (
	"context"

	"github.com/forgeci/forge/internal/builders"
	"github.com/grindlemire/graft"
)

const NodeID graft.ID = "engine.registry"

func init() {
	graft.Register(graft.Node[*Registry]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (*Registry, error) {
			catalog, err := builders.Catalog()
			if err != nil {
				return nil, err
			}
			return New(catalog)
		},
	})
}
