package repo

import (
	"context"

	"github.com/forgeci/forge/internal/adapters/config"
	"github.com/forgeci/forge/internal/adapters/logger"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/grindlemire/graft"
)

const NodeID graft.ID = "adapter.package_repository"

func init() {
	graft.Register(graft.Node[ports.PackageRepository]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, config.NodeID},
		Run: func(ctx context.Context) (ports.PackageRepository, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			cfg, err := graft.Dep[config.Config](ctx)
			if err != nil {
				return nil, err
			}
			return NewClient(cfg.Repo.BaseURL, log), nil
		},
	})
}
