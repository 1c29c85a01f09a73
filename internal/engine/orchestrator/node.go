package orchestrator

import (
	"context"

	"github.com/forgeci/forge/internal/adapters/cache"
	"github.com/forgeci/forge/internal/adapters/config"
	"github.com/forgeci/forge/internal/adapters/fs"
	"github.com/forgeci/forge/internal/adapters/logger"
	"github.com/forgeci/forge/internal/adapters/shell"
	"github.com/forgeci/forge/internal/adapters/telemetry"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/forgeci/forge/internal/engine/registry"
	"github.com/grindlemire/graft"
)

const NodeID graft.ID = "engine.orchestrator"

func init() {
	graft.Register(graft.Node[*Orchestrator]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			registry.NodeID,
			cache.NodeID,
			fs.HasherNodeID,
			shell.NodeID,
			telemetry.NodeID,
			logger.NodeID,
			config.NodeID,
		},
		Run: func(ctx context.Context) (*Orchestrator, error) {
			reg, err := graft.Dep[*registry.Registry](ctx)
			if err != nil {
				return nil, err
			}
			stepCache, err := graft.Dep[ports.StepCache](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			cfg, err := graft.Dep[config.Config](ctx)
			if err != nil {
				return nil, err
			}
			return New(reg, stepCache, hasher, executor, tel, log, cfg.SourceRoot), nil
		},
	})
}
