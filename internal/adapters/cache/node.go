package cache

import (
	"context"
	"path/filepath"

	"github.com/forgeci/forge/internal/adapters/config"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/grindlemire/graft"
	"go.trai.ch/zerr"
)

const NodeID graft.ID = "adapter.step_cache"

func init() {
	graft.Register(graft.Node[ports.StepCache]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.StepCache, error) {
			cfg, err := graft.Dep[config.Config](ctx)
			if err != nil {
				return nil, err
			}

			switch cfg.Cache.Backend {
			case "", "local":
				return NewLocalStore(cfg.Cache.Dir)
			case "redis":
				return NewRedisStore(cfg.Cache.RedisURL, filepath.Join(cfg.Cache.Dir, "remote"), cfg.Cache.Retention)
			default:
				return nil, zerr.With(zerr.New("unknown cache backend"), "backend", cfg.Cache.Backend)
			}
		},
	})
}
