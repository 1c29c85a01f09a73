package remote

import (
	"context"

	"github.com/forgeci/forge/internal/adapters/config"
	"github.com/forgeci/forge/internal/adapters/logger"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/grindlemire/graft"
)

const NodeID graft.ID = "adapter.remote_channel"

func init() {
	graft.Register(graft.Node[ports.RemoteChannel]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, config.NodeID},
		Run: func(ctx context.Context) (ports.RemoteChannel, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			cfg, err := graft.Dep[config.Config](ctx)
			if err != nil {
				return nil, err
			}
			return NewChannel(log, "", cfg.AWS.PrivateKeyPath), nil
		},
	})
}
