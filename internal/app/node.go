package app

import (
	"context"

	"github.com/forgeci/forge/internal/adapters/config"   //nolint:depguard // Wired in app layer
	"github.com/forgeci/forge/internal/adapters/logger"   //nolint:depguard // Wired in app layer
	"github.com/forgeci/forge/internal/adapters/provider" //nolint:depguard // Wired in app layer
	"github.com/forgeci/forge/internal/adapters/remote"   //nolint:depguard // Wired in app layer
	"github.com/forgeci/forge/internal/adapters/repo"     //nolint:depguard // Wired in app layer
	"github.com/forgeci/forge/internal/adapters/telemetry"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/forgeci/forge/internal/engine/orchestrator"
	"github.com/forgeci/forge/internal/engine/registry"
	"github.com/grindlemire/graft"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			orchestrator.NodeID,
			repo.NodeID,
			provider.NodeID,
			remote.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			cfg, err := graft.Dep[config.Config](ctx)
			if err != nil {
				return nil, err
			}
			orch, err := graft.Dep[*orchestrator.Orchestrator](ctx)
			if err != nil {
				return nil, err
			}
			repository, err := graft.Dep[ports.PackageRepository](ctx)
			if err != nil {
				return nil, err
			}
			factory, err := graft.Dep[provider.Factory](ctx)
			if err != nil {
				return nil, err
			}
			channel, err := graft.Dep[ports.RemoteChannel](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(cfg, orch, repository, factory, channel, log), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.NodeID,
			telemetry.NodeID,
			registry.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
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
			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			reg, err := graft.Dep[*registry.Registry](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{
				App:        application,
				Logger:     log,
				Config:     cfg,
				Telemetry:  tel,
				BuilderIDs: reg.IDs(),
			}, nil
		},
	})
}
