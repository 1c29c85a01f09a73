package provider

import (
	"context"

	"github.com/forgeci/forge/internal/adapters/config"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/grindlemire/graft"
)

// Factory builds a provider from resolved options. The cleanup and test
// commands carry their own credentials, so the provider cannot be a
// singleton; the factory is what gets wired.
type Factory func(ctx context.Context, opts Options) (ports.CloudProvider, error)

const NodeID graft.ID = "adapter.provider_factory"

func init() {
	graft.Register(graft.Node[Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (Factory, error) {
			return func(ctx context.Context, opts Options) (ports.CloudProvider, error) {
				return NewEC2(ctx, opts)
			}, nil
		},
	})
}

// OptionsFromConfig derives provider options from the loaded configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Region:        cfg.AWS.Region,
		AccessKey:     cfg.AWS.AccessKey,
		SecretKey:     cfg.AWS.SecretKey,
		SecurityGroup: cfg.AWS.SecurityGroup,
		PrefixListID:  cfg.AWS.PrefixListID,
		KeyPairName:   cfg.AWS.KeyPairName,
		InstanceType:  cfg.AWS.InstanceType,
		GrantCapacity: cfg.AWS.GrantCapacity,
	}
}
