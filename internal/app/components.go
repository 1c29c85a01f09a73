package app

import (
	"github.com/forgeci/forge/internal/adapters/config"
	"github.com/forgeci/forge/internal/core/ports"
)

// Components contains the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App       *App
	Logger    ports.Logger
	Config    config.Config
	Telemetry ports.Telemetry

	// BuilderIDs is the catalog exposed as CLI command trees.
	BuilderIDs []string
}
