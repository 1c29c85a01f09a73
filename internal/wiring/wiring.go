// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "github.com/forgeci/forge/internal/adapters/cache"
	_ "github.com/forgeci/forge/internal/adapters/config"
	_ "github.com/forgeci/forge/internal/adapters/fs"
	_ "github.com/forgeci/forge/internal/adapters/logger"
	_ "github.com/forgeci/forge/internal/adapters/provider"
	_ "github.com/forgeci/forge/internal/adapters/remote"
	_ "github.com/forgeci/forge/internal/adapters/repo"
	_ "github.com/forgeci/forge/internal/adapters/shell"
	_ "github.com/forgeci/forge/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "github.com/forgeci/forge/internal/app"
	_ "github.com/forgeci/forge/internal/engine/orchestrator"
	_ "github.com/forgeci/forge/internal/engine/registry"
)
