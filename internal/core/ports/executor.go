// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"github.com/forgeci/forge/internal/core/domain"
)

// Executor runs external commands on behalf of step producing functions.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the given command and returns an error if it exits
	// non-zero. Stdout and stderr are streamed to the logger.
	Execute(ctx context.Context, cmd domain.Command) error
}
