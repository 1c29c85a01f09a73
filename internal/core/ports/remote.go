package ports

import (
	"context"

	"github.com/forgeci/forge/internal/core/domain"
)

// RemoteChannel is the access channel to a provisioned test resource.
//
//go:generate go run go.uber.org/mock/mockgen -source=remote.go -destination=mocks/mock_remote.go -package=mocks
type RemoteChannel interface {
	// Push copies a local file to the resource.
	Push(ctx context.Context, res *domain.TestResource, localPath, remotePath string) error

	// Exec runs a command on the resource and returns its combined output.
	Exec(ctx context.Context, res *domain.TestResource, command string) (string, error)
}
