package ports

import (
	"context"

	"github.com/forgeci/forge/internal/core/domain"
)

// InstanceSpec describes the compute instance requested for one matrix cell.
type InstanceSpec struct {
	Distro     string
	WorkflowID string
}

// CloudProvider is the boundary to the external compute provider: create and
// destroy instances, and append/remove entries of the capacity-bounded
// access-grant list. Grant list mutations must be linearizable per provider
// account; implementations use version-conditioned updates for that.
//
//go:generate go run go.uber.org/mock/mockgen -source=provider.go -destination=mocks/mock_provider.go -package=mocks
type CloudProvider interface {
	// RunInstance launches an instance with the distribution image and tags
	// it with the owning workflow id.
	RunInstance(ctx context.Context, spec InstanceSpec) (*domain.TestResource, error)

	// TerminateInstance destroys the instance with the given handle.
	// Terminating an unknown handle is not an error.
	TerminateInstance(ctx context.Context, handle string) error

	// ListInstances returns the live instances this tool has launched,
	// across all workflows.
	ListInstances(ctx context.Context) ([]domain.TestResource, error)

	// ListGrantEntries returns the current access-grant list.
	ListGrantEntries(ctx context.Context) ([]domain.AccessGrantEntry, error)

	// AppendGrantEntry adds one entry to the access-grant list.
	AppendGrantEntry(ctx context.Context, entry domain.AccessGrantEntry) error

	// RemoveGrantEntries removes the entries with the given CIDRs.
	RemoveGrantEntries(ctx context.Context, cidrs []string) error

	// GrantCapacity returns the provider-imposed maximum entry count of the
	// access-grant list.
	GrantCapacity() int
}
