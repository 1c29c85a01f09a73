package domain

import (
	"fmt"
	"strings"
	"time"
)

// ResourceKind is the backing implementation of a test resource.
type ResourceKind string

const (
	// ResourceEC2 is a cloud compute instance reached over SSH.
	ResourceEC2 ResourceKind = "ec2"
	// ResourceDocker is a local container reached via docker exec.
	ResourceDocker ResourceKind = "docker"
)

// TestResource is one ephemeral machine provisioned for a single test matrix
// cell. Every live resource has exactly one owning workflow.
type TestResource struct {
	// Handle is the provider's identifier (instance id or container id).
	Handle string

	Kind ResourceKind

	// WorkflowID is the CI run that owns the resource.
	WorkflowID string

	// Distro is the distribution tag the resource was provisioned for.
	Distro string

	// Address is the SSH endpoint for cloud resources; empty for containers.
	Address string

	// GrantCIDR references the workflow's access-grant entry through which
	// this resource is reached.
	// Empty when no network grant was needed (container resources).
	GrantCIDR string

	CreatedAt time.Time
}

// AccessGrantEntry is one entry in the provider's shared, capacity-bounded
// network-access list. The list is shared across all concurrently running
// workflows; an entry's description embeds its owning workflow id.
type AccessGrantEntry struct {
	CIDR        string
	Description string
}

const grantDescriptionPrefix = "workflow-"

// NewGrantDescription encodes a workflow id into a grant entry description.
func NewGrantDescription(workflowID string) string {
	return fmt.Sprintf("%s%s", grantDescriptionPrefix, workflowID)
}

// WorkflowID extracts the owning workflow id from the entry description.
// The second return value is false when the description does not follow the
// encoding, in which case the owner cannot be determined and sweeps must
// leave the entry alone.
func (e AccessGrantEntry) WorkflowID() (string, bool) {
	rest, ok := strings.CutPrefix(e.Description, grantDescriptionPrefix)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}
