// Package lifecycle manages ephemeral test resources: provisioning against
// the capacity-bounded access-grant list, idempotent release, and sweeping
// of leftovers from finished or abandoned workflows.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options parameterize the manager.
type Options struct {
	// GrantCIDR is the network the CI runner reaches resources from; it is
	// the CIDR written into access-grant entries.
	GrantCIDR string

	// Attempts bounds provisioning retries before surfacing failure.
	Attempts int

	// Backoff is the initial delay between attempts, doubled per retry.
	Backoff time.Duration
}

// Manager provisions and reclaims test resources for one workflow.
type Manager struct {
	provider ports.CloudProvider
	logger   ports.Logger
	opts     Options

	mu       sync.Mutex
	released map[string]bool

	// grantMu spans the capacity check and the append, so concurrent cells
	// cannot double-book the last free entry.
	grantMu      sync.Mutex
	grantInPlace bool
}

// NewManager creates a lifecycle manager.
func NewManager(provider ports.CloudProvider, logger ports.Logger, opts Options) *Manager {
	if opts.Attempts <= 0 {
		opts.Attempts = 4
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	return &Manager{
		provider: provider,
		logger:   logger,
		opts:     opts,
		released: make(map[string]bool),
	}
}

// Provision creates one test resource for the matrix cell: the workflow's
// access-grant entry on the first call, then an instance. Transient failures
// are retried with exponential backoff.
func (m *Manager) Provision(ctx context.Context, distro, workflowID string) (*domain.TestResource, error) {
	backoff := m.opts.Backoff
	var lastErr error

	for attempt := 1; attempt <= m.opts.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, zerr.Wrap(ctx.Err(), "provisioning cancelled")
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		res, err := m.provisionOnce(ctx, distro, workflowID)
		if err == nil {
			return res, nil
		}
		lastErr = err
		m.logger.Warn("provision attempt failed",
			"distro", distro, "attempt", attempt, "error", err.Error())
	}

	exhausted := zerr.With(errors.Join(domain.ErrResourceProvisionFailure, lastErr), "distro", distro)
	return nil, zerr.With(exhausted, "attempts", m.opts.Attempts)
}

// ensureGrant appends the workflow's access-grant entry on the first call.
// Every cell of a run reaches its resource from the same runner address, so
// the workflow holds exactly one entry; it stays in place until
// ReclaimWorkflow or a sweep removes it.
func (m *Manager) ensureGrant(ctx context.Context, workflowID string) error {
	m.grantMu.Lock()
	defer m.grantMu.Unlock()
	if m.grantInPlace {
		return nil
	}

	entries, err := m.provider.ListGrantEntries(ctx)
	if err != nil {
		return zerr.Wrap(err, "failed to list access-grant entries")
	}

	entry := domain.AccessGrantEntry{
		CIDR:        m.opts.GrantCIDR,
		Description: domain.NewGrantDescription(workflowID),
	}
	for _, existing := range entries {
		if existing.CIDR == entry.CIDR && existing.Description == entry.Description {
			m.grantInPlace = true
			return nil
		}
	}

	if len(entries) >= m.provider.GrantCapacity() {
		quota := zerr.With(zerr.Wrap(domain.ErrQuotaExceeded, ""), "entries", len(entries))
		return zerr.With(quota, "capacity", m.provider.GrantCapacity())
	}

	if err := m.provider.AppendGrantEntry(ctx, entry); err != nil {
		return zerr.Wrap(err, "failed to append access-grant entry")
	}
	m.grantInPlace = true
	return nil
}

func (m *Manager) provisionOnce(ctx context.Context, distro, workflowID string) (*domain.TestResource, error) {
	if err := m.ensureGrant(ctx, workflowID); err != nil {
		return nil, err
	}

	res, err := m.provider.RunInstance(ctx, ports.InstanceSpec{Distro: distro, WorkflowID: workflowID})
	if err != nil {
		if res != nil && res.Handle != "" {
			if termErr := m.provider.TerminateInstance(ctx, res.Handle); termErr != nil {
				m.logger.Warn("failed to terminate unreachable instance",
					"instance", res.Handle, "error", termErr.Error())
			}
		}
		return nil, err
	}

	res.GrantCIDR = m.opts.GrantCIDR
	return res, nil
}

// Release terminates the resource's instance. Calling it again after a
// successful release is a no-op; a failed release stays retryable. The
// workflow's access-grant entry is shared by sibling cells and is removed by
// ReclaimWorkflow or a sweep, never here.
func (m *Manager) Release(ctx context.Context, res *domain.TestResource) error {
	if res == nil {
		return nil
	}

	m.mu.Lock()
	done := m.released[res.Handle]
	m.mu.Unlock()
	if done {
		return nil
	}

	if err := m.provider.TerminateInstance(ctx, res.Handle); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to terminate instance"), "instance", res.Handle)
	}

	m.mu.Lock()
	m.released[res.Handle] = true
	m.mu.Unlock()

	m.logger.Info("released test resource", "instance", res.Handle, "distro", res.Distro)
	return nil
}

// ReclaimWorkflow removes every access-grant entry and instance owned by the
// given workflow id. It is the unconditional end-of-run cleanup, so failures
// are logged, not raised.
func (m *Manager) ReclaimWorkflow(ctx context.Context, workflowID string) error {
	entries, err := m.provider.ListGrantEntries(ctx)
	if err != nil {
		return zerr.Wrap(err, "failed to list access-grant entries")
	}

	var owned []string
	for _, entry := range entries {
		if owner, ok := entry.WorkflowID(); ok && owner == workflowID {
			owned = append(owned, entry.CIDR)
		}
	}
	if len(owned) > 0 {
		if err := m.provider.RemoveGrantEntries(ctx, owned); err != nil {
			m.logger.Warn("failed to remove workflow access-grant entries",
				"workflow_id", workflowID, "error", err.Error())
		}
	}

	instances, err := m.provider.ListInstances(ctx)
	if err != nil {
		return zerr.Wrap(err, "failed to list instances")
	}
	for _, inst := range instances {
		if inst.WorkflowID != workflowID {
			continue
		}
		if err := m.provider.TerminateInstance(ctx, inst.Handle); err != nil {
			m.logger.Warn("failed to terminate workflow instance",
				"instance", inst.Handle, "error", err.Error())
		}
	}

	return nil
}

// Sweep reclaims leftovers from workflows no longer in activeWorkflowIDs:
// their access-grant entries and their instances. Entries whose owner
// cannot be determined are kept; removing them could break an unrelated
// live run. Individual removal failures are logged, not raised.
func (m *Manager) Sweep(ctx context.Context, activeWorkflowIDs []string) error {
	active := make(map[string]bool, len(activeWorkflowIDs))
	for _, id := range activeWorkflowIDs {
		active[id] = true
	}

	entries, err := m.provider.ListGrantEntries(ctx)
	if err != nil {
		return zerr.Wrap(err, "failed to list access-grant entries")
	}

	var stale []string
	for _, entry := range entries {
		owner, ok := entry.WorkflowID()
		if !ok {
			m.logger.Warn("keeping access-grant entry with undetermined owner",
				"cidr", entry.CIDR, "description", entry.Description,
				"error", domain.ErrOrphanDetectionAmbiguous.Error())
			continue
		}
		if !active[owner] {
			stale = append(stale, entry.CIDR)
		}
	}
	if len(stale) > 0 {
		if err := m.provider.RemoveGrantEntries(ctx, stale); err != nil {
			m.logger.Warn("failed to remove stale access-grant entries", "error", err.Error())
		} else {
			m.logger.Info("removed stale access-grant entries", "count", len(stale))
		}
	}

	instances, err := m.provider.ListInstances(ctx)
	if err != nil {
		return zerr.Wrap(err, "failed to list instances")
	}
	for _, inst := range instances {
		if inst.WorkflowID == "" || active[inst.WorkflowID] {
			continue
		}
		if err := m.provider.TerminateInstance(ctx, inst.Handle); err != nil {
			m.logger.Warn("failed to terminate abandoned instance",
				"instance", inst.Handle, "workflow_id", inst.WorkflowID, "error", err.Error())
			continue
		}
		m.logger.Info("terminated abandoned instance",
			"instance", inst.Handle, "workflow_id", inst.WorkflowID)
	}

	return nil
}
