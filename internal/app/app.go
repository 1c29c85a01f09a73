// Package app implements the application layer for forge.
package app

import (
	"context"
	"strings"

	"github.com/forgeci/forge/internal/adapters/config"
	"github.com/forgeci/forge/internal/adapters/provider"
	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/forgeci/forge/internal/engine/lifecycle"
	"github.com/forgeci/forge/internal/engine/orchestrator"
	"github.com/forgeci/forge/internal/engine/testrunner"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App ties the engines and adapters together behind the CLI surface.
type App struct {
	cfg          config.Config
	orchestrator *orchestrator.Orchestrator
	repo         ports.PackageRepository
	newProvider  provider.Factory
	channel      ports.RemoteChannel
	logger       ports.Logger
}

// New creates the application.
func New(
	cfg config.Config,
	orch *orchestrator.Orchestrator,
	repo ports.PackageRepository,
	newProvider provider.Factory,
	channel ports.RemoteChannel,
	logger ports.Logger,
) *App {
	return &App{
		cfg:          cfg,
		orchestrator: orch,
		repo:         repo,
		newProvider:  newProvider,
		channel:      channel,
		logger:       logger,
	}
}

// Build runs the builder and reports the final artifact location.
func (a *App) Build(ctx context.Context, builderID string, opts orchestrator.BuildOptions) (*orchestrator.Result, error) {
	result, err := a.orchestrator.Build(ctx, builderID, opts)
	if err != nil {
		return nil, err
	}
	a.logger.Info("build finished",
		"builder", builderID,
		"fingerprint", result.Artifact.Fingerprint.String(),
		"dir", result.Artifact.Dir)
	return result, nil
}

// BuildCached runs the emulated-step pre-pass for the builder.
func (a *App) BuildCached(ctx context.Context, builderID string) (*orchestrator.Result, error) {
	return a.orchestrator.BuildCached(ctx, builderID)
}

// FindLastRepoPackage returns the newest repository package matching name,
// or nil when none exists.
func (a *App) FindLastRepoPackage(ctx context.Context, q ports.RepoQuery, packageName string) (*ports.PackageInfo, error) {
	return a.repo.FindLatest(ctx, q, packageName)
}

// DownloadPackage fetches the package file into outputDir.
func (a *App) DownloadPackage(ctx context.Context, q ports.RepoQuery, filename, outputDir string) (string, error) {
	return a.repo.Download(ctx, q, filename, outputDir)
}

// Publish uploads the package files under packagesDir to the repository.
func (a *App) Publish(ctx context.Context, q ports.RepoQuery, packagesDir string) error {
	return a.repo.Publish(ctx, q, packagesDir)
}

// TestParams parameterize one test matrix run.
type TestParams struct {
	// Distros are "type:name" cells, e.g. "ec2:ubuntu2204" or
	// "docker:agent-test".
	Distros []string

	// WorkflowID tags every resource this run creates.
	WorkflowID string

	Suite domain.TestSuite

	// Provider carries credentials when they differ from the configuration.
	Provider provider.Options
}

// Test runs the suite against every matrix cell in parallel. Cells fail
// independently; one distribution going down never aborts its siblings.
// Resources tagged with the workflow id are reclaimed on every exit path.
func (a *App) Test(ctx context.Context, params TestParams) ([]*domain.Report, error) {
	if params.WorkflowID == "" {
		return nil, zerr.New("workflow id is required")
	}
	if len(params.Distros) == 0 {
		return nil, zerr.New("at least one distribution is required")
	}

	cloud, err := a.newProvider(ctx, a.providerOptions(params.Provider))
	if err != nil {
		return nil, err
	}

	grantCIDR := a.cfg.Test.PublicCIDR
	if grantCIDR == "" {
		grantCIDR, err = provider.DetectPublicCIDR(ctx)
		if err != nil {
			return nil, err
		}
	}

	manager := lifecycle.NewManager(cloud, a.logger, lifecycle.Options{
		GrantCIDR: grantCIDR,
		Attempts:  a.cfg.Test.ProvisionAttempts,
	})

	// Reclaim on every exit path, cancellation included.
	defer func() {
		reclaimCtx := context.WithoutCancel(ctx)
		if err := manager.ReclaimWorkflow(reclaimCtx, params.WorkflowID); err != nil {
			a.logger.Warn("workflow reclaim incomplete",
				"workflow_id", params.WorkflowID, "error", err.Error())
		}
	}()

	runner := testrunner.NewRunner(a.channel, manager, a.logger, a.cfg.Test.SuiteTimeout)

	reports := make([]*domain.Report, len(params.Distros))
	cellErrs := make([]error, len(params.Distros))

	var g errgroup.Group
	for i, cell := range params.Distros {
		g.Go(func() error {
			reports[i], cellErrs[i] = a.runCell(ctx, manager, runner, cell, params)
			// Cell failures are isolated; never cancel the sibling cells.
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	results := make([]*domain.Report, 0, len(reports))
	for i, report := range reports {
		if cellErrs[i] != nil {
			a.logger.Error(cellErrs[i], "distro", params.Distros[i])
			failed = append(failed, params.Distros[i])
			continue
		}
		results = append(results, report)
		if !report.OK() {
			failed = append(failed, params.Distros[i])
		}
	}

	if len(failed) > 0 {
		return results, zerr.With(zerr.New("test cells failed"), "distros", strings.Join(failed, ","))
	}
	return results, nil
}

func (a *App) runCell(
	ctx context.Context,
	manager *lifecycle.Manager,
	runner *testrunner.Runner,
	cell string,
	params TestParams,
) (*domain.Report, error) {
	kind, name, ok := strings.Cut(cell, ":")
	if !ok {
		return nil, zerr.With(zerr.New("distribution must be type:name"), "distro", cell)
	}

	switch kind {
	case "ec2":
		res, err := manager.Provision(ctx, name, params.WorkflowID)
		if err != nil {
			return nil, err
		}
		return runner.Run(ctx, res, params.Suite)

	case "docker":
		// The container is started by the CI job itself; nothing to
		// provision or release.
		res := &domain.TestResource{
			Handle:     name,
			Kind:       domain.ResourceDocker,
			WorkflowID: params.WorkflowID,
			Distro:     name,
		}
		local := testrunner.NewRunner(a.channel, noopReleaser{}, a.logger, a.cfg.Test.SuiteTimeout)
		return local.Run(ctx, res, params.Suite)

	default:
		return nil, zerr.With(zerr.New("unsupported resource type"), "type", kind)
	}
}

// CleanupParams scope one sweep invocation.
type CleanupParams struct {
	Provider   provider.Options
	WorkflowID string
}

// Cleanup sweeps resources and access-grant entries left by workflows other
// than the given one.
func (a *App) Cleanup(ctx context.Context, params CleanupParams) error {
	if params.WorkflowID == "" {
		return zerr.New("workflow id is required")
	}

	cloud, err := a.newProvider(ctx, a.providerOptions(params.Provider))
	if err != nil {
		return err
	}

	manager := lifecycle.NewManager(cloud, a.logger, lifecycle.Options{})
	return manager.Sweep(ctx, []string{params.WorkflowID})
}

// providerOptions overlays command-line credentials on the configuration.
func (a *App) providerOptions(override provider.Options) provider.Options {
	opts := provider.OptionsFromConfig(a.cfg)
	if override.Region != "" {
		opts.Region = override.Region
	}
	if override.AccessKey != "" {
		opts.AccessKey = override.AccessKey
		opts.SecretKey = override.SecretKey
	}
	if override.PrefixListID != "" {
		opts.PrefixListID = override.PrefixListID
	}
	return opts
}

type noopReleaser struct{}

func (noopReleaser) Release(context.Context, *domain.TestResource) error { return nil }
