// Package orchestrator walks a builder's step graph, serving steps from the
// cache and executing the rest, with at-most-once execution per fingerprint.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/forgeci/forge/internal/engine/registry"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// BuildOptions parameterize one builder run.
type BuildOptions struct {
	// OutputDir receives a copy of the final step's artifact. Empty leaves
	// the artifact in the cache only.
	OutputDir string

	// ReusedPackages maps a repository package name to a local package file
	// supplied on the command line. A step whose ReusePackageName matches is
	// seeded into the cache instead of executed.
	ReusedPackages map[string]string
}

// Result reports one builder run.
type Result struct {
	Artifact domain.Artifact

	// Statuses holds the terminal status of every step of the run.
	Statuses map[string]domain.StepStatus
}

// Orchestrator executes builders. It is safe for concurrent use; concurrent
// runs producing the same fingerprint share one execution.
type Orchestrator struct {
	registry  *registry.Registry
	cache     ports.StepCache
	hasher    ports.Hasher
	executor  ports.Executor
	telemetry ports.Telemetry
	logger    ports.Logger

	sourceRoot string
	group      singleflight.Group
}

// New creates an orchestrator reading step inputs from sourceRoot.
func New(
	reg *registry.Registry,
	cache ports.StepCache,
	hasher ports.Hasher,
	executor ports.Executor,
	telemetry ports.Telemetry,
	logger ports.Logger,
	sourceRoot string,
) *Orchestrator {
	return &Orchestrator{
		registry:   reg,
		cache:      cache,
		hasher:     hasher,
		executor:   executor,
		telemetry:  telemetry,
		logger:     logger,
		sourceRoot: sourceRoot,
	}
}

// Build runs the builder to completion and returns its artifact.
func (o *Orchestrator) Build(ctx context.Context, builderID string, opts BuildOptions) (*Result, error) {
	builder, err := o.registry.Resolve(builderID)
	if err != nil {
		return nil, err
	}

	run := &runState{
		result:       &Result{Statuses: make(map[string]domain.StepStatus, builder.StepCount())},
		fingerprints: make(map[string]domain.Fingerprint, builder.StepCount()),
		dirs:         make(map[string]string, builder.StepCount()),
	}
	for step := range builder.Walk() {
		run.result.Statuses[step.ID] = domain.StepPending
	}

	for step := range builder.Walk() {
		if err := o.resolveStep(ctx, builder, step, opts, run, false); err != nil {
			return nil, err
		}
	}

	final := builder.FinalStep()
	run.result.Artifact = domain.Artifact{
		BuilderID:   builder.ID,
		Fingerprint: run.fingerprints[final.ID],
		Dir:         run.dirs[final.ID],
	}

	if opts.OutputDir != "" {
		if err := copyTree(run.result.Artifact.Dir, opts.OutputDir); err != nil {
			return nil, zerr.Wrap(err, "failed to copy artifact to output directory")
		}
		run.result.Artifact.Dir = opts.OutputDir
	}

	return run.result, nil
}

// BuildCached is the pre-pass run before parallel matrix jobs start: it
// executes only the steps that need emulation, so their slow outputs are in
// the shared cache before fan-out. Steps whose dependencies are not yet
// cached are skipped, never executed natively.
func (o *Orchestrator) BuildCached(ctx context.Context, builderID string) (*Result, error) {
	builder, err := o.registry.Resolve(builderID)
	if err != nil {
		return nil, err
	}

	run := &runState{
		result:       &Result{Statuses: make(map[string]domain.StepStatus, builder.StepCount())},
		fingerprints: make(map[string]domain.Fingerprint, builder.StepCount()),
		dirs:         make(map[string]string, builder.StepCount()),
	}

	for step := range builder.Walk() {
		fp, err := o.fingerprint(step, run)
		if err != nil {
			return nil, err
		}
		run.fingerprints[step.ID] = fp

		if !step.EmulationRequired {
			// Record a cache hit if one exists so downstream emulated steps
			// can still resolve their upstream dirs.
			if artifact, err := o.cacheGet(ctx, fp); artifact != nil && err == nil {
				run.dirs[step.ID] = artifact.Dir
				run.result.Statuses[step.ID] = domain.StepCacheHit
			}
			continue
		}

		if !o.upstreamResolved(step, run) {
			o.logger.Warn("skipping emulated step with unresolved dependencies",
				"builder", builder.ID, "step", step.ID)
			continue
		}

		if err := o.resolveStep(ctx, builder, step, BuildOptions{}, run, true); err != nil {
			return nil, err
		}
	}

	return run.result, nil
}

// runState accumulates per-run fingerprints, resolved artifact directories,
// and statuses. One run is sequential, so no locking.
type runState struct {
	result       *Result
	fingerprints map[string]domain.Fingerprint
	dirs         map[string]string
}

func (o *Orchestrator) upstreamResolved(step *domain.Step, run *runState) bool {
	for _, dep := range step.DependsOn {
		if _, ok := run.dirs[dep]; !ok {
			return false
		}
	}
	return true
}

// resolveStep brings one step to a terminal status: seeded from a supplied
// package file, served from the cache, or executed.
func (o *Orchestrator) resolveStep(
	ctx context.Context,
	builder *domain.Builder,
	step *domain.Step,
	opts BuildOptions,
	run *runState,
	prePass bool,
) error {
	fp, err := o.fingerprint(step, run)
	if err != nil {
		return zerr.With(zerr.With(err, "builder", builder.ID), "step", step.ID)
	}
	run.fingerprints[step.ID] = fp

	ctx, vtx := o.telemetry.Record(ctx, builder.ID+"/"+step.ID)

	if step.ReusePackageName != "" {
		if supplied, ok := opts.ReusedPackages[step.ReusePackageName]; ok {
			dir, err := o.seedSupplied(ctx, fp, supplied)
			if err != nil {
				vtx.Done(err)
				return zerr.With(err, "step", step.ID)
			}
			run.dirs[step.ID] = dir
			run.result.Statuses[step.ID] = domain.StepCacheHit
			vtx.Cached()
			vtx.Done(nil)
			return nil
		}
	}

	if artifact, err := o.cacheGet(ctx, fp); err == nil && artifact != nil {
		run.dirs[step.ID] = artifact.Dir
		run.result.Statuses[step.ID] = domain.StepCacheHit
		vtx.Cached()
		vtx.Done(nil)
		return nil
	}

	run.result.Statuses[step.ID] = domain.StepExecuting
	dir, err := o.executeOnce(ctx, step, fp, run)
	if err != nil {
		run.result.Statuses[step.ID] = domain.StepFailed
		vtx.Done(err)
		failure := zerr.With(zerr.Wrap(domain.ErrStepExecutionFailure, err.Error()), "builder", builder.ID)
		return zerr.With(failure, "step", step.ID)
	}

	run.dirs[step.ID] = dir
	run.result.Statuses[step.ID] = domain.StepSucceeded
	if prePass {
		o.logger.Info("pre-built emulated step", "builder", builder.ID, "step", step.ID)
	}
	vtx.Done(nil)
	return nil
}

// executeOnce runs the producing function at most once per fingerprint
// across concurrent builds in this process; the shared cache's first-writer
// semantics extend the guarantee across processes.
func (o *Orchestrator) executeOnce(ctx context.Context, step *domain.Step, fp domain.Fingerprint, run *runState) (string, error) {
	dir, err, _ := o.group.Do(fp.String(), func() (any, error) {
		// A build that raced past the first cache check may enter here after
		// another flight already published this fingerprint.
		if artifact, err := o.cache.Get(ctx, fp); err == nil && artifact != nil {
			return artifact.Dir, nil
		}

		outputDir, err := os.MkdirTemp("", "forge-step-")
		if err != nil {
			return nil, zerr.Wrap(err, "failed to create step output directory")
		}

		env := &domain.StepEnv{
			SourceRoot: o.sourceRoot,
			OutputDir:  outputDir,
			Upstream:   make(map[string]string, len(step.DependsOn)),
			Exec:       o.executor.Execute,
		}
		for _, dep := range step.DependsOn {
			env.Upstream[dep] = run.dirs[dep]
		}

		if err := step.Run(ctx, env); err != nil {
			_ = os.RemoveAll(outputDir)
			return nil, err
		}

		artifact, err := o.cache.Put(ctx, fp, outputDir)
		if err != nil {
			// The output is good even when the cache write is not.
			o.logger.Warn("cache put failed, keeping local output",
				"step", step.ID, "error", err.Error())
			return outputDir, nil
		}
		_ = os.RemoveAll(outputDir)
		return artifact.Dir, nil
	})
	if err != nil {
		return "", err
	}
	return dir.(string), nil
}

// seedSupplied places a command-line supplied package file into the cache
// under the step's fingerprint, so reuse flows through the same abstraction
// as any other cache hit.
func (o *Orchestrator) seedSupplied(ctx context.Context, fp domain.Fingerprint, path string) (string, error) {
	staging, err := os.MkdirTemp("", "forge-reuse-")
	if err != nil {
		return "", zerr.Wrap(err, "failed to create staging directory")
	}
	defer os.RemoveAll(staging) //nolint:errcheck // Best effort cleanup

	if err := copyTree(path, filepath.Join(staging, filepath.Base(path))); err != nil {
		return "", zerr.Wrap(err, "failed to stage supplied package file")
	}

	artifact, err := o.cache.Put(ctx, fp, staging)
	if err != nil {
		return "", zerr.Wrap(err, "failed to seed cache with supplied package")
	}
	return artifact.Dir, nil
}

// cacheGet treats a failing backend as a miss, per the recovery policy for
// an unavailable cache.
func (o *Orchestrator) cacheGet(ctx context.Context, fp domain.Fingerprint) (*domain.CachedArtifact, error) {
	artifact, err := o.cache.Get(ctx, fp)
	if err != nil {
		o.logger.Warn("cache get failed, forcing miss", "fingerprint", fp.String(), "error", err.Error())
		return nil, nil
	}
	return artifact, nil
}

// fingerprint digests the step's declared inputs and chains in the upstream
// fingerprints, making cache keys transitively content-addressed.
func (o *Orchestrator) fingerprint(step *domain.Step, run *runState) (domain.Fingerprint, error) {
	inputs := make([]domain.FingerprintInput, 0, len(step.Inputs)+len(step.DependsOn))

	for _, input := range step.Inputs {
		digest, err := o.hasher.DigestInput(o.sourceRoot, input)
		if err != nil {
			return "", zerr.With(zerr.Wrap(err, "failed to digest step input"), "input", input)
		}
		inputs = append(inputs, domain.FingerprintInput{Name: input, Digest: digest})
	}

	for _, dep := range step.DependsOn {
		inputs = append(inputs, domain.FingerprintInput{
			Name:   "step:" + dep,
			Digest: run.fingerprints[dep].String(),
		})
	}

	return domain.ComputeFingerprint(step.Version, inputs), nil
}
