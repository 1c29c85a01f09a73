package orchestrator_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/forgeci/forge/internal/adapters/cache"
	"github.com/forgeci/forge/internal/adapters/fs"
	"github.com/forgeci/forge/internal/adapters/logger"
	"github.com/forgeci/forge/internal/adapters/shell"
	"github.com/forgeci/forge/internal/adapters/telemetry"
	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/engine/orchestrator"
	"github.com/forgeci/forge/internal/engine/registry"
)

// writeStep returns a producing function that writes content into the output
// directory and counts its executions.
func writeStep(executions *atomic.Int64, content string) domain.StepFunc {
	return func(ctx context.Context, env *domain.StepEnv) error {
		executions.Add(1)
		return os.WriteFile(filepath.Join(env.OutputDir, "out.txt"), []byte(content), 0o644)
	}
}

func newOrchestrator(t *testing.T, builders ...*domain.Builder) *orchestrator.Orchestrator {
	t.Helper()

	for _, b := range builders {
		if err := b.Validate(); err != nil {
			t.Fatalf("builder %q invalid: %v", b.ID, err)
		}
	}
	reg, err := registry.New(builders)
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}

	store, err := cache.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	log := logger.New()
	log.SetOutput(io.Discard)

	return orchestrator.New(
		reg,
		store,
		fs.NewHasher(fs.NewWalker()),
		shell.NewExecutor(log),
		telemetry.NewNoOp(),
		log,
		t.TempDir(),
	)
}

func TestBuild_CacheHitOnSecondRun(t *testing.T) {
	var executions atomic.Int64

	b := domain.NewBuilder("pkg", "linux/amd64")
	mustAdd(t, b, &domain.Step{ID: "first", Version: "1", Run: writeStep(&executions, "one")})
	mustAdd(t, b, &domain.Step{ID: "second", Version: "1", DependsOn: []string{"first"}, Run: writeStep(&executions, "two")})

	o := newOrchestrator(t, b)

	res1, err := o.Build(context.Background(), "pkg", orchestrator.BuildOptions{})
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if got := executions.Load(); got != 2 {
		t.Fatalf("expected 2 executions on cold cache, got %d", got)
	}
	for id, status := range res1.Statuses {
		if status != domain.StepSucceeded {
			t.Errorf("step %q: expected succeeded, got %q", id, status)
		}
	}

	res2, err := o.Build(context.Background(), "pkg", orchestrator.BuildOptions{})
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	if got := executions.Load(); got != 2 {
		t.Errorf("expected zero new executions on warm cache, got %d total", got)
	}
	for id, status := range res2.Statuses {
		if status != domain.StepCacheHit {
			t.Errorf("step %q: expected cache_hit, got %q", id, status)
		}
	}
	if res1.Artifact.Fingerprint != res2.Artifact.Fingerprint {
		t.Error("artifact fingerprint changed between identical runs")
	}
}

func TestBuild_ConcurrentRunsExecuteOnce(t *testing.T) {
	var executions atomic.Int64

	b := domain.NewBuilder("pkg", "linux/amd64")
	mustAdd(t, b, &domain.Step{ID: "only", Version: "1", Run: writeStep(&executions, "payload")})

	o := newOrchestrator(t, b)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = o.Build(context.Background(), "pkg", orchestrator.BuildOptions{})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Build %d failed: %v", i, err)
		}
	}
	if got := executions.Load(); got != 1 {
		t.Errorf("expected exactly 1 execution across %d concurrent builds, got %d", n, got)
	}
}

func TestBuild_FailureDoesNotPoisonCache(t *testing.T) {
	var attempts atomic.Int64
	stepErr := errors.New("tool exploded")

	b := domain.NewBuilder("pkg", "linux/amd64")
	mustAdd(t, b, &domain.Step{ID: "flaky", Version: "1", Run: func(ctx context.Context, env *domain.StepEnv) error {
		if attempts.Add(1) == 1 {
			return stepErr
		}
		return os.WriteFile(filepath.Join(env.OutputDir, "out.txt"), []byte("ok"), 0o644)
	}})

	o := newOrchestrator(t, b)

	_, err := o.Build(context.Background(), "pkg", orchestrator.BuildOptions{})
	if !errors.Is(err, domain.ErrStepExecutionFailure) {
		t.Fatalf("expected ErrStepExecutionFailure, got %v", err)
	}

	// The failed attempt must not have been cached; the retry executes.
	res, err := o.Build(context.Background(), "pkg", orchestrator.BuildOptions{})
	if err != nil {
		t.Fatalf("retry Build failed: %v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("expected a real re-execution after failure, got %d attempts", got)
	}
	if res.Statuses["flaky"] != domain.StepSucceeded {
		t.Errorf("retry status: %q", res.Statuses["flaky"])
	}
}

func TestBuild_UnknownBuilder(t *testing.T) {
	o := newOrchestrator(t)

	_, err := o.Build(context.Background(), "no-such-builder", orchestrator.BuildOptions{})
	if !errors.Is(err, domain.ErrUnknownBuilder) {
		t.Errorf("expected ErrUnknownBuilder, got %v", err)
	}
}

func TestBuild_UpstreamDirVisible(t *testing.T) {
	var executions atomic.Int64
	var seenUpstream string

	b := domain.NewBuilder("pkg", "linux/amd64")
	mustAdd(t, b, &domain.Step{ID: "producer", Version: "1", Run: writeStep(&executions, "artifact")})
	mustAdd(t, b, &domain.Step{ID: "consumer", Version: "1", DependsOn: []string{"producer"}, Run: func(ctx context.Context, env *domain.StepEnv) error {
		data, err := os.ReadFile(filepath.Join(env.Upstream["producer"], "out.txt"))
		if err != nil {
			return err
		}
		seenUpstream = string(data)
		return os.WriteFile(filepath.Join(env.OutputDir, "final.txt"), data, 0o644)
	}})

	o := newOrchestrator(t, b)

	if _, err := o.Build(context.Background(), "pkg", orchestrator.BuildOptions{}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if seenUpstream != "artifact" {
		t.Errorf("consumer did not see producer output: %q", seenUpstream)
	}
}

func TestBuild_VersionBumpInvalidates(t *testing.T) {
	var executions atomic.Int64

	build := func(version string) *orchestrator.Orchestrator {
		b := domain.NewBuilder("pkg", "linux/amd64")
		mustAdd(t, b, &domain.Step{ID: "only", Version: version, Run: writeStep(&executions, "payload")})
		return newOrchestrator(t, b)
	}

	// Same cache dir across both orchestrators would be ideal, but distinct
	// fingerprints suffice to show the epoch participates in the key.
	o1 := build("1")
	res1, err := o1.Build(context.Background(), "pkg", orchestrator.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	o2 := build("2")
	res2, err := o2.Build(context.Background(), "pkg", orchestrator.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res1.Artifact.Fingerprint == res2.Artifact.Fingerprint {
		t.Error("version bump did not change the fingerprint")
	}
}

func TestBuild_OutputDirReceivesArtifact(t *testing.T) {
	var executions atomic.Int64

	b := domain.NewBuilder("pkg", "linux/amd64")
	mustAdd(t, b, &domain.Step{ID: "only", Version: "1", Run: writeStep(&executions, "payload")})

	o := newOrchestrator(t, b)
	outputDir := filepath.Join(t.TempDir(), "registry")

	res, err := o.Build(context.Background(), "pkg", orchestrator.BuildOptions{OutputDir: outputDir})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if res.Artifact.Dir != outputDir {
		t.Errorf("artifact dir not redirected: %q", res.Artifact.Dir)
	}

	data, err := os.ReadFile(filepath.Join(outputDir, "out.txt"))
	if err != nil {
		t.Fatalf("artifact not copied: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("artifact content mismatch: %q", data)
	}
}

func TestBuild_SuppliedPackageSkipsStep(t *testing.T) {
	var executions atomic.Int64

	supplied := filepath.Join(t.TempDir(), "scalyr-agent-python3_1.2.0_amd64.deb")
	if err := os.WriteFile(supplied, []byte("prebuilt"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := domain.NewBuilder("pkg", "linux/amd64")
	mustAdd(t, b, &domain.Step{
		ID: "build_python_dependency", Version: "1",
		ReusePackageName: "scalyr-agent-python3",
		Run:              writeStep(&executions, "built-from-scratch"),
	})
	mustAdd(t, b, &domain.Step{
		ID: "build_agent_package", Version: "1",
		DependsOn: []string{"build_python_dependency"},
		Run: func(ctx context.Context, env *domain.StepEnv) error {
			return copyAll(env.Upstream["build_python_dependency"], env.OutputDir)
		},
	})

	o := newOrchestrator(t, b)

	res, err := o.Build(context.Background(), "pkg", orchestrator.BuildOptions{
		ReusedPackages: map[string]string{"scalyr-agent-python3": supplied},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := executions.Load(); got != 0 {
		t.Errorf("dependency step executed despite supplied package, %d executions", got)
	}
	if res.Statuses["build_python_dependency"] != domain.StepCacheHit {
		t.Errorf("supplied step status: %q", res.Statuses["build_python_dependency"])
	}

	data, err := os.ReadFile(filepath.Join(res.Artifact.Dir, filepath.Base(supplied)))
	if err != nil {
		t.Fatalf("supplied package not propagated: %v", err)
	}
	if string(data) != "prebuilt" {
		t.Errorf("supplied package content mismatch: %q", data)
	}
}

func TestBuildCached_RunsOnlyEmulatedSteps(t *testing.T) {
	var emulated, native atomic.Int64

	b := domain.NewBuilder("img", "linux/amd64")
	mustAdd(t, b, &domain.Step{
		ID: "base_arm64", Version: "1",
		Platform: "linux/arm64", EmulationRequired: true,
		Run: writeStep(&emulated, "arm64-base"),
	})
	mustAdd(t, b, &domain.Step{
		ID: "assemble", Version: "1",
		DependsOn: []string{"base_arm64"},
		Run:       writeStep(&native, "image"),
	})

	o := newOrchestrator(t, b)

	res, err := o.BuildCached(context.Background(), "img")
	if err != nil {
		t.Fatalf("BuildCached failed: %v", err)
	}
	if got := emulated.Load(); got != 1 {
		t.Errorf("emulated step executions: %d", got)
	}
	if got := native.Load(); got != 0 {
		t.Errorf("native step must not run in the pre-pass, %d executions", got)
	}
	if res.Statuses["base_arm64"] != domain.StepSucceeded {
		t.Errorf("emulated step status: %q", res.Statuses["base_arm64"])
	}

	// The full build afterwards serves the emulated step from the cache.
	full, err := o.Build(context.Background(), "img", orchestrator.BuildOptions{})
	if err != nil {
		t.Fatalf("Build after pre-pass failed: %v", err)
	}
	if got := emulated.Load(); got != 1 {
		t.Errorf("emulated step re-executed after pre-pass, %d executions", got)
	}
	if full.Statuses["base_arm64"] != domain.StepCacheHit {
		t.Errorf("pre-built step status in full build: %q", full.Statuses["base_arm64"])
	}
}

func mustAdd(t *testing.T, b *domain.Builder, s *domain.Step) {
	t.Helper()
	if err := b.AddStep(s); err != nil {
		t.Fatalf("AddStep %q failed: %v", s.ID, err)
	}
}

func copyAll(srcDir, dstDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(srcDir, e.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dstDir, e.Name()), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
