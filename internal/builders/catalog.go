// Package builders defines the static catalog of builders the CLI exposes.
// Builder and step identifiers are the contract consumed by CI workflow
// definitions; renaming one breaks every pipeline referencing it.
package builders

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/forgeci/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	// PythonDependencyPackage is the repository name of the bundled
	// interpreter package shared by all managed package builders.
	PythonDependencyPackage = "scalyr-agent-python3"

	// AgentLibsPackage is the repository name of the bundled third-party
	// libraries package.
	AgentLibsPackage = "scalyr-agent-libs"
)

// Catalog builds the full builder list. Every builder has been validated;
// callers can Walk immediately.
func Catalog() ([]*domain.Builder, error) {
	var all []*domain.Builder

	for _, variant := range []string{"json", "syslog", "api"} {
		b, err := imageBuilder(variant)
		if err != nil {
			return nil, err
		}
		all = append(all, b)
	}

	for _, format := range []string{"deb", "rpm"} {
		b, err := packageBuilder(format)
		if err != nil {
			return nil, err
		}
		all = append(all, b)
	}

	return all, nil
}

// imageBuilder produces the multi-arch agent image builders, e.g.
// "docker-json-debian". The arm64 base image stage runs under emulation on
// the amd64 CI runners, so it is marked for the cached pre-pass.
func imageBuilder(variant string) (*domain.Builder, error) {
	id := "docker-" + variant + "-debian"
	b := domain.NewBuilder(id, "linux/amd64")

	baseInputs := []string{
		"agent_build/docker/Dockerfile.base",
		"agent_build/requirements.txt",
	}

	steps := []*domain.Step{
		{
			ID:       "build_base_image_amd64",
			Version:  "1",
			Inputs:   baseInputs,
			Platform: "linux/amd64",
			Run:      buildBaseImage("linux/amd64"),
		},
		{
			ID:                "build_base_image_arm64",
			Version:           "1",
			Inputs:            baseInputs,
			Platform:          "linux/arm64",
			EmulationRequired: runtime.GOARCH != "arm64",
			Run:               buildBaseImage("linux/arm64"),
		},
		{
			ID:      "build_image",
			Version: "1",
			Inputs: []string{
				"agent_build/docker/Dockerfile",
				"agent_build/docker/" + variant + "/*",
				"scalyr_agent/**/*.py",
			},
			DependsOn: []string{"build_base_image_amd64", "build_base_image_arm64"},
			Platform:  "linux/amd64",
			Run:       buildFinalImage(variant),
		},
	}

	return assemble(b, steps)
}

// packageBuilder produces the managed .deb/.rpm builders, e.g. "deb-amd64".
// The two dependency packages change rarely, so both carry a repository
// package name the CLI can map --last-repo-*-package-file flags onto.
func packageBuilder(format string) (*domain.Builder, error) {
	id := format + "-amd64"
	b := domain.NewBuilder(id, "linux/amd64")

	steps := []*domain.Step{
		{
			ID:      "build_python_dependency",
			Version: "1",
			Inputs: []string{
				"agent_build/managed_packages/python/*",
				"agent_build/requirements.txt",
			},
			Platform:         "linux/amd64",
			ReusePackageName: PythonDependencyPackage,
			Run:              buildManagedPackage(format, PythonDependencyPackage),
		},
		{
			ID:      "build_agent_libs",
			Version: "1",
			Inputs: []string{
				"agent_build/managed_packages/libs/*",
				"agent_build/dev-requirements.txt",
			},
			DependsOn:        []string{"build_python_dependency"},
			Platform:         "linux/amd64",
			ReusePackageName: AgentLibsPackage,
			Run:              buildManagedPackage(format, AgentLibsPackage),
		},
		{
			ID:      "build_agent_package",
			Version: "1",
			Inputs: []string{
				"scalyr_agent/**/*.py",
				"agent_build/managed_packages/agent/*",
			},
			DependsOn: []string{"build_python_dependency", "build_agent_libs"},
			Platform:  "linux/amd64",
			Run:       buildAgentPackage(format),
		},
	}

	return assemble(b, steps)
}

func assemble(b *domain.Builder, steps []*domain.Step) (*domain.Builder, error) {
	for _, s := range steps {
		if err := b.AddStep(s); err != nil {
			return nil, zerr.With(err, "builder", b.ID)
		}
	}
	if err := b.Validate(); err != nil {
		return nil, zerr.With(err, "builder", b.ID)
	}
	return b, nil
}

func buildBaseImage(platform domain.Platform) domain.StepFunc {
	return func(ctx context.Context, env *domain.StepEnv) error {
		return env.Exec(ctx, domain.Command{
			Args: []string{
				"docker", "buildx", "build",
				"--platform", string(platform),
				"--file", "agent_build/docker/Dockerfile.base",
				"--output", "type=oci,dest=" + filepath.Join(env.OutputDir, "base-image.tar"),
				".",
			},
			Dir: env.SourceRoot,
		})
	}
}

func buildFinalImage(variant string) domain.StepFunc {
	return func(ctx context.Context, env *domain.StepEnv) error {
		args := []string{
			"docker", "buildx", "build",
			"--platform", "linux/amd64,linux/arm64",
			"--file", "agent_build/docker/Dockerfile",
			"--build-arg", "AGENT_VARIANT=" + variant,
			"--output", "type=oci,dest=" + filepath.Join(env.OutputDir, "image.tar"),
		}
		for stepID, dir := range env.Upstream {
			args = append(args, "--build-context", fmt.Sprintf("%s=oci-layout://%s", stepID, dir))
		}
		args = append(args, ".")

		return env.Exec(ctx, domain.Command{Args: args, Dir: env.SourceRoot})
	}
}

func buildManagedPackage(format, packageName string) domain.StepFunc {
	return func(ctx context.Context, env *domain.StepEnv) error {
		return env.Exec(ctx, domain.Command{
			Args: []string{
				"fpm",
				"--input-type", "dir",
				"--output-type", format,
				"--name", packageName,
				"--architecture", "amd64",
				"--package", env.OutputDir,
				"agent_build/managed_packages/build-root/" + packageName + "=/",
			},
			Dir: env.SourceRoot,
		})
	}
}

func buildAgentPackage(format string) domain.StepFunc {
	return func(ctx context.Context, env *domain.StepEnv) error {
		args := []string{
			"fpm",
			"--input-type", "dir",
			"--output-type", format,
			"--name", "scalyr-agent-2",
			"--architecture", "amd64",
			"--package", env.OutputDir,
		}
		// Depend on the dependency packages produced (or reused) upstream.
		for _, dep := range []string{PythonDependencyPackage, AgentLibsPackage} {
			args = append(args, "--depends", dep)
		}
		args = append(args, "scalyr_agent=/usr/share/scalyr-agent-2/py/scalyr_agent")

		return env.Exec(ctx, domain.Command{Args: args, Dir: env.SourceRoot})
	}
}
