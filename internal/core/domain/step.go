package domain

import (
	"context"
	"time"
)

// Platform identifies the target platform of a step or builder, e.g. "linux/amd64".
type Platform string

// StepFunc is a step's producing function. It must write the step's output
// into env.OutputDir and nothing else; the orchestrator caches the directory
// as a whole only after the function returns nil.
type StepFunc func(ctx context.Context, env *StepEnv) error

// StepEnv is the execution environment handed to a producing function.
type StepEnv struct {
	// SourceRoot is the root of the source tree the step's inputs are
	// resolved against.
	SourceRoot string

	// OutputDir is the directory the step must place its output in.
	OutputDir string

	// Upstream maps an upstream step identifier to its resolved artifact
	// directory (cache hit or fresh execution, the step cannot tell).
	Upstream map[string]string

	// Exec runs an external command on behalf of the step.
	Exec func(ctx context.Context, cmd Command) error
}

// Command describes one external command invocation performed by a step.
type Command struct {
	Args []string
	Dir  string
	Env  map[string]string
}

// Step is one content-addressed unit of work inside a builder.
// Steps are defined at registry load time and never mutated afterwards; a
// step executes at most once per unique fingerprint within a cache's
// retention window.
type Step struct {
	// ID identifies the step within its builder.
	ID string

	// Version is a builder-declared cache epoch. Bumping it invalidates
	// every cached output of the step without touching its inputs.
	Version string

	// Inputs are paths (files, directories, or globs) relative to the
	// source root whose content participates in the fingerprint.
	Inputs []string

	// DependsOn lists upstream step identifiers. Their fingerprints chain
	// into this step's fingerprint.
	DependsOn []string

	// Platform the step builds for. A step whose platform differs from the
	// host architecture runs under emulation and is scheduled in the
	// cached pre-pass so its output exists before parallel matrix jobs start.
	Platform Platform

	// EmulationRequired marks the step for the dedicated pre-pass.
	EmulationRequired bool

	// ReusePackageName, when set, names a previously published dependency
	// package that can stand in for this step's output. The CLI maps
	// --last-repo-<dep>-package-file flags onto it.
	ReusePackageName string

	// Run is the producing function.
	Run StepFunc
}

// StepStatus is the state of a step within one builder run.
//
// pending -> cache_hit (terminal)
//
//	| executing -> succeeded (terminal, cache written)
//	            -> failed    (terminal, cache untouched)
type StepStatus string

const (
	// StepPending indicates the step has not been considered yet.
	StepPending StepStatus = "pending"
	// StepCacheHit indicates the step's output was served from the cache.
	StepCacheHit StepStatus = "cache_hit"
	// StepExecuting indicates the producing function is running.
	StepExecuting StepStatus = "executing"
	// StepSucceeded indicates the producing function finished and the cache was written.
	StepSucceeded StepStatus = "succeeded"
	// StepFailed indicates the producing function failed; the cache is untouched.
	StepFailed StepStatus = "failed"
)

// CachedArtifact is a step output stored in the cache.
type CachedArtifact struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Dir         string      `json:"dir"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Artifact is the final output of a builder run.
type Artifact struct {
	BuilderID   string
	Fingerprint Fingerprint
	Dir         string
}
