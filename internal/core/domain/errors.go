package domain

import "go.trai.ch/zerr"

var (
	// ErrUnknownBuilder is returned when a builder identifier is not present in the registry.
	ErrUnknownBuilder = zerr.New("unknown builder")

	// ErrStepAlreadyExists is returned when attempting to add a step with an identifier that already exists.
	ErrStepAlreadyExists = zerr.New("step already exists")

	// ErrMissingStepDependency is returned when a step references an upstream step that doesn't exist in the builder.
	ErrMissingStepDependency = zerr.New("missing step dependency")

	// ErrCycleDetected is returned when a cycle is detected in a builder's step graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrStepExecutionFailure wraps the underlying cause of a failed step.
	// A failed step aborts the current builder only; sibling matrix cells are unaffected.
	ErrStepExecutionFailure = zerr.New("step execution failed")

	// ErrCacheBackendUnavailable indicates the step cache backend could not be
	// reached. Callers recover by forcing a cache miss; it never fails a build.
	ErrCacheBackendUnavailable = zerr.New("cache backend unavailable")

	// ErrQuotaExceeded is returned when the provider's access-grant list is at
	// capacity. Retryable after backoff or after a sweep frees entries.
	ErrQuotaExceeded = zerr.New("access grant quota exceeded")

	// ErrResourceProvisionFailure is returned after bounded provisioning
	// retries have been exhausted.
	ErrResourceProvisionFailure = zerr.New("resource provisioning failed")

	// ErrTestTimeout marks a test suite that exceeded its deadline. It is
	// reported through a failed Report, never as a crash.
	ErrTestTimeout = zerr.New("test suite timed out")

	// ErrOrphanDetectionAmbiguous indicates a grant entry whose owning
	// workflow could not be determined. Sweep never removes such entries.
	ErrOrphanDetectionAmbiguous = zerr.New("cannot determine grant entry owner")
)
