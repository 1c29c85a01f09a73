package ports

import (
	"context"

	"github.com/forgeci/forge/internal/core/domain"
)

// StepCache persists step outputs keyed by fingerprint.
//
// The backend is swappable (local disk for a single machine, a remote store
// for cross-job sharing); only a key-value contract with read-after-write
// consistency per key is assumed. The cache is an optimization, never a
// correctness dependency: callers treat a failing Get as a miss.
//
//go:generate go run go.uber.org/mock/mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks
type StepCache interface {
	// Get retrieves the artifact stored for the fingerprint.
	// Returns nil, nil on a miss.
	Get(ctx context.Context, fp domain.Fingerprint) (*domain.CachedArtifact, error)

	// Put stores the contents of dir under the fingerprint. A Put for a
	// fingerprint that already has an artifact is a no-op (first writer
	// wins), which gives at-most-once semantics for expensive steps even
	// when parallel jobs race to produce the same fingerprint.
	Put(ctx context.Context, fp domain.Fingerprint, dir string) (*domain.CachedArtifact, error)
}
