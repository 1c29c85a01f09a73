// Package cache implements the step cache backends: a content-addressed
// local-disk store and a Redis-backed remote store for cross-job sharing.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/google/uuid"
	"go.trai.ch/zerr"
)

var _ ports.StepCache = (*LocalStore)(nil)

const metaFileName = "meta.json"

// LocalStore is a step cache on the local filesystem. Each fingerprint owns
// one directory under root; publication is an atomic rename, so concurrent
// writers race safely and the first one wins.
type LocalStore struct {
	root string
}

// NewLocalStore creates a local store rooted at the given directory.
func NewLocalStore(root string) (*LocalStore, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, zerr.Wrap(err, "failed to create cache root")
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) entryDir(fp domain.Fingerprint) string {
	return filepath.Join(s.root, fp.String())
}

// Get retrieves the artifact stored for the fingerprint. Returns nil, nil on
// a miss.
func (s *LocalStore) Get(_ context.Context, fp domain.Fingerprint) (*domain.CachedArtifact, error) {
	metaPath := filepath.Join(s.entryDir(fp), metaFileName)

	//nolint:gosec // Path is derived from a hex fingerprint under the cache root
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrCacheBackendUnavailable, err.Error()), "fingerprint", fp.String())
	}

	var artifact domain.CachedArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		// A corrupt entry is treated as a miss; the rebuild overwrites it.
		return nil, nil
	}
	artifact.Dir = filepath.Join(s.entryDir(fp), "data")
	return &artifact, nil
}

// Put stores the contents of dir under the fingerprint. If an artifact is
// already present the call is a no-op and the existing artifact is returned.
func (s *LocalStore) Put(ctx context.Context, fp domain.Fingerprint, dir string) (*domain.CachedArtifact, error) {
	if existing, err := s.Get(ctx, fp); err == nil && existing != nil {
		return existing, nil
	}

	staging := filepath.Join(s.root, ".staging-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o750); err != nil {
		return nil, zerr.Wrap(domain.ErrCacheBackendUnavailable, err.Error())
	}
	defer os.RemoveAll(staging) //nolint:errcheck // Best effort cleanup of staging leftovers

	if err := copyTree(dir, filepath.Join(staging, "data")); err != nil {
		return nil, err
	}

	artifact := domain.CachedArtifact{
		Fingerprint: fp,
		CreatedAt:   time.Now().UTC(),
	}
	meta, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to marshal cache metadata")
	}
	if err := os.WriteFile(filepath.Join(staging, metaFileName), meta, 0o644); err != nil { //nolint:gosec // Cache metadata is not sensitive
		return nil, zerr.Wrap(domain.ErrCacheBackendUnavailable, err.Error())
	}

	// First writer wins: rename fails when another writer already published
	// this fingerprint, which is not an error.
	if err := os.Rename(staging, s.entryDir(fp)); err != nil {
		if existing, getErr := s.Get(ctx, fp); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrCacheBackendUnavailable, err.Error()), "fingerprint", fp.String())
	}

	artifact.Dir = filepath.Join(s.entryDir(fp), "data")
	return &artifact, nil
}

// copyTree copies src into dst preserving structure and file modes.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src) //nolint:gosec // Paths are under controlled directories
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // Best effort close in defer

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec // See above
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
