package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/redis/go-redis/v9"
	"go.trai.ch/zerr"
)

var _ ports.StepCache = (*RedisStore)(nil)

// RedisStore is a step cache backed by a shared Redis instance, used to
// share step outputs across matrix jobs running on separate machines.
// Artifacts are stored as gzip tarballs; SETNX gives first-writer-wins.
type RedisStore struct {
	client    *redis.Client
	workDir   string
	retention time.Duration
}

type redisEntry struct {
	Meta domain.CachedArtifact `json:"meta"`
	Blob []byte                `json:"blob"`
}

// NewRedisStore connects to the Redis instance at redisURL. Fetched
// artifacts are materialized under workDir.
func NewRedisStore(redisURL, workDir string, retention time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, zerr.Wrap(err, "invalid redis URL")
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, zerr.Wrap(domain.ErrCacheBackendUnavailable, err.Error())
	}

	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return nil, zerr.Wrap(err, "failed to create cache work directory")
	}

	return &RedisStore{client: client, workDir: workDir, retention: retention}, nil
}

func cacheKey(fp domain.Fingerprint) string {
	return "forge:step:" + fp.String()
}

// Get fetches the artifact blob for the fingerprint and materializes it
// locally. Returns nil, nil on a miss.
func (s *RedisStore) Get(ctx context.Context, fp domain.Fingerprint) (*domain.CachedArtifact, error) {
	data, err := s.client.Get(ctx, cacheKey(fp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrCacheBackendUnavailable, err.Error()), "fingerprint", fp.String())
	}

	var entry redisEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entry, treat as a miss.
		return nil, nil
	}

	dir := filepath.Join(s.workDir, fp.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, zerr.Wrap(err, "failed to create artifact directory")
	}
	if err := unpackDir(entry.Blob, dir); err != nil {
		return nil, err
	}

	artifact := entry.Meta
	artifact.Dir = dir
	return &artifact, nil
}

// Put packs dir and stores it under the fingerprint with SETNX semantics: a
// fingerprint that already has a blob keeps the first writer's blob.
func (s *RedisStore) Put(ctx context.Context, fp domain.Fingerprint, dir string) (*domain.CachedArtifact, error) {
	blob, err := packDir(dir)
	if err != nil {
		return nil, err
	}

	artifact := domain.CachedArtifact{
		Fingerprint: fp,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(redisEntry{Meta: artifact, Blob: blob})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to marshal cache entry")
	}

	if err := s.client.SetNX(ctx, cacheKey(fp), data, s.retention).Err(); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrCacheBackendUnavailable, err.Error()), "fingerprint", fp.String())
	}

	artifact.Dir = dir
	return &artifact, nil
}
