package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/forgeci/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes content digests of declared step inputs.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// DigestFile computes the XXHash of a file's content.
func (h *Hasher) DigestFile(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}

// DigestInput resolves input (a file, directory, or glob pattern relative to
// root) and returns a stable hex digest of its content. Directory contents
// are folded in walk order; file paths relative to root participate in the
// digest so renames invalidate it.
func (h *Hasher) DigestInput(root, input string) (string, error) {
	path := filepath.Join(root, input)
	hasher := xxhash.New()

	if _, err := os.Stat(path); err != nil {
		if err := h.digestGlob(root, path, hasher); err != nil {
			return "", err
		}
		return fmt.Sprintf("%016x", hasher.Sum64()), nil
	}

	if err := h.digestPath(root, path, hasher); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// digestGlob resolves a path as a glob pattern and digests all matches.
func (h *Hasher) digestGlob(root, path string, hasher io.Writer) error {
	matches, globErr := filepath.Glob(path)
	if globErr != nil || len(matches) == 0 {
		return zerr.With(zerr.New("input not found"), "path", path)
	}
	for _, match := range matches {
		if err := h.digestPath(root, match, hasher); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hasher) digestPath(root, path string, hasher io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to stat path"), "path", path)
	}

	if info.IsDir() {
		for filePath := range h.walker.WalkFiles(path, nil) {
			if err := h.digestOneFile(root, filePath, hasher); err != nil {
				return err
			}
		}
		return nil
	}
	return h.digestOneFile(root, path, hasher)
}

func (h *Hasher) digestOneFile(root, path string, hasher io.Writer) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	_, _ = hasher.Write([]byte(filepath.ToSlash(rel)))
	_, _ = hasher.Write([]byte{0})

	sum, err := h.DigestFile(path)
	if err != nil {
		return err
	}

	if err := binary.Write(hasher, binary.LittleEndian, sum); err != nil {
		return zerr.Wrap(err, "failed to write hash to digest")
	}
	return nil
}
