package domain

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a stable content-derived key identifying a step's inputs.
// Equal fingerprints imply equivalent step outputs.
type Fingerprint string

// FingerprintInput is one (name, digest) pair contributing to a fingerprint.
// For file inputs the digest is the file's content hash; for upstream step
// outputs it is the upstream step's own fingerprint, so a change anywhere
// upstream invalidates every downstream fingerprint transitively.
type FingerprintInput struct {
	Name   string
	Digest string
}

// ComputeFingerprint derives a fingerprint from the version tag and the
// given inputs. It is a pure function: the inputs are canonicalized by name
// before hashing, so the result does not depend on the order in which
// logically unordered inputs were collected.
func ComputeFingerprint(version string, inputs []FingerprintInput) Fingerprint {
	sorted := make([]FingerprintInput, len(inputs))
	copy(sorted, inputs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	hasher := xxhash.New()
	_, _ = hasher.WriteString(version)
	_, _ = hasher.Write([]byte{0})

	for _, in := range sorted {
		_, _ = hasher.WriteString(in.Name)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(in.Digest)
		_, _ = hasher.Write([]byte{0})
	}

	return Fingerprint(fmt.Sprintf("%016x", hasher.Sum64()))
}

// String returns the fingerprint's hex form.
func (f Fingerprint) String() string {
	return string(f)
}
