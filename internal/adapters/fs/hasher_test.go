package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgeci/forge/internal/adapters/fs"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestHasher_DigestInput_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "agent/main.py", "print('hi')")

	h := fs.NewHasher(fs.NewWalker())

	d1, err := h.DigestInput(root, "agent/main.py")
	if err != nil {
		t.Fatalf("DigestInput failed: %v", err)
	}
	d2, err := h.DigestInput(root, "agent/main.py")
	if err != nil {
		t.Fatalf("DigestInput failed: %v", err)
	}
	if d1 != d2 {
		t.Errorf("expected stable digest, got %s and %s", d1, d2)
	}
}

func TestHasher_DigestInput_ContentChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "requirements.txt", "orjson==3.8")

	h := fs.NewHasher(fs.NewWalker())

	before, err := h.DigestInput(root, "requirements.txt")
	if err != nil {
		t.Fatalf("DigestInput failed: %v", err)
	}

	writeFile(t, root, "requirements.txt", "orjson==3.9")
	after, err := h.DigestInput(root, "requirements.txt")
	if err != nil {
		t.Fatalf("DigestInput failed: %v", err)
	}

	if before == after {
		t.Error("content change did not change digest")
	}
}

func TestHasher_DigestInput_Directory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.txt", "a")
	writeFile(t, root, "pkg/sub/b.txt", "b")

	h := fs.NewHasher(fs.NewWalker())

	before, err := h.DigestInput(root, "pkg")
	if err != nil {
		t.Fatalf("DigestInput failed: %v", err)
	}

	// Adding a file anywhere under the directory must change the digest.
	writeFile(t, root, "pkg/sub/c.txt", "c")
	after, err := h.DigestInput(root, "pkg")
	if err != nil {
		t.Fatalf("DigestInput failed: %v", err)
	}

	if before == after {
		t.Error("new file under directory did not change digest")
	}
}

func TestHasher_DigestInput_Glob(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "files/one.deb", "one")
	writeFile(t, root, "files/two.deb", "two")
	writeFile(t, root, "files/skip.txt", "skip")

	h := fs.NewHasher(fs.NewWalker())

	withTxt, err := h.DigestInput(root, "files/*.deb")
	if err != nil {
		t.Fatalf("DigestInput failed: %v", err)
	}

	writeFile(t, root, "files/skip.txt", "changed")
	unchanged, err := h.DigestInput(root, "files/*.deb")
	if err != nil {
		t.Fatalf("DigestInput failed: %v", err)
	}
	if withTxt != unchanged {
		t.Error("file outside the glob changed the digest")
	}
}

func TestHasher_DigestInput_Missing(t *testing.T) {
	root := t.TempDir()
	h := fs.NewHasher(fs.NewWalker())

	if _, err := h.DigestInput(root, "no/such/input"); err == nil {
		t.Error("expected error for missing input")
	}
}
