package registry_test

import (
	"errors"
	"sort"
	"testing"

	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/engine/registry"
)

func TestRegistry_Resolve(t *testing.T) {
	r, err := registry.New([]*domain.Builder{
		domain.NewBuilder("deb-amd64", "linux/amd64"),
		domain.NewBuilder("docker-json-debian", "linux/amd64"),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	b, err := r.Resolve("deb-amd64")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if b.ID != "deb-amd64" {
		t.Errorf("resolved wrong builder: %q", b.ID)
	}
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	r, err := registry.New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = r.Resolve("no-such-builder")
	if !errors.Is(err, domain.ErrUnknownBuilder) {
		t.Errorf("expected ErrUnknownBuilder, got %v", err)
	}
}

func TestRegistry_New_Duplicate(t *testing.T) {
	_, err := registry.New([]*domain.Builder{
		domain.NewBuilder("deb-amd64", "linux/amd64"),
		domain.NewBuilder("deb-amd64", "linux/amd64"),
	})
	if err == nil {
		t.Error("expected error for duplicate builder id")
	}
}

func TestRegistry_IDs_Sorted(t *testing.T) {
	r, err := registry.New([]*domain.Builder{
		domain.NewBuilder("rpm-amd64", "linux/amd64"),
		domain.NewBuilder("deb-amd64", "linux/amd64"),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ids := r.IDs()
	if !sort.StringsAreSorted(ids) {
		t.Errorf("IDs not sorted: %v", ids)
	}
	if len(ids) != 2 {
		t.Errorf("unexpected id count: %v", ids)
	}
}
