package domain_test

import (
	"errors"
	"testing"

	"github.com/forgeci/forge/internal/core/domain"
)

func TestBuilder_AddStep_Duplicate(t *testing.T) {
	b := domain.NewBuilder("docker-json-debian", "linux/amd64")

	if err := b.AddStep(&domain.Step{ID: "base"}); err != nil {
		t.Fatalf("AddStep failed: %v", err)
	}
	err := b.AddStep(&domain.Step{ID: "base"})
	if !errors.Is(err, domain.ErrStepAlreadyExists) {
		t.Errorf("expected ErrStepAlreadyExists, got %v", err)
	}
}

func TestBuilder_Validate_TopologicalOrder(t *testing.T) {
	b := domain.NewBuilder("docker-json-debian", "linux/amd64")

	// package depends on base and libs; libs depends on base.
	_ = b.AddStep(&domain.Step{ID: "package", DependsOn: []string{"base", "libs"}})
	_ = b.AddStep(&domain.Step{ID: "libs", DependsOn: []string{"base"}})
	_ = b.AddStep(&domain.Step{ID: "base"})

	if err := b.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	var order []string
	for step := range b.Walk() {
		order = append(order, step.ID)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos["base"] > pos["libs"] || pos["libs"] > pos["package"] {
		t.Errorf("dependency order violated: %v", order)
	}

	if final := b.FinalStep(); final == nil || final.ID != "package" {
		t.Errorf("expected final step 'package', got %v", final)
	}
}

func TestBuilder_Validate_DeclarationOrderTieBreak(t *testing.T) {
	b := domain.NewBuilder("toolset", "linux/amd64")

	// Independent steps: the walk must follow declaration order.
	_ = b.AddStep(&domain.Step{ID: "glibc-x86_64"})
	_ = b.AddStep(&domain.Step{ID: "glibc-arm64"})
	_ = b.AddStep(&domain.Step{ID: "musl-x86_64"})

	if err := b.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	var order []string
	for step := range b.Walk() {
		order = append(order, step.ID)
	}

	want := []string{"glibc-x86_64", "glibc-arm64", "musl-x86_64"}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("expected declaration order %v, got %v", want, order)
		}
	}
}

func TestBuilder_Validate_Cycle(t *testing.T) {
	b := domain.NewBuilder("broken", "linux/amd64")

	_ = b.AddStep(&domain.Step{ID: "a", DependsOn: []string{"b"}})
	_ = b.AddStep(&domain.Step{ID: "b", DependsOn: []string{"a"}})

	err := b.Validate()
	if !errors.Is(err, domain.ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}
}

func TestBuilder_Validate_MissingDependency(t *testing.T) {
	b := domain.NewBuilder("broken", "linux/amd64")

	_ = b.AddStep(&domain.Step{ID: "a", DependsOn: []string{"ghost"}})

	err := b.Validate()
	if !errors.Is(err, domain.ErrMissingStepDependency) {
		t.Errorf("expected ErrMissingStepDependency, got %v", err)
	}
}
