// Package domain contains the core domain models for builders, cached steps,
// and ephemeral test resources.
package domain

import (
	"iter"

	"go.trai.ch/zerr"
)

// Builder is a named, immutable procedure that turns declared inputs into
// one build artifact via a DAG of cacheable steps. Its identifier is the
// stable contract exposed to the CLI; renaming it is a breaking change.
type Builder struct {
	ID       string
	Platform Platform

	steps          map[string]*Step
	declared       []string
	executionOrder []string
}

// NewBuilder creates an empty builder with the given identifier and target platform.
func NewBuilder(id string, platform Platform) *Builder {
	return &Builder{
		ID:       id,
		Platform: platform,
		steps:    make(map[string]*Step),
	}
}

// AddStep adds a step to the builder.
// It returns an error if a step with the same identifier already exists.
func (b *Builder) AddStep(s *Step) error {
	if _, exists := b.steps[s.ID]; exists {
		return zerr.With(zerr.Wrap(ErrStepAlreadyExists, ""), "step", s.ID)
	}
	b.steps[s.ID] = s
	b.declared = append(b.declared, s.ID)
	return nil
}

// Step returns the step with the given identifier, or nil if absent.
func (b *Builder) Step(id string) *Step {
	return b.steps[id]
}

// StepCount returns the number of steps in the builder.
func (b *Builder) StepCount() int {
	return len(b.steps)
}

// Validate checks the step graph for cycles and missing dependencies using a
// depth-first topological sort. Roots are visited in declaration order, so
// ties between independent steps break deterministically. It populates the
// execution order on success.
func (b *Builder) Validate() error {
	b.executionOrder = make([]string, 0, len(b.steps))
	visited := make(map[string]int, len(b.steps)) // 0: unvisited, 1: visiting, 2: visited
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		visited[id] = 1
		path = append(path, id)

		step, exists := b.steps[id]
		if !exists {
			return zerr.With(zerr.Wrap(ErrMissingStepDependency, ""), "dependency", id)
		}

		for _, dep := range step.DependsOn {
			if visited[dep] == 1 {
				return b.cycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[id] = 2
		path = path[:len(path)-1]
		b.executionOrder = append(b.executionOrder, id)
		return nil
	}

	for _, id := range b.declared {
		if visited[id] == 0 {
			if err := visit(id); err != nil {
				return err
			}
		}
	}

	return nil
}

// cycleError constructs an error carrying the cycle path as metadata.
func (b *Builder) cycleError(path []string, dep string) error {
	cyclePath := ""
	startIdx := -1
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	for i := startIdx; i < len(path); i++ {
		cyclePath += path[i] + " -> "
	}
	cyclePath += dep
	return zerr.With(zerr.Wrap(ErrCycleDetected, ""), "cycle", cyclePath)
}

// Walk returns an iterator that yields steps in dependency order.
// It assumes Validate() has been called and returned nil.
func (b *Builder) Walk() iter.Seq[*Step] {
	return func(yield func(*Step) bool) {
		for _, id := range b.executionOrder {
			if !yield(b.steps[id]) {
				return
			}
		}
	}
}

// FinalStep returns the last step in execution order, whose output is the
// builder's artifact. It assumes Validate() has been called.
func (b *Builder) FinalStep() *Step {
	if len(b.executionOrder) == 0 {
		return nil
	}
	return b.steps[b.executionOrder[len(b.executionOrder)-1]]
}
