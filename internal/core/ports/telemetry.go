package ports

import "context"

// Vertex is one recorded unit of progress, typically a build step.
type Vertex interface {
	// Done marks the vertex finished. A non-nil error marks it errored.
	Done(err error)

	// Cached marks the vertex as served from the cache.
	Cached()
}

// Telemetry records build progress for rendering and diagnostics.
type Telemetry interface {
	// Record starts a new vertex with the given name.
	Record(ctx context.Context, name string) (context.Context, Vertex)

	// Close flushes and closes the recording session.
	Close() error
}
