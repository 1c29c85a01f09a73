package domain

import "time"

// Report is the outcome of one test suite run against one resource.
// A timed out suite is reported as failed, never as a crash.
type Report struct {
	Suite    string
	Distro   string
	Passed   int
	Failed   int
	TimedOut bool
	Logs     string
	Duration time.Duration
}

// OK reports whether the suite run counts as successful.
func (r *Report) OK() bool {
	return !r.TimedOut && r.Failed == 0
}

// TestSuite describes a test suite shipped to a resource and executed there.
type TestSuite struct {
	// Name identifies the suite in reports and logs.
	Name string

	// ArchivePath is a local tarball with the suite's files. It is pushed
	// to the resource before Command runs. Optional for container resources
	// that mount the source tree.
	ArchivePath string

	// Command is the command line executed on the resource.
	Command string

	// Timeout bounds the suite's execution. Zero means the runner default.
	Timeout time.Duration
}
