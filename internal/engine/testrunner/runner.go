// Package testrunner executes a test suite on a provisioned resource and
// reports the outcome.
package testrunner

import (
	"bufio"
	"context"
	"errors"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Releaser reclaims a resource after its suite ran.
type Releaser interface {
	Release(ctx context.Context, res *domain.TestResource) error
}

// Runner drives test suites over the remote access channel. The resource is
// released after every run, success or not; a suite that exceeds its timeout
// yields a failed Report, not an error.
type Runner struct {
	channel  ports.RemoteChannel
	releaser Releaser
	logger   ports.Logger

	// defaultTimeout applies to suites that declare none.
	defaultTimeout time.Duration
}

// NewRunner creates a runner with the given default suite timeout.
func NewRunner(channel ports.RemoteChannel, releaser Releaser, logger ports.Logger, defaultTimeout time.Duration) *Runner {
	if defaultTimeout <= 0 {
		defaultTimeout = 40 * time.Minute
	}
	return &Runner{
		channel:        channel,
		releaser:       releaser,
		logger:         logger,
		defaultTimeout: defaultTimeout,
	}
}

// Run pushes the suite to the resource, executes it, and returns the report.
func (r *Runner) Run(ctx context.Context, res *domain.TestResource, suite domain.TestSuite) (report *domain.Report, err error) {
	defer func() {
		// Release runs on every exit path, including cancellation.
		releaseCtx := context.WithoutCancel(ctx)
		if relErr := r.releaser.Release(releaseCtx, res); relErr != nil {
			r.logger.Warn("failed to release test resource",
				"instance", res.Handle, "error", relErr.Error())
		}
	}()

	report = &domain.Report{Suite: suite.Name, Distro: res.Distro}
	start := time.Now()

	if suite.ArchivePath != "" {
		remotePath := path.Join("/tmp", path.Base(suite.ArchivePath))
		if err := r.channel.Push(ctx, res, suite.ArchivePath, remotePath); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to push test suite"), "suite", suite.Name)
		}
	}

	timeout := suite.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, execErr := r.channel.Exec(runCtx, res, suite.Command)
	report.Logs = output
	report.Duration = time.Since(start)

	switch {
	case execErr == nil:
		// A clean exit without summary lines keeps zero counts; OK is keyed
		// on the exit status, not on invented numbers.
		parseCounts(report, output)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		report.TimedOut = true
		report.Failed++
		r.logger.Warn("test suite timed out",
			"suite", suite.Name, "distro", res.Distro, "timeout", timeout.String())
	case ctx.Err() != nil:
		return nil, zerr.Wrap(ctx.Err(), "test run cancelled")
	default:
		parseCounts(report, output)
		if report.Failed == 0 {
			report.Failed = 1
		}
	}

	return report, nil
}

// parseCounts extracts "passed: N" and "failed: N" summary lines, the format
// the shipped suites print on completion.
func parseCounts(report *domain.Report, output string) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		for _, field := range []struct {
			prefix string
			target *int
		}{
			{"passed:", &report.Passed},
			{"failed:", &report.Failed},
		} {
			if !strings.HasPrefix(line, field.prefix) {
				continue
			}
			if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, field.prefix))); err == nil {
				*field.target = n
			}
		}
	}
}
