// Package manifest loads test suite definitions from a YAML file, so CI
// workflow definitions can reference suites by name instead of repeating
// archive paths and command lines per job.
package manifest

import (
	"os"
	"time"

	"github.com/forgeci/forge/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

type file struct {
	Suites []suite `yaml:"suites"`
}

type suite struct {
	Name    string `yaml:"name"`
	Archive string `yaml:"archive"`
	Command string `yaml:"command"`

	// Timeout is a Go duration string, e.g. "40m".
	Timeout string `yaml:"timeout"`
}

// Load reads the suite definitions from path.
func Load(path string) ([]domain.TestSuite, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is user supplied by design
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read suite manifest")
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, zerr.Wrap(err, "failed to parse suite manifest")
	}
	if len(f.Suites) == 0 {
		return nil, zerr.With(zerr.New("suite manifest defines no suites"), "path", path)
	}

	seen := make(map[string]bool, len(f.Suites))
	suites := make([]domain.TestSuite, 0, len(f.Suites))
	for _, s := range f.Suites {
		if s.Name == "" || s.Command == "" {
			return nil, zerr.With(zerr.New("suite needs a name and a command"), "path", path)
		}
		if seen[s.Name] {
			return nil, zerr.With(zerr.New("duplicate suite name"), "suite", s.Name)
		}
		seen[s.Name] = true

		var timeout time.Duration
		if s.Timeout != "" {
			timeout, err = time.ParseDuration(s.Timeout)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, "invalid suite timeout"), "suite", s.Name)
			}
		}

		suites = append(suites, domain.TestSuite{
			Name:        s.Name,
			ArchivePath: s.Archive,
			Command:     s.Command,
			Timeout:     timeout,
		})
	}
	return suites, nil
}

// Find returns the suite with the given name from the manifest at path.
func Find(path, name string) (domain.TestSuite, error) {
	suites, err := Load(path)
	if err != nil {
		return domain.TestSuite{}, err
	}
	for _, s := range suites {
		if s.Name == name {
			return s, nil
		}
	}
	notFound := zerr.With(zerr.New("suite not found in manifest"), "suite", name)
	return domain.TestSuite{}, zerr.With(notFound, "path", path)
}
