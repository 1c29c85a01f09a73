package ports

import (
	"context"
	"time"
)

// RepoQuery carries the credentials and coordinates of a package repository.
type RepoQuery struct {
	UserName string
	RepoName string
	Token    string
}

// PackageInfo describes one package version stored in the repository.
type PackageInfo struct {
	Name      string    `json:"name"`
	Filename  string    `json:"filename"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// PackageRepository is the boundary to the external package repository,
// used to short-circuit rebuilding unchanged dependency packages.
//
//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks
type PackageRepository interface {
	// FindLatest returns the newest package whose name matches packageName.
	// Returns nil, nil when the repository holds no matching package.
	FindLatest(ctx context.Context, q RepoQuery, packageName string) (*PackageInfo, error)

	// Download fetches the package with the given filename into outputDir
	// and returns the local path.
	Download(ctx context.Context, q RepoQuery, filename, outputDir string) (string, error)

	// Publish uploads every package file found under packagesDir.
	Publish(ctx context.Context, q RepoQuery, packagesDir string) error
}
