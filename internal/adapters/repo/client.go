// Package repo implements the package repository client used to reuse
// dependency packages across builds and to publish finished artifacts.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/forgeci/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PackageRepository = (*Client)(nil)

// Client talks to a packagecloud-compatible repository over HTTP. The API
// token is passed as the basic auth user name, matching the hosted API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  ports.Logger
}

// NewClient creates a repository client rooted at baseURL.
func NewClient(baseURL string, logger ports.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
		logger:  logger,
	}
}

// FindLatest returns the newest package whose name matches packageName, or
// nil when the repository holds none.
func (c *Client) FindLatest(ctx context.Context, q ports.RepoQuery, packageName string) (*ports.PackageInfo, error) {
	endpoint := fmt.Sprintf("%s/api/v1/repos/%s/%s/search.json?q=%s",
		c.baseURL, url.PathEscape(q.UserName), url.PathEscape(q.RepoName), url.QueryEscape(packageName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create search request")
	}
	req.SetBasicAuth(q.Token, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, zerr.Wrap(err, "package search failed")
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	if resp.StatusCode != http.StatusOK {
		return nil, zerr.With(zerr.New("package search returned unexpected status"), "status", resp.StatusCode)
	}

	var packages []ports.PackageInfo
	if err := json.NewDecoder(resp.Body).Decode(&packages); err != nil {
		return nil, zerr.Wrap(err, "failed to decode search response")
	}

	// Search matches substrings, keep exact names only.
	matches := packages[:0]
	for _, p := range packages {
		if p.Name == packageName {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	latest := matches[0]
	return &latest, nil
}

// Download fetches the package file into outputDir and returns its path.
func (c *Client) Download(ctx context.Context, q ports.RepoQuery, filename, outputDir string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/repos/%s/%s/packages/%s/download",
		c.baseURL, url.PathEscape(q.UserName), url.PathEscape(q.RepoName), url.PathEscape(filename))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", zerr.Wrap(err, "failed to create download request")
	}
	req.SetBasicAuth(q.Token, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "package download failed"), "filename", filename)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	if resp.StatusCode != http.StatusOK {
		return "", zerr.With(zerr.New("package download returned unexpected status"), "status", resp.StatusCode)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", zerr.Wrap(err, "failed to create output directory")
	}

	target := filepath.Join(outputDir, filepath.Base(filename))
	file, err := os.Create(target)
	if err != nil {
		return "", zerr.Wrap(err, "failed to create package file")
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(target)
		return "", zerr.Wrap(err, "failed to write package file")
	}
	if err := file.Close(); err != nil {
		return "", zerr.Wrap(err, "failed to close package file")
	}

	c.logger.Info("downloaded package", "filename", filename, "path", target)
	return target, nil
}

// Publish uploads every .deb and .rpm file found directly under packagesDir.
func (c *Client) Publish(ctx context.Context, q ports.RepoQuery, packagesDir string) error {
	entries, err := os.ReadDir(packagesDir)
	if err != nil {
		return zerr.Wrap(err, "failed to read packages directory")
	}

	uploaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".deb" && ext != ".rpm" {
			continue
		}
		if err := c.upload(ctx, q, filepath.Join(packagesDir, entry.Name())); err != nil {
			return err
		}
		uploaded++
	}

	if uploaded == 0 {
		return zerr.With(zerr.New("no package files to publish"), "dir", packagesDir)
	}
	c.logger.Info("published packages", "count", uploaded)
	return nil
}

func (c *Client) upload(ctx context.Context, q ports.RepoQuery, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return zerr.Wrap(err, "failed to open package file")
	}
	defer file.Close() //nolint:errcheck // Read-only file

	var body strings.Builder
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("package[package_file]", filepath.Base(path))
	if err != nil {
		return zerr.Wrap(err, "failed to create multipart part")
	}
	if _, err := io.Copy(part, file); err != nil {
		return zerr.Wrap(err, "failed to buffer package file")
	}
	if err := writer.Close(); err != nil {
		return zerr.Wrap(err, "failed to finalize multipart body")
	}

	endpoint := fmt.Sprintf("%s/api/v1/repos/%s/%s/packages.json",
		c.baseURL, url.PathEscape(q.UserName), url.PathEscape(q.RepoName))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.String()))
	if err != nil {
		return zerr.Wrap(err, "failed to create upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.SetBasicAuth(q.Token, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "package upload failed"), "path", path)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		statusErr := zerr.With(zerr.New("package upload returned unexpected status"), "status", resp.StatusCode)
		return zerr.With(statusErr, "path", path)
	}

	c.logger.Info("uploaded package", "path", path)
	return nil
}
