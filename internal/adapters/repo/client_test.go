package repo_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forgeci/forge/internal/adapters/logger"
	"github.com/forgeci/forge/internal/adapters/repo"
	"github.com/forgeci/forge/internal/core/ports"
)

func newLogger() ports.Logger {
	log := logger.New()
	log.SetOutput(io.Discard)
	return log
}

var query = ports.RepoQuery{UserName: "acme", RepoName: "agent", Token: "secret-token"}

func TestClient_FindLatest(t *testing.T) {
	packages := []ports.PackageInfo{
		{Name: "scalyr-agent-python3", Filename: "scalyr-agent-python3_1.0.0_amd64.deb", Version: "1.0.0", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "scalyr-agent-python3", Filename: "scalyr-agent-python3_1.2.0_amd64.deb", Version: "1.2.0", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "scalyr-agent-python3-dbg", Filename: "scalyr-agent-python3-dbg_9.9.9_amd64.deb", Version: "9.9.9", CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/repos/acme/agent/search.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		user, _, _ := r.BasicAuth()
		if user != "secret-token" {
			t.Errorf("token not sent as basic auth user: %q", user)
		}
		if got := r.URL.Query().Get("q"); got != "scalyr-agent-python3" {
			t.Errorf("unexpected query %q", got)
		}
		if err := json.NewEncoder(w).Encode(packages); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	c := repo.NewClient(server.URL, newLogger())
	info, err := c.FindLatest(context.Background(), query, "scalyr-agent-python3")
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if info == nil {
		t.Fatal("expected a package")
	}
	if info.Version != "1.2.0" {
		t.Errorf("expected newest exact match 1.2.0, got %q", info.Version)
	}
}

func TestClient_FindLatest_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode([]ports.PackageInfo{}); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	c := repo.NewClient(server.URL, newLogger())
	info, err := c.FindLatest(context.Background(), query, "scalyr-agent-python3")
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if info != nil {
		t.Errorf("expected nil for empty repository, got %+v", info)
	}
}

func TestClient_FindLatest_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := repo.NewClient(server.URL, newLogger())
	if _, err := c.FindLatest(context.Background(), query, "anything"); err == nil {
		t.Error("expected error for server failure")
	}
}

func TestClient_Download(t *testing.T) {
	const content = "deb-package-bytes"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/repos/acme/agent/packages/agent_1.2.0_amd64.deb/download" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}))
	defer server.Close()

	outputDir := filepath.Join(t.TempDir(), "downloads")
	c := repo.NewClient(server.URL, newLogger())
	path, err := c.Download(context.Background(), query, "agent_1.2.0_amd64.deb", outputDir)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != content {
		t.Errorf("downloaded content mismatch: %q", data)
	}
}

func TestClient_Download_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := repo.NewClient(server.URL, newLogger())
	if _, err := c.Download(context.Background(), query, "missing.deb", t.TempDir()); err == nil {
		t.Error("expected error for missing package")
	}
}

func TestClient_Publish(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"agent_1.2.0_amd64.deb", "agent-1.2.0-1.x86_64.rpm", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("pkg"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var uploads []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %q", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart body: %v", err)
		}
		file, header, err := r.FormFile("package[package_file]")
		if err != nil {
			t.Fatalf("reading package part: %v", err)
		}
		defer file.Close()
		uploads = append(uploads, header.Filename)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := repo.NewClient(server.URL, newLogger())
	if err := c.Publish(context.Background(), query, dir); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %v", uploads)
	}
	for _, name := range uploads {
		if name == "notes.txt" {
			t.Error("non-package file uploaded")
		}
	}
}

func TestClient_Publish_Rejected(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "agent_1.2.0_amd64.deb"), []byte("pkg"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	c := repo.NewClient(server.URL, newLogger())
	if err := c.Publish(context.Background(), query, dir); err == nil {
		t.Error("expected error for rejected upload")
	}
}

func TestClient_Publish_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no upload should happen for empty directory")
	}))
	defer server.Close()

	c := repo.NewClient(server.URL, newLogger())
	if err := c.Publish(context.Background(), query, t.TempDir()); err == nil {
		t.Error("expected error when nothing to publish")
	}
}
