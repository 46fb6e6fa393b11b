package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildRecommendURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		key  string
		topN int
		want string
	}{
		{
			name: "simple key",
			base: "http://localhost:8080",
			key:  "python-basics",
			topN: 5,
			want: "http://localhost:8080/api/v1/recommendations?key=python-basics&top_n=5",
		},
		{
			name: "key with spaces escaped",
			base: "http://localhost:8080",
			key:  "intro to go",
			topN: 3,
			want: "http://localhost:8080/api/v1/recommendations?key=intro+to+go&top_n=3",
		},
		{
			name: "key with reserved characters",
			base: "http://example.com",
			key:  "c&c++",
			topN: 10,
			want: "http://example.com/api/v1/recommendations?key=c%26c%2B%2B&top_n=10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildRecommendURL(tt.base, tt.key, tt.topN)
			if got != tt.want {
				t.Errorf("buildRecommendURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "osusume.yaml")
	content := `server:
  port: 9090
storage:
  database_path: ` + filepath.Join(dir, "courses.db") + `
  model_dir: ` + filepath.Join(dir, "models") + `
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, loaded, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if loaded != path {
		t.Errorf("loaded path = %s, want %s", loaded, path)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "missing.yaml") {
		t.Errorf("error should mention the path, got: %v", err)
	}
}
