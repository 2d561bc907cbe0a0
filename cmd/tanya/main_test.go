package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/tanya/internal/config"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after files are moved first",
			args:     []string{"policy.pdf", "-q", "How long do refunds take?"},
			expected: []string{"-q", "How long do refunds take?", "policy.pdf"},
		},
		{
			name:     "flags first unchanged",
			args:     []string{"--format", "json", "-q", "who?", "docs/"},
			expected: []string{"--format", "json", "-q", "who?", "docs/"},
		},
		{
			name:     "no flags",
			args:     []string{"a.txt", "b.txt"},
			expected: []string{"a.txt", "b.txt"},
		},
		{
			name:     "empty",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder(%q) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestWatchRoots(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		expected []string
	}{
		{
			name:     "plain paths",
			paths:    []string{"docs", "notes.txt"},
			expected: []string{"docs", "notes.txt"},
		},
		{
			name:     "glob watched from its base",
			paths:    []string{"docs/**/*.md"},
			expected: []string{"docs"},
		},
		{
			name:     "duplicates dropped",
			paths:    []string{"docs/", "docs/*.pdf"},
			expected: []string{"docs"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := watchRoots(tt.paths)
			want := make([]string, len(tt.expected))
			for i, p := range tt.expected {
				want[i] = filepath.FromSlash(p)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("watchRoots(%q) = %q, want %q", tt.paths, got, want)
			}
		})
	}
}

func TestChunkFiles(t *testing.T) {
	dir := t.TempDir()
	text := strings.Repeat("a", 2400)
	if err := os.WriteFile(filepath.Join(dir, "corpus.txt"), []byte(text), 0600); err != nil {
		t.Fatal(err)
	}

	chunks, report, err := chunkFiles(context.Background(), config.Default(), []string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if report.Documents != 1 {
		t.Errorf("documents = %d, want 1", report.Documents)
	}
	want := []int{1000, 1000, 800}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, n := range want {
		if got := utf8.RuneCountInString(chunks[i]); got != n {
			t.Errorf("chunk %d has %d runes, want %d", i, got, n)
		}
	}
}

func TestChunkFiles_missingPath(t *testing.T) {
	_, _, err := chunkFiles(context.Background(), config.Default(), []string{filepath.Join(t.TempDir(), "missing.txt")})
	if err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
ingest:
  chunk_size: 500
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
	if cfg.Ingest.ChunkSize != 500 {
		t.Errorf("chunk_size = %d, want 500", cfg.Ingest.ChunkSize)
	}
}

func TestLoadConfig_defaultsWhenNoFile(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists at the default path")
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved path = %q, want empty for built-in defaults", resolved)
	}
	if cfg.Ingest.ChunkSize != config.DefaultChunkSize || cfg.Retrieval.TopK != config.DefaultTopK {
		t.Errorf("unexpected defaults: ingest %+v retrieval %+v", cfg.Ingest, cfg.Retrieval)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_explicitPathMissing(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path || cfg.Ingest.ChunkSize != config.DefaultChunkSize || !cfg.Storage.InMemory() {
		t.Errorf("reloaded config: path=%s ingest=%+v storage=%+v", resolved, cfg.Ingest, cfg.Storage)
	}

	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("expected refusal to overwrite without force")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("force overwrite: %v", err)
	}
}
