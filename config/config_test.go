package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/parser"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero batch size",
			mutate: func(cfg *Config) {
				cfg.BatchSize = 0
			},
			wantErr: "batch size",
		},
		{
			name: "negative rate limit",
			mutate: func(cfg *Config) {
				cfg.RateLimit = -time.Second
			},
			wantErr: "rate limit",
		},
		{
			name: "empty catalog path",
			mutate: func(cfg *Config) {
				cfg.CatalogPath = ""
			},
			wantErr: "catalog path",
		},
		{
			name: "same paths",
			mutate: func(cfg *Config) {
				cfg.LedgerPath = cfg.CatalogPath
			},
			wantErr: "must differ",
		},
		{
			name: "unknown fetch mode",
			mutate: func(cfg *Config) {
				cfg.FetchMode = "browser"
			},
			wantErr: "fetch mode",
		},
		{
			name: "unknown light fetcher",
			mutate: func(cfg *Config) {
				cfg.LightFetcher = "curl"
			},
			wantErr: "light fetcher",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = time.Minute
			},
			wantErr: "retry backoff",
		},
		{
			name: "unknown sync",
			mutate: func(cfg *Config) {
				cfg.SyncMode = "svn"
			},
			wantErr: "sync mode",
		},
		{
			name: "fallback without host",
			mutate: func(cfg *Config) {
				cfg.Fallbacks = []parser.FallbackRule{{ImageURL: "https://cdn.example/a.png"}}
			},
			wantErr: "host",
		},
		{
			name: "fallback with bad url",
			mutate: func(cfg *Config) {
				cfg.Fallbacks = []parser.FallbackRule{{Host: "a.example", ImageURL: "not-a-url"}}
			},
			wantErr: "invalid image URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.BatchSize != 50 || cfg.RateLimit != 2*time.Second {
		t.Fatalf("unexpected defaults: batch=%d rate=%s", cfg.BatchSize, cfg.RateLimit)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CatalogPath != DefaultConfig().CatalogPath {
		t.Fatalf("catalog path = %q, want default", cfg.CatalogPath)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enricher.yaml")
	content := `
catalog: data/items.json
batch_size: 10
rate_limit: 500ms
fetch:
  mode: hybrid
  light: http
  max_retries: 0
  headless: false
sync:
  mode: git
  push: false
fallbacks:
  - host: neal.fun
    image_url: https://neal.fun/internet-artifacts/social.png
  - host: hodderscape.co.uk
    use_item_url: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ENRICHER_BATCH_SIZE", "25")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.CatalogPath != "data/items.json" {
		t.Fatalf("catalog = %q", cfg.CatalogPath)
	}
	if cfg.BatchSize != 25 {
		t.Fatalf("batch size = %d, want env override 25", cfg.BatchSize)
	}
	if cfg.RateLimit != 500*time.Millisecond {
		t.Fatalf("rate limit = %s", cfg.RateLimit)
	}
	if cfg.FetchMode != ModeHybrid || cfg.LightFetcher != LightHTTP {
		t.Fatalf("fetch = %s/%s", cfg.FetchMode, cfg.LightFetcher)
	}
	if cfg.MaxRetries != 0 || cfg.Headless {
		t.Fatalf("retries=%d headless=%v", cfg.MaxRetries, cfg.Headless)
	}
	if cfg.SyncMode != SyncGit || cfg.GitPush {
		t.Fatalf("sync=%s push=%v", cfg.SyncMode, cfg.GitPush)
	}
	if len(cfg.Fallbacks) != 2 || !cfg.Fallbacks[1].UseItemURL {
		t.Fatalf("fallbacks = %+v", cfg.Fallbacks)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enricher.yaml")
	if err := os.WriteFile(path, []byte("fetch: [not, a, map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("ENRICHER_TEST_INT", "abc")
	if _, _, err := EnvInt("ENRICHER_TEST_INT"); err == nil {
		t.Fatalf("expected parse error for non-integer")
	}

	t.Setenv("ENRICHER_TEST_DURATION", " 3s ")
	d, ok, err := EnvDuration("ENRICHER_TEST_DURATION")
	if err != nil || !ok || d != 3*time.Second {
		t.Fatalf("EnvDuration = %s/%v/%v", d, ok, err)
	}

	t.Setenv("ENRICHER_TEST_EMPTY", "   ")
	if _, ok := EnvString("ENRICHER_TEST_EMPTY"); ok {
		t.Fatalf("blank values are treated as unset")
	}
}
