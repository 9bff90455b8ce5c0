package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/parser"
	"gopkg.in/yaml.v3"
)

// FileConfig is the structure of the optional enricher.yaml file. Zero
// values leave the corresponding default in place.
type FileConfig struct {
	Catalog   string `yaml:"catalog"`
	Ledger    string `yaml:"ledger"`
	BatchSize int    `yaml:"batch_size"`
	RateLimit string `yaml:"rate_limit"`
	Fetch     struct {
		Mode       string `yaml:"mode"`
		Light      string `yaml:"light"`
		Timeout    string `yaml:"timeout"`
		MaxRetries *int   `yaml:"max_retries"`
		CacheSize  *int   `yaml:"cache_size"`
		UserAgent  string `yaml:"user_agent"`
		ChromePath string `yaml:"chrome_path"`
		Headless   *bool  `yaml:"headless"`
	} `yaml:"fetch"`
	Sync struct {
		Mode   string `yaml:"mode"`
		Dir    string `yaml:"dir"`
		Remote string `yaml:"remote"`
		Push   *bool  `yaml:"push"`
	} `yaml:"sync"`
	MetricsAddr string                `yaml:"metrics_addr"`
	Fallbacks   []parser.FallbackRule `yaml:"fallbacks"`
}

// LoadFile reads a YAML config file. Returns nil if the file doesn't exist
// (not an error). Returns an error if the file exists but cannot be parsed.
func LoadFile(path string) (*FileConfig, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// Apply copies the values set in the file onto cfg.
func (fc *FileConfig) Apply(cfg *Config) error {
	if fc == nil {
		return nil
	}
	if fc.Catalog != "" {
		cfg.CatalogPath = fc.Catalog
	}
	if fc.Ledger != "" {
		cfg.LedgerPath = fc.Ledger
	}
	if fc.BatchSize != 0 {
		cfg.BatchSize = fc.BatchSize
	}
	if fc.RateLimit != "" {
		d, err := time.ParseDuration(fc.RateLimit)
		if err != nil {
			return fmt.Errorf("rate_limit: %w", err)
		}
		cfg.RateLimit = d
	}
	if fc.Fetch.Mode != "" {
		cfg.FetchMode = strings.ToLower(fc.Fetch.Mode)
	}
	if fc.Fetch.Light != "" {
		cfg.LightFetcher = strings.ToLower(fc.Fetch.Light)
	}
	if fc.Fetch.Timeout != "" {
		d, err := time.ParseDuration(fc.Fetch.Timeout)
		if err != nil {
			return fmt.Errorf("fetch.timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if fc.Fetch.MaxRetries != nil {
		cfg.MaxRetries = *fc.Fetch.MaxRetries
	}
	if fc.Fetch.CacheSize != nil {
		cfg.CacheSize = *fc.Fetch.CacheSize
	}
	if fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if fc.Fetch.ChromePath != "" {
		cfg.ChromePath = fc.Fetch.ChromePath
	}
	if fc.Fetch.Headless != nil {
		cfg.Headless = *fc.Fetch.Headless
	}
	if fc.Sync.Mode != "" {
		cfg.SyncMode = strings.ToLower(fc.Sync.Mode)
	}
	if fc.Sync.Dir != "" {
		cfg.GitDir = fc.Sync.Dir
	}
	if fc.Sync.Remote != "" {
		cfg.GitRemote = fc.Sync.Remote
	}
	if fc.Sync.Push != nil {
		cfg.GitPush = *fc.Sync.Push
	}
	if fc.MetricsAddr != "" {
		cfg.MetricsAddr = fc.MetricsAddr
	}
	if len(fc.Fallbacks) > 0 {
		cfg.Fallbacks = append([]parser.FallbackRule(nil), fc.Fallbacks...)
	}
	return nil
}

// Load builds a config from defaults, the optional YAML file and the
// environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	fc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := fc.Apply(cfg); err != nil {
		return nil, fmt.Errorf("apply config file: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	return cfg, nil
}
