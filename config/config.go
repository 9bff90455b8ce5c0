package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/parser"
)

// Fetch modes.
const (
	ModeSingle = "single"
	ModeHybrid = "hybrid"
)

// Lightweight fetch backends.
const (
	LightColly = "colly"
	LightHTTP  = "http"
)

// Checkpoint sync backends.
const (
	SyncNone = "none"
	SyncGit  = "git"
)

// Config holds enrichment run configuration.
type Config struct {
	CatalogPath     string
	LedgerPath      string
	BatchSize       int
	RateLimit       time.Duration
	FetchMode       string // single or hybrid
	LightFetcher    string // colly or http
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	CacheSize       int
	UserAgent       string
	ChromePath      string
	Headless        bool
	SyncMode        string // none or git
	GitDir          string
	GitRemote       string
	GitPush         bool
	MetricsAddr     string
	Verbose         bool
	Fallbacks       []parser.FallbackRule
}

// DefaultConfig returns conservative defaults: one request every two
// seconds, a checkpoint every 50 processed items.
func DefaultConfig() *Config {
	return &Config{
		CatalogPath:     "src/data/items.json",
		LedgerPath:      "scrape-progress.json",
		BatchSize:       50,
		RateLimit:       2 * time.Second,
		FetchMode:       ModeSingle,
		LightFetcher:    LightColly,
		Timeout:         30 * time.Second,
		MaxRetries:      1,
		RetryBackoff:    500 * time.Millisecond,
		RetryBackoffMax: 5 * time.Second,
		CacheSize:       256,
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Headless:        true,
		SyncMode:        SyncNone,
		GitPush:         true,
		Verbose:         false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return fmt.Errorf("catalog path cannot be empty")
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("ledger path cannot be empty")
	}
	if c.CatalogPath == c.LedgerPath {
		return fmt.Errorf("catalog path and ledger path must differ")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.FetchMode != ModeSingle && c.FetchMode != ModeHybrid {
		return fmt.Errorf("fetch mode must be single or hybrid")
	}
	if c.LightFetcher != LightColly && c.LightFetcher != LightHTTP {
		return fmt.Errorf("light fetcher must be colly or http")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.SyncMode != SyncNone && c.SyncMode != SyncGit {
		return fmt.Errorf("sync mode must be none or git")
	}
	for i, rule := range c.Fallbacks {
		if rule.Host == "" {
			return fmt.Errorf("fallback rule %d: host cannot be empty", i)
		}
		if rule.ImageURL == "" {
			continue
		}
		parsed, err := url.Parse(rule.ImageURL)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("fallback rule %d: invalid image URL %q", i, rule.ImageURL)
		}
	}

	return nil
}
