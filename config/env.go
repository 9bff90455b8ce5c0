package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns a trimmed, non-empty environment value.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses an integer environment value.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses a duration environment value such as "2s".
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses a boolean environment value.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// ApplyEnv overrides cfg with ENRICHER_* environment variables.
func (c *Config) ApplyEnv() error {
	if value, ok := EnvString("ENRICHER_CATALOG"); ok {
		c.CatalogPath = value
	}
	if value, ok := EnvString("ENRICHER_LEDGER"); ok {
		c.LedgerPath = value
	}
	if value, ok, err := EnvInt("ENRICHER_BATCH_SIZE"); err != nil {
		return err
	} else if ok {
		c.BatchSize = value
	}
	if value, ok, err := EnvDuration("ENRICHER_RATE_LIMIT"); err != nil {
		return err
	} else if ok {
		c.RateLimit = value
	}
	if value, ok := EnvString("ENRICHER_FETCH_MODE"); ok {
		c.FetchMode = strings.ToLower(value)
	}
	if value, ok := EnvString("ENRICHER_LIGHT_FETCHER"); ok {
		c.LightFetcher = strings.ToLower(value)
	}
	if value, ok, err := EnvDuration("ENRICHER_TIMEOUT"); err != nil {
		return err
	} else if ok {
		c.Timeout = value
	}
	if value, ok, err := EnvInt("ENRICHER_MAX_RETRIES"); err != nil {
		return err
	} else if ok {
		c.MaxRetries = value
	}
	if value, ok := EnvString("ENRICHER_CHROME_PATH"); ok {
		c.ChromePath = value
	}
	if value, ok := EnvString("ENRICHER_SYNC"); ok {
		c.SyncMode = strings.ToLower(value)
	}
	if value, ok, err := EnvBool("ENRICHER_GIT_PUSH"); err != nil {
		return err
	} else if ok {
		c.GitPush = value
	}
	if value, ok := EnvString("ENRICHER_METRICS_ADDR"); ok {
		c.MetricsAddr = value
	}
	return nil
}
