// Package fetch retrieves raw page text for the enrichment pipeline. Every
// fetcher returns whatever body it received alongside any error, so callers
// can still extract from partial content such as an HTTP 403 page.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/config"
)

// Fetcher retrieves the raw text of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Func adapts a function to the Fetcher interface.
type Func func(ctx context.Context, url string) (string, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// Instrumented records metrics and debug logs around a fetcher.
type Instrumented struct {
	name    string
	next    Fetcher
	metrics *Metrics
	logger  *slog.Logger
}

// NewInstrumented wraps next under the given fetcher label.
func NewInstrumented(name string, next Fetcher, metrics *Metrics, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{name: name, next: next, metrics: metrics, logger: logger}
}

// Fetch delegates to the wrapped fetcher.
func (f *Instrumented) Fetch(ctx context.Context, url string) (string, error) {
	f.metrics.IncRequest(f.name, "started")
	start := time.Now()
	body, err := f.next.Fetch(ctx, url)
	elapsed := time.Since(start)
	f.metrics.ObserveDuration(f.name, elapsed)

	if err != nil {
		kind := Kind(err)
		f.metrics.IncRequest(f.name, "failed")
		f.metrics.IncError(f.name, kind)
		f.logger.Debug("fetch failed",
			slog.String("fetcher", f.name),
			slog.String("url", url),
			slog.String("category", kind),
			slog.Int("bytes", len(body)),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err),
		)
		return body, err
	}

	f.metrics.IncRequest(f.name, "succeeded")
	f.logger.Debug("fetch complete",
		slog.String("fetcher", f.name),
		slog.String("url", url),
		slog.Int("bytes", len(body)),
		slog.Duration("elapsed", elapsed),
	)
	return body, nil
}

// Wrap layers retries, instrumentation and the page cache around base, in
// that order from the inside out.
func Wrap(name string, base Fetcher, cfg *config.Config, metrics *Metrics, logger *slog.Logger) (Fetcher, error) {
	var f Fetcher = NewRetrying(base, cfg.MaxRetries, cfg.RetryBackoff, cfg.RetryBackoffMax)
	f = NewInstrumented(name, f, metrics, logger)
	if cfg.CacheSize > 0 {
		cached, err := NewCached(f, cfg.CacheSize, metrics)
		if err != nil {
			return nil, fmt.Errorf("build %s cache: %w", name, err)
		}
		f = cached
	}
	return f, nil
}

// NewLight builds the configured lightweight text fetcher.
func NewLight(cfg *config.Config) (Fetcher, string, error) {
	switch cfg.LightFetcher {
	case config.LightHTTP:
		return NewHTTPFetcher(cfg), config.LightHTTP, nil
	case config.LightColly, "":
		f, err := NewCollyFetcher(cfg)
		if err != nil {
			return nil, "", err
		}
		return f, config.LightColly, nil
	default:
		return nil, "", fmt.Errorf("unsupported light fetcher: %s", cfg.LightFetcher)
	}
}
