// Package pipeline drives a resumable enrichment run over a catalog and
// exports the enriched result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/checkpoint"
	"github.com/aluiziolira/go-enrich-catalog/fetch"
	"github.com/aluiziolira/go-enrich-catalog/models"
	"github.com/aluiziolira/go-enrich-catalog/progress"
)

// Defaults applied when Options leave a field zero.
const (
	DefaultBatchSize = 50
	DefaultRateLimit = 2 * time.Second
)

// NothingFound is recorded when a fetch succeeded but neither an image nor
// a price could be extracted.
const NothingFound = "no image or price found"

// Store loads and persists the catalog and ledger as a pair.
type Store interface {
	LoadCatalog() (*models.Catalog, error)
	LoadLedger(now time.Time) (*progress.Ledger, error)
	Save(catalog *models.Catalog, ledger *progress.Ledger) error
}

// Options configures a Controller. Store and Strategy are required.
type Options struct {
	Store     Store
	Strategy  fetch.Strategy
	Syncer    checkpoint.Syncer
	BatchSize int
	RateLimit time.Duration
	Sleep     func(time.Duration)
	Now       func() time.Time
	Logger    *slog.Logger
	Metrics   *fetch.Metrics
}

// Controller runs one sequential enrichment pass.
type Controller struct {
	store     Store
	strategy  fetch.Strategy
	syncer    checkpoint.Syncer
	batchSize int
	rateLimit time.Duration
	sleep     func(time.Duration)
	now       func() time.Time
	logger    *slog.Logger
	metrics   *fetch.Metrics
}

// NewController validates opts and fills in defaults.
func NewController(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if opts.Strategy == nil {
		return nil, errors.New("pipeline: fetch strategy is required")
	}

	c := &Controller{
		store:     opts.Store,
		strategy:  opts.Strategy,
		syncer:    opts.Syncer,
		batchSize: opts.BatchSize,
		rateLimit: opts.RateLimit,
		sleep:     opts.Sleep,
		now:       opts.Now,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if c.syncer == nil {
		c.syncer = checkpoint.Nop{}
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.rateLimit < 0 {
		c.rateLimit = 0
	}
	if c.sleep == nil {
		c.sleep = time.Sleep
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Run enriches every item from the ledger's resume point to the end of the
// catalog. State is persisted after each processed item; a persistence
// failure aborts the run. Cancellation is honoured between items and the
// final checkpoint still runs, after which ctx.Err() is returned.
func (c *Controller) Run(ctx context.Context) (*models.RunResult, error) {
	catalog, err := c.store.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	ledger, err := c.store.LoadLedger(c.now())
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	start := ledger.ResumePoint()
	result := &models.RunResult{
		StartIndex: start,
		Total:      catalog.Len(),
		StartTime:  c.now(),
	}

	logger := c.logger.With(slog.String("run_id", ledger.RunID()))
	logger.Info("enrichment starting",
		slog.Int("start_index", start),
		slog.Int("total", catalog.Len()),
		slog.Int("previous_errors", len(ledger.Errors())),
	)

	var runErr error
	for i := start; i < catalog.Len(); i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		item := catalog.At(i)
		if item.Enriched() {
			result.Skipped++
			c.metrics.IncItem("skipped")
			logger.Debug("skipping enriched item", slog.Int("index", i), slog.String("name", item.Name))
			continue
		}

		res := c.strategy.Enrich(ctx, item.URL)
		if !res.Found() && ctx.Err() != nil {
			// interrupted mid-fetch: leave the item for the next run
			runErr = ctx.Err()
			break
		}

		c.record(logger, ledger, item, res, result)

		if err := c.store.Save(catalog, ledger); err != nil {
			result.EndTime = c.now()
			logger.Error("persist state failed", slog.Int("index", i), slog.Any("error", err))
			return result, fmt.Errorf("persist item %d: %w", i, err)
		}

		if result.Processed%c.batchSize == 0 {
			c.checkpoint(ctx, logger, result, fmt.Sprintf("Scrape: %d items (%d OK, %d errors)",
				result.Processed, result.Succeeded, result.Failed))
		}

		c.sleep(c.rateLimit)
	}

	if result.Processed > 0 {
		c.checkpoint(context.WithoutCancel(ctx), logger, result, fmt.Sprintf("Scrape done: %d total (%d OK, %d fail)",
			result.Processed, result.Succeeded, result.Failed))
	}

	result.EndTime = c.now()
	logger.Info("enrichment finished",
		slog.Int("processed", result.Processed),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
		slog.Duration("duration", result.Duration()),
	)
	return result, runErr
}

func (c *Controller) record(logger *slog.Logger, ledger *progress.Ledger, item *models.Item, res fetch.Result, result *models.RunResult) {
	now := c.now()
	result.Processed++

	if res.Found() {
		item.MarkCompleted(res.ImageURL, res.Price, now)
		ledger.RecordSuccess(item.Index, now)
		result.Succeeded++
		c.metrics.IncItem("completed")

		attrs := []any{
			slog.Int("index", item.Index),
			slog.String("name", item.Name),
			slog.Bool("image", res.ImageURL != ""),
			slog.Bool("price", res.Price != ""),
		}
		if res.Err != nil {
			attrs = append(attrs, slog.String("suppressed_error", res.Err.Error()))
		}
		logger.Info("item enriched", attrs...)
		return
	}

	reason := failureReason(res.Err)
	item.MarkError(reason, now)
	ledger.RecordFailure(item.Index, item.Name, reason, now)
	result.Failed++
	c.metrics.IncItem("error")
	logger.Warn("item not enriched",
		slog.Int("index", item.Index),
		slog.String("name", item.Name),
		slog.String("url", item.URL),
		slog.String("category", fetch.Kind(res.Err)),
		slog.String("reason", reason),
	)
}

func (c *Controller) checkpoint(ctx context.Context, logger *slog.Logger, result *models.RunResult, summary string) {
	if err := c.syncer.Sync(ctx, summary); err != nil {
		result.CheckpointFailures++
		c.metrics.IncCheckpoint("failed")
		logger.Warn("checkpoint sync failed", slog.String("summary", summary), slog.Any("error", err))
		return
	}
	result.Checkpoints++
	c.metrics.IncCheckpoint("ok")
	logger.Info("checkpoint", slog.String("summary", summary))
}

func failureReason(err error) string {
	if err == nil {
		return NothingFound
	}
	return err.Error()
}
