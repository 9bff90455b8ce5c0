package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/checkpoint"
	"github.com/aluiziolira/go-enrich-catalog/config"
	"github.com/aluiziolira/go-enrich-catalog/fetch"
	"github.com/aluiziolira/go-enrich-catalog/models"
	"github.com/aluiziolira/go-enrich-catalog/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Enrich catalog items, resuming after the last recorded index.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	defaults := config.DefaultConfig()
	f := cmd.Flags()
	f.Int("batch-size", defaults.BatchSize, "Processed items between checkpoints")
	f.Duration("rate-limit", defaults.RateLimit, "Pause after each processed item")
	f.String("mode", defaults.FetchMode, "Fetch mode: single or hybrid")
	f.String("light", defaults.LightFetcher, "Lightweight fetcher: colly or http")
	f.Duration("timeout", defaults.Timeout, "Per-fetch timeout")
	f.Int("max-retries", defaults.MaxRetries, "Retries for timeouts, connection errors and rate limiting")
	f.String("chrome-path", defaults.ChromePath, "Chrome binary for hybrid mode")
	f.String("sync", defaults.SyncMode, "Checkpoint sync: none or git")
	f.Bool("no-push", false, "Commit checkpoints without pushing")
	f.String("metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	return cmd
}

func (a *app) run(ctx context.Context, out io.Writer) error {
	cfg := a.cfg
	logger := a.logger

	metrics := fetch.NewMetrics()
	strategy, closeStrategy, err := fetch.NewStrategy(cfg, metrics, logger)
	if err != nil {
		return fmt.Errorf("initialise fetch strategy: %w", err)
	}
	defer func() {
		if err := closeStrategy(); err != nil {
			logger.Error("close fetch strategy", slog.Any("error", err))
		}
	}()

	st := a.store()
	controller, err := pipeline.NewController(pipeline.Options{
		Store:     st,
		Strategy:  strategy,
		Syncer:    newSyncer(cfg, st.Paths(), logger),
		BatchSize: cfg.BatchSize,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, metrics, logger)

	logger.Info("starting enrichment",
		slog.String("catalog", cfg.CatalogPath),
		slog.String("mode", cfg.FetchMode),
		slog.String("light", cfg.LightFetcher),
		slog.String("sync", cfg.SyncMode),
	)

	result, runErr := controller.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if result != nil {
		printSummary(out, result, cfg)
	}
	if errors.Is(runErr, context.Canceled) {
		logger.Info("run interrupted, state saved; rerun to resume")
		return nil
	}
	return runErr
}

func newSyncer(cfg *config.Config, paths []string, logger *slog.Logger) checkpoint.Syncer {
	if cfg.SyncMode != config.SyncGit {
		return checkpoint.Nop{}
	}
	return checkpoint.NewGit(cfg.GitDir, paths, cfg.GitPush, cfg.GitRemote, logger)
}

func startMetricsServer(addr string, metrics *fetch.Metrics, logger *slog.Logger) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func printSummary(out io.Writer, result *models.RunResult, cfg *config.Config) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(out, "\n"+separator)
	fmt.Fprintln(out, "Enrichment complete")

	successRate := 0.0
	if result.Processed > 0 {
		successRate = float64(result.Succeeded) / float64(result.Processed) * 100
	}

	fmt.Fprintf(out, "  Catalog items: %d\n", result.Total)
	fmt.Fprintf(out, "  Started at:    %d\n", result.StartIndex)
	fmt.Fprintf(out, "  Processed:     %d\n", result.Processed)
	fmt.Fprintf(out, "  Success rate:  %.2f%%\n", successRate)
	fmt.Fprintf(out, "  Errors:        %d\n", result.Failed)
	fmt.Fprintf(out, "  Skipped:       %d\n", result.Skipped)
	fmt.Fprintf(out, "  Checkpoints:   %d (%d failed)\n", result.Checkpoints, result.CheckpointFailures)
	fmt.Fprintf(out, "  Duration:      %v\n", result.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "  Catalog file:  %s\n", cfg.CatalogPath)
	fmt.Fprintf(out, "  Ledger file:   %s\n", cfg.LedgerPath)
	fmt.Fprintln(out, separator)
}
