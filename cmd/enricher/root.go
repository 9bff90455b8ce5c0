package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/config"
	"github.com/aluiziolira/go-enrich-catalog/store"
	"github.com/spf13/cobra"
)

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "enricher",
		Short:         "enricher fills in catalog images and prices from each item's page, resumably.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	configDefault := "enricher.yaml"
	if value, ok := config.EnvString("ENRICHER_CONFIG"); ok {
		configDefault = value
	}

	defaults := config.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", configDefault, "YAML config file (optional)")
	pf.String("catalog", defaults.CatalogPath, "Catalog JSON file")
	pf.String("ledger", defaults.LedgerPath, "Progress ledger JSON file")
	pf.BoolP("verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newRunCmd(a),
		newNextCmd(a),
		newStatusCmd(a),
		newFallbackCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) store() *store.FileStore {
	return store.NewFileStore(a.cfg.CatalogPath, a.cfg.LedgerPath)
}

// applyFlags copies explicitly set flags onto cfg. Flags a subcommand does
// not define are ignored.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	strs := map[string]*string{
		"catalog":      &cfg.CatalogPath,
		"ledger":       &cfg.LedgerPath,
		"mode":         &cfg.FetchMode,
		"light":        &cfg.LightFetcher,
		"sync":         &cfg.SyncMode,
		"metrics-addr": &cfg.MetricsAddr,
		"chrome-path":  &cfg.ChromePath,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		switch name {
		case "mode", "light", "sync":
			value = strings.ToLower(value)
		}
		*dst = value
	}

	ints := map[string]*int{
		"batch-size":  &cfg.BatchSize,
		"max-retries": &cfg.MaxRetries,
	}
	for name, dst := range ints {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	durations := map[string]*time.Duration{
		"rate-limit": &cfg.RateLimit,
		"timeout":    &cfg.Timeout,
	}
	for name, dst := range durations {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("verbose") {
		verbose, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = verbose
	}
	if flags.Changed("no-push") {
		noPush, err := flags.GetBool("no-push")
		if err != nil {
			return err
		}
		cfg.GitPush = !noPush
	}
	return nil
}
