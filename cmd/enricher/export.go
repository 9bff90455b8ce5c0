package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/go-enrich-catalog/pipeline"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format       string
		output       string
		enrichedOnly bool
		unique       bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as CSV, JSON lines or both.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.store().LoadCatalog()
			if err != nil {
				return err
			}

			writer, err := createWriter(strings.ToLower(format), output)
			if err != nil {
				return fmt.Errorf("create writer: %w", err)
			}

			stats, err := pipeline.Export(catalog, writer, pipeline.ExportOptions{
				EnrichedOnly: enrichedOnly,
				Unique:       unique,
			})
			if err != nil {
				writer.Close()
				return err
			}
			if stats.Exported > 0 {
				if err := writer.Validate(); err != nil {
					writer.Close()
					return fmt.Errorf("validate output: %w", err)
				}
			}
			if err := writer.Close(); err != nil {
				return fmt.Errorf("close writer: %w", err)
			}

			a.logger.Info("export complete",
				slog.String("output", output),
				slog.Int64("exported", stats.Exported),
				slog.Any("dropped", stats.Dropped),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", stats.Exported, output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, "format", "csv", "Output format: csv, json, or dual")
	f.StringVarP(&output, "output", "o", "items.csv", "Output file path")
	f.BoolVar(&enrichedOnly, "enriched-only", false, "Only export completed items")
	f.BoolVar(&unique, "unique", false, "Drop items whose URL was already exported")
	return cmd
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
