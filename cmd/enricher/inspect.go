package main

import (
	"fmt"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/models"
	"github.com/aluiziolira/go-enrich-catalog/pipeline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newNextCmd(a *app) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "next",
		Short: "List the next items that still need enrichment without fetching anything.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.store()
			catalog, err := st.LoadCatalog()
			if err != nil {
				return err
			}
			ledger, err := st.LoadLedger(time.Now())
			if err != nil {
				return err
			}

			items := pipeline.Next(catalog, ledger, batch)
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing left to enrich.")
				return nil
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"#", "Name", "URL", "Status"})
			for _, item := range items {
				t.AppendRow(table.Row{item.Index, truncate(item.Name, 40), item.URL, item.ScrapeStatus})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 10, "Number of items to list")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog totals, the resume point and the ledger error log.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.store()
			catalog, err := st.LoadCatalog()
			if err != nil {
				return err
			}
			ledger, err := st.LoadLedger(time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			counts := catalog.Counts()

			summary := newTable(out)
			summary.AppendHeader(table.Row{"Field", "Value"})
			summary.AppendRows([]table.Row{
				{"Run ID", ledger.RunID()},
				{"Items", catalog.Len()},
				{"Completed", counts[models.StatusCompleted]},
				{"Errors", counts[models.StatusError]},
				{"Pending", counts[models.StatusPending]},
				{"Last index", ledger.LastIndex()},
				{"Resume at", ledger.ResumePoint()},
				{"Ledger completed", len(ledger.Completed())},
				{"Ledger errors", len(ledger.Errors())},
				{"Started", ledger.StartedAt().Format(time.RFC3339)},
				{"Updated", ledger.UpdatedAt().Format(time.RFC3339)},
			})
			summary.Render()

			records := ledger.Errors()
			if len(records) == 0 || limit == 0 {
				return nil
			}
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}

			errs := newTable(out)
			errs.AppendHeader(table.Row{"#", "Name", "Error"})
			for _, rec := range records {
				errs.AppendRow(table.Row{rec.Index, truncate(rec.Name, 40), truncate(rec.Error, 60)})
			}
			errs.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "errors", 20, "Most recent ledger errors to show (-1 for all)")
	return cmd
}

func newFallbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fallback",
		Short: "Apply fallback images to items the ledger recorded as failed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := pipeline.ApplyFallbacks(a.store(), a.cfg.Fallbacks, time.Now(), a.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Error items:  %d\n", result.Candidates)
			fmt.Fprintf(out, "Fallbacks:    %d\n", result.Applied)
			fmt.Fprintf(out, "Unresolved:   %d\n", len(result.Unresolved))
			return nil
		},
	}
}
