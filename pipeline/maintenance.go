package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/models"
	"github.com/aluiziolira/go-enrich-catalog/parser"
	"github.com/aluiziolira/go-enrich-catalog/progress"
)

// Next lists up to n items still needing work, in catalog order. Items the
// ledger marks completed and items already enriched are left out. It never
// mutates state.
func Next(catalog *models.Catalog, ledger *progress.Ledger, n int) []*models.Item {
	if n <= 0 {
		return nil
	}
	var out []*models.Item
	for i := 0; i < catalog.Len() && len(out) < n; i++ {
		item := catalog.At(i)
		if ledger.IsCompleted(i) || item.Enriched() {
			continue
		}
		out = append(out, item)
	}
	return out
}

// FallbackResult summarises an ApplyFallbacks pass.
type FallbackResult struct {
	Candidates int
	Applied    int
	Unresolved []int
}

// ApplyFallbacks derives images for items the ledger logged as failed and
// which are still in error. Resolved items are completed and marked in the
// ledger; the error log itself is left intact. Both documents are saved once
// at the end when anything changed.
func ApplyFallbacks(store Store, rules []parser.FallbackRule, now time.Time, logger *slog.Logger) (*FallbackResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := store.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	ledger, err := store.LoadLedger(now)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	result := &FallbackResult{}
	for _, index := range ledger.ErrorIndices() {
		item := catalog.At(index)
		if item == nil || item.ScrapeStatus != models.StatusError {
			continue
		}
		result.Candidates++

		image, ok := parser.FallbackImage(item.URL, rules)
		if !ok {
			result.Unresolved = append(result.Unresolved, index)
			logger.Debug("no fallback image", slog.Int("index", index), slog.String("url", item.URL))
			continue
		}

		item.MarkCompleted(image, "", now)
		ledger.MarkResolved(index, now)
		result.Applied++
		logger.Info("fallback image applied",
			slog.Int("index", index),
			slog.String("name", item.Name),
			slog.String("image", image),
		)
	}

	if result.Applied > 0 {
		if err := store.Save(catalog, ledger); err != nil {
			return result, fmt.Errorf("persist fallbacks: %w", err)
		}
	}
	return result, nil
}
