package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/aluiziolira/go-enrich-catalog/models"
)

type collectingWriter struct {
	mu     sync.Mutex
	items  []*models.Item
	closed bool
	err    error
}

func (cw *collectingWriter) Write(items []*models.Item) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.err != nil {
		return cw.err
	}
	cw.items = append(cw.items, items...)
	return nil
}

func (cw *collectingWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.closed = true
	return nil
}

func (cw *collectingWriter) Validate() error {
	return nil
}

func (cw *collectingWriter) Names() []string {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	out := make([]string, 0, len(cw.items))
	for _, it := range cw.items {
		out = append(out, it.Name)
	}
	return out
}

func exportCatalog() *models.Catalog {
	a := item(0)
	a.MarkCompleted("https://cdn.example.test/a.jpg", "$1", fixedNow)
	b := item(1)
	b.MarkError("timeout", fixedNow)
	dup := item(2)
	dup.URL = a.URL
	dup.MarkCompleted("", "$2", fixedNow)
	broken := item(3)
	broken.ScrapeStatus = models.StatusCompleted
	return newCatalog(a, b, dup, broken, item(4))
}

func TestExport(t *testing.T) {
	tests := []struct {
		name    string
		opts    ExportOptions
		want    []string
		dropped map[string]int
	}{
		{
			name:    "everything valid",
			opts:    ExportOptions{},
			want:    []string{"Item 0", "Item 1", "Item 2", "Item 4"},
			dropped: map[string]int{"invalid_record": 1},
		},
		{
			name:    "enriched only",
			opts:    ExportOptions{EnrichedOnly: true},
			want:    []string{"Item 0", "Item 2"},
			dropped: map[string]int{"invalid_record": 1, "not_enriched": 2},
		},
		{
			name:    "unique urls",
			opts:    ExportOptions{Unique: true, BatchSize: 1},
			want:    []string{"Item 0", "Item 1", "Item 4"},
			dropped: map[string]int{"invalid_record": 1, "duplicate_url": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &collectingWriter{}
			stats, err := Export(exportCatalog(), writer, tt.opts)
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			if writer.closed {
				t.Fatalf("writer should be left open")
			}

			got := writer.Names()
			if len(got) != len(tt.want) {
				t.Fatalf("exported %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("exported %v, want %v", got, tt.want)
				}
			}
			if stats.Exported != int64(len(tt.want)) {
				t.Fatalf("stats.Exported=%d, want %d", stats.Exported, len(tt.want))
			}
			for kind, n := range tt.dropped {
				if stats.Dropped[kind] != n {
					t.Fatalf("dropped[%s]=%d, want %d", kind, stats.Dropped[kind], n)
				}
			}
		})
	}
}

func TestExportWriterFailure(t *testing.T) {
	writer := &collectingWriter{err: errors.New("disk full")}

	_, err := Export(exportCatalog(), writer, ExportOptions{})
	if !errors.Is(err, writer.err) {
		t.Fatalf("err=%v, want wrapped disk full", err)
	}
}

func TestExporterRejectsAfterClose(t *testing.T) {
	exporter := NewExporter(&collectingWriter{}, ExportOptions{})
	exporter.Start(2)
	if err := exporter.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := exporter.Process([]*models.Item{item(0)}); !errors.Is(err, ErrExporterClosed) {
		t.Fatalf("process after close = %v, want ErrExporterClosed", err)
	}
}
