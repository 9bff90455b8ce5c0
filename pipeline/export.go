package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-enrich-catalog/models"
)

var (
	// ErrExporterClosed is returned when Process is called after shutdown.
	ErrExporterClosed = errors.New("exporter: closed")
)

// OutputWriter defines the interface for export output.
type OutputWriter interface {
	Write(items []*models.Item) error
	Close() error
	Validate() error
}

// ExportOptions filters what reaches the writer.
type ExportOptions struct {
	// EnrichedOnly drops items that are not completed.
	EnrichedOnly bool
	// Unique drops items whose URL was already exported.
	Unique bool
	// BatchSize is the number of items handed to the writer at once.
	BatchSize int
}

// ExportStats counts exported and dropped items.
type ExportStats struct {
	Exported int64
	Dropped  map[string]int
}

// Exporter validates, filters and batches items into an OutputWriter.
type Exporter struct {
	writer    OutputWriter
	itemCh    chan *models.Item
	batchSize int
	opts      ExportOptions

	wg sync.WaitGroup

	seen   map[string]struct{}
	seenMu sync.Mutex

	stats exportCounters

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewExporter builds an exporter with a modest in-memory buffer.
func NewExporter(writer OutputWriter, opts ExportOptions) *Exporter {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Exporter{
		writer:    writer,
		itemCh:    make(chan *models.Item, 512),
		batchSize: batchSize,
		opts:      opts,
		seen:      make(map[string]struct{}),
		stats:     newExportCounters(),
		shutdown:  make(chan struct{}),
	}
}

// Start launches worker goroutines. A single worker keeps catalog order.
func (e *Exporter) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
}

// Process enqueues items for export.
func (e *Exporter) Process(items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}

	closed, err := e.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrExporterClosed
	}

	for _, item := range items {
		if item == nil {
			continue
		}
		if err := e.enqueue(item); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for workers to finish and prevents more submissions. The
// writer itself is left open.
func (e *Exporter) Close() error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
	}
	e.mu.Unlock()

	e.signalShutdown()
	e.closeOnce.Do(func() {
		close(e.itemCh)
	})

	e.wg.Wait()
	return e.Err()
}

// Err returns the first error encountered during processing.
func (e *Exporter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Stats returns a snapshot of the export counters.
func (e *Exporter) Stats() ExportStats {
	return e.stats.snapshot()
}

// Export streams every catalog item through a single-worker exporter into
// writer. The writer is left open for the caller to validate and close.
func Export(catalog *models.Catalog, writer OutputWriter, opts ExportOptions) (ExportStats, error) {
	exporter := NewExporter(writer, opts)
	exporter.Start(1)

	processErr := exporter.Process(catalog.Items)
	closeErr := exporter.Close()

	stats := exporter.Stats()
	if processErr != nil {
		return stats, fmt.Errorf("export items: %w", processErr)
	}
	if closeErr != nil {
		return stats, closeErr
	}
	return stats, nil
}

func (e *Exporter) worker() {
	defer e.wg.Done()

	batch := make([]*models.Item, 0, e.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for item := range e.itemCh {
		if !e.accept(item) {
			continue
		}
		batch = append(batch, item)
		if len(batch) >= e.batchSize {
			if err := flush(); err != nil {
				e.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		e.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (e *Exporter) accept(item *models.Item) bool {
	if err := item.Validate(); err != nil {
		e.stats.addDropped("invalid_record")
		return false
	}
	if e.opts.EnrichedOnly && item.ScrapeStatus != models.StatusCompleted {
		e.stats.addDropped("not_enriched")
		return false
	}

	if e.opts.Unique {
		e.seenMu.Lock()
		if _, ok := e.seen[item.URL]; ok {
			e.seenMu.Unlock()
			e.stats.addDropped("duplicate_url")
			return false
		}
		e.seen[item.URL] = struct{}{}
		e.seenMu.Unlock()
	}

	e.stats.incrementExported()
	return true
}

func (e *Exporter) enqueue(item *models.Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrExporterClosed
		}
	}()

	select {
	case <-e.shutdown:
		return ErrExporterClosed
	case e.itemCh <- item:
		return nil
	}
}

func (e *Exporter) setErr(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	if e.err != nil {
		e.mu.Unlock()
		return
	}
	e.err = err
	e.closed = true
	e.mu.Unlock()

	e.signalShutdown()
	e.closeOnce.Do(func() {
		close(e.itemCh)
	})
}

func (e *Exporter) state() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed, e.err
}

func (e *Exporter) signalShutdown() {
	e.shutdownOnce.Do(func() {
		close(e.shutdown)
	})
}

type exportCounters struct {
	mu       sync.Mutex
	exported int64
	dropped  map[string]int
}

func newExportCounters() exportCounters {
	return exportCounters{
		dropped: make(map[string]int),
	}
}

func (m *exportCounters) incrementExported() {
	m.mu.Lock()
	m.exported++
	m.mu.Unlock()
}

func (m *exportCounters) addDropped(kind string) {
	m.mu.Lock()
	m.dropped[kind]++
	m.mu.Unlock()
}

func (m *exportCounters) snapshot() ExportStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := make(map[string]int, len(m.dropped))
	for k, v := range m.dropped {
		dropped[k] = v
	}
	return ExportStats{Exported: m.exported, Dropped: dropped}
}
