package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-enrich-catalog/models"
)

// Output is one named destination of a MultiWriter.
type Output struct {
	Name   string
	Writer OutputWriter
}

// MultiWriter fans each batch out to several outputs so they hold the same
// items in the same order.
type MultiWriter struct {
	outputs []Output
	rows    []int64
	mu      sync.Mutex
}

// NewMultiWriter combines outputs. At least one is required.
func NewMultiWriter(outputs ...Output) (*MultiWriter, error) {
	if len(outputs) == 0 {
		return nil, errors.New("multi writer needs at least one output")
	}
	return &MultiWriter{outputs: outputs, rows: make([]int64, len(outputs))}, nil
}

// NewDualWriter writes CSV and JSONL side by side.
func NewDualWriter(csvFilename, jsonFilename string) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, err
	}
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, err
	}
	return NewMultiWriter(
		Output{Name: "csv", Writer: csvWriter},
		Output{Name: "json", Writer: jsonWriter},
	)
}

// Write checks every item before touching any output, then writes the batch
// to each output in turn.
func (mw *MultiWriter) Write(items []*models.Item) error {
	for _, item := range items {
		if item == nil {
			return errors.New("nil item in batch")
		}
		if err := item.Validate(); err != nil {
			return fmt.Errorf("reject batch: %w", err)
		}
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()

	var errs []error
	for i, out := range mw.outputs {
		if err := out.Writer.Write(items); err != nil {
			errs = append(errs, fmt.Errorf("%s write: %w", out.Name, err))
			continue
		}
		mw.rows[i] += int64(len(items))
	}
	return errors.Join(errs...)
}

// Rows returns how many items each output accepted, keyed by output name.
func (mw *MultiWriter) Rows() map[string]int64 {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	rows := make(map[string]int64, len(mw.outputs))
	for i, out := range mw.outputs {
		rows[out.Name] = mw.rows[i]
	}
	return rows
}

// Close closes every output, even after one fails.
func (mw *MultiWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	var errs []error
	for _, out := range mw.outputs {
		if err := out.Writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", out.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks each output and that all of them accepted the same number
// of items.
func (mw *MultiWriter) Validate() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	var errs []error
	for i, out := range mw.outputs {
		if err := out.Writer.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", out.Name, err))
		}
		if mw.rows[i] != mw.rows[0] {
			errs = append(errs, fmt.Errorf("%s holds %d items, %s holds %d",
				out.Name, mw.rows[i], mw.outputs[0].Name, mw.rows[0]))
		}
	}
	return errors.Join(errs...)
}
