// Package store persists the catalog and the progress ledger as JSON
// documents. Both files are always written together.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/models"
	"github.com/aluiziolira/go-enrich-catalog/progress"
)

// ErrCatalogMissing is returned when the catalog file does not exist.
var ErrCatalogMissing = errors.New("store: catalog file not found")

// FileStore reads and writes the catalog and ledger files.
type FileStore struct {
	CatalogPath string
	LedgerPath  string
}

// NewFileStore builds a store for the given paths.
func NewFileStore(catalogPath, ledgerPath string) *FileStore {
	return &FileStore{CatalogPath: catalogPath, LedgerPath: ledgerPath}
}

// LoadCatalog reads the full catalog document.
func (s *FileStore) LoadCatalog() (*models.Catalog, error) {
	data, err := os.ReadFile(s.CatalogPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCatalogMissing, s.CatalogPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var catalog models.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", s.CatalogPath, err)
	}
	return &catalog, nil
}

// LoadLedger reads the ledger, returning a fresh one when the file is
// absent (first run).
func (s *FileStore) LoadLedger(now time.Time) (*progress.Ledger, error) {
	data, err := os.ReadFile(s.LedgerPath)
	if errors.Is(err, fs.ErrNotExist) {
		return progress.New(now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var ledger progress.Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", s.LedgerPath, err)
	}
	return &ledger, nil
}

// Save writes both documents. Each is encoded and staged to a temp file
// before either is renamed into place, so an encoding or disk-full failure
// leaves both previous files intact.
func (s *FileStore) Save(catalog *models.Catalog, ledger *progress.Ledger) error {
	catalogData, err := encode(catalog)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	ledgerData, err := encode(ledger)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	ledgerTmp, err := stage(s.LedgerPath, ledgerData)
	if err != nil {
		return fmt.Errorf("stage ledger: %w", err)
	}
	catalogTmp, err := stage(s.CatalogPath, catalogData)
	if err != nil {
		os.Remove(ledgerTmp)
		return fmt.Errorf("stage catalog: %w", err)
	}

	if err := os.Rename(ledgerTmp, s.LedgerPath); err != nil {
		os.Remove(ledgerTmp)
		os.Remove(catalogTmp)
		return fmt.Errorf("commit ledger: %w", err)
	}
	if err := os.Rename(catalogTmp, s.CatalogPath); err != nil {
		os.Remove(catalogTmp)
		return fmt.Errorf("commit catalog: %w", err)
	}
	return nil
}

// Paths lists the files managed by the store.
func (s *FileStore) Paths() []string {
	return []string{s.CatalogPath, s.LedgerPath}
}

func encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func stage(path string, data []byte) (string, error) {
	if err := ensureDir(path); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
