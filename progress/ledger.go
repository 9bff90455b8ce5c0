// Package progress tracks resumable run state: the last processed catalog
// index, the set of completed indices and an append-only error log.
package progress

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/models"
	"github.com/google/uuid"
)

// ErrorRecord is one failed attempt in the ledger's error log.
type ErrorRecord struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Ledger is the resumable state of an enrichment run.
//
// lastIndex never decreases and every completed index is <= lastIndex.
type Ledger struct {
	runID     string
	lastIndex int
	completed map[int]struct{}
	errors    []ErrorRecord
	startedAt time.Time
	updatedAt time.Time
}

// New creates an empty ledger starting before the first catalog item.
func New(now time.Time) *Ledger {
	return &Ledger{
		runID:     uuid.NewString(),
		lastIndex: -1,
		completed: make(map[int]struct{}),
		startedAt: now,
		updatedAt: now,
	}
}

// RunID identifies the ledger across restarts.
func (l *Ledger) RunID() string { return l.runID }

// LastIndex returns the highest index processed so far, or -1.
func (l *Ledger) LastIndex() int { return l.lastIndex }

// StartedAt returns when the ledger was first created.
func (l *Ledger) StartedAt() time.Time { return l.startedAt }

// UpdatedAt returns the time of the last recorded outcome.
func (l *Ledger) UpdatedAt() time.Time { return l.updatedAt }

// ResumePoint returns the first catalog index not yet processed.
func (l *Ledger) ResumePoint() int {
	return l.lastIndex + 1
}

// RecordSuccess marks index completed and advances the resume point.
func (l *Ledger) RecordSuccess(index int, now time.Time) {
	l.completed[index] = struct{}{}
	l.advance(index)
	l.updatedAt = now
}

// RecordFailure appends to the error log and advances the resume point so a
// failing item is not retried forever.
func (l *Ledger) RecordFailure(index int, name, reason string, now time.Time) {
	l.errors = append(l.errors, ErrorRecord{Index: index, Name: name, Error: reason})
	l.advance(index)
	l.updatedAt = now
}

// MarkResolved adds an already processed index to the completed set without
// moving the resume point. Indices beyond lastIndex are ignored.
func (l *Ledger) MarkResolved(index int, now time.Time) bool {
	if index < 0 || index > l.lastIndex {
		return false
	}
	l.completed[index] = struct{}{}
	l.updatedAt = now
	return true
}

// IsCompleted reports whether index finished successfully.
func (l *Ledger) IsCompleted(index int) bool {
	_, ok := l.completed[index]
	return ok
}

// Completed returns the completed indices in ascending order.
func (l *Ledger) Completed() []int {
	out := make([]int, 0, len(l.completed))
	for index := range l.completed {
		out = append(out, index)
	}
	sort.Ints(out)
	return out
}

// Errors returns a copy of the error log.
func (l *Ledger) Errors() []ErrorRecord {
	out := make([]ErrorRecord, len(l.errors))
	copy(out, l.errors)
	return out
}

// ErrorsFor returns the error records logged for index.
func (l *Ledger) ErrorsFor(index int) []ErrorRecord {
	var out []ErrorRecord
	for _, record := range l.errors {
		if record.Index == index {
			out = append(out, record)
		}
	}
	return out
}

// ErrorIndices returns the distinct indices in the error log, in log order.
func (l *Ledger) ErrorIndices() []int {
	seen := make(map[int]struct{}, len(l.errors))
	var out []int
	for _, record := range l.errors {
		if _, ok := seen[record.Index]; ok {
			continue
		}
		seen[record.Index] = struct{}{}
		out = append(out, record.Index)
	}
	return out
}

func (l *Ledger) advance(index int) {
	if index > l.lastIndex {
		l.lastIndex = index
	}
}

type ledgerFile struct {
	RunID     string            `json:"runId,omitempty"`
	LastIndex int               `json:"lastIndex"`
	Completed []int             `json:"completed"`
	Errors    []ErrorRecord     `json:"errors"`
	StartedAt models.Timestamp  `json:"startedAt"`
	UpdatedAt *models.Timestamp `json:"updatedAt,omitempty"`
}

// MarshalJSON writes the ledger file layout.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	errs := l.errors
	if errs == nil {
		errs = []ErrorRecord{}
	}
	file := ledgerFile{
		RunID:     l.runID,
		LastIndex: l.lastIndex,
		Completed: l.Completed(),
		Errors:    errs,
		StartedAt: models.Timestamp{Time: l.startedAt},
	}
	if !l.updatedAt.IsZero() {
		file.UpdatedAt = models.NewTimestamp(l.updatedAt)
	}
	return json.Marshal(file)
}

// UnmarshalJSON reads the ledger file layout. A file written by an older
// tool without runId gets a fresh one, and lastIndex is raised to cover any
// completed index so the invariants hold after load.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	file := ledgerFile{LastIndex: -1}
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}

	l.runID = file.RunID
	if l.runID == "" {
		l.runID = uuid.NewString()
	}
	l.lastIndex = file.LastIndex
	if l.lastIndex < -1 {
		l.lastIndex = -1
	}
	l.completed = make(map[int]struct{}, len(file.Completed))
	for _, index := range file.Completed {
		if index < 0 {
			continue
		}
		l.completed[index] = struct{}{}
		l.advance(index)
	}
	l.errors = file.Errors
	l.startedAt = file.StartedAt.Time
	if file.UpdatedAt != nil {
		l.updatedAt = file.UpdatedAt.Time
	}
	return nil
}
