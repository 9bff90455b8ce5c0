package progress

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func TestNewLedgerDefaults(t *testing.T) {
	l := New(testNow)

	assert.Equal(t, -1, l.LastIndex())
	assert.Equal(t, 0, l.ResumePoint())
	assert.Empty(t, l.Completed())
	assert.Empty(t, l.Errors())
	assert.NotEmpty(t, l.RunID())
	assert.True(t, l.StartedAt().Equal(testNow))
}

func TestRecordSuccessAndFailureAdvance(t *testing.T) {
	l := New(testNow)

	l.RecordSuccess(0, testNow)
	l.RecordFailure(1, "Lamp", "timeout: context deadline exceeded", testNow)
	l.RecordSuccess(2, testNow)

	assert.Equal(t, 2, l.LastIndex())
	assert.Equal(t, 3, l.ResumePoint())
	assert.Equal(t, []int{0, 2}, l.Completed())
	require.Len(t, l.Errors(), 1)
	assert.Equal(t, ErrorRecord{Index: 1, Name: "Lamp", Error: "timeout: context deadline exceeded"}, l.Errors()[0])
	assert.True(t, l.IsCompleted(2))
	assert.False(t, l.IsCompleted(1))
}

func TestLastIndexNeverDecreases(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	l := New(testNow)

	previous := l.LastIndex()
	for i := 0; i < 500; i++ {
		index := rng.Intn(100)
		if rng.Intn(2) == 0 {
			l.RecordSuccess(index, testNow)
		} else {
			l.RecordFailure(index, "item", "boom", testNow)
		}
		if l.LastIndex() < previous {
			t.Fatalf("lastIndex decreased from %d to %d at step %d", previous, l.LastIndex(), i)
		}
		previous = l.LastIndex()
	}

	for _, index := range l.Completed() {
		if index > l.LastIndex() {
			t.Fatalf("completed index %d beyond lastIndex %d", index, l.LastIndex())
		}
	}
}

func TestMarkResolvedDoesNotMoveResumePoint(t *testing.T) {
	l := New(testNow)
	l.RecordFailure(3, "Mug", "HTTP 500", testNow)

	assert.True(t, l.MarkResolved(3, testNow))
	assert.False(t, l.MarkResolved(9, testNow), "beyond lastIndex")
	assert.Equal(t, 3, l.LastIndex())
	assert.Equal(t, []int{3}, l.Completed())
	assert.Len(t, l.Errors(), 1, "error log is append-only")
}

func TestErrorIndicesDistinct(t *testing.T) {
	l := New(testNow)
	l.RecordFailure(4, "a", "x", testNow)
	l.RecordFailure(2, "b", "y", testNow)
	l.RecordFailure(4, "a", "z", testNow)

	assert.Equal(t, []int{4, 2}, l.ErrorIndices())
	assert.Len(t, l.ErrorsFor(4), 2)
}

func TestLedgerJSONLayout(t *testing.T) {
	l := New(testNow)
	l.RecordSuccess(1, testNow)
	l.RecordSuccess(0, testNow)
	l.RecordFailure(2, "Kettle", "not_found: Not Found", testNow)

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, 2, raw["lastIndex"])
	assert.Equal(t, []any{float64(0), float64(1)}, raw["completed"])
	assert.Contains(t, raw, "startedAt")
	assert.Contains(t, raw, "errors")

	var loaded Ledger
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, l.RunID(), loaded.RunID())
	assert.Equal(t, 3, loaded.ResumePoint())
	assert.Equal(t, []int{0, 1}, loaded.Completed())
	assert.Equal(t, l.Errors(), loaded.Errors())
}

func TestLedgerLoadsLegacyFile(t *testing.T) {
	legacy := `{"completed": [5, 1, 5], "errors": [{"index": 3, "name": "x", "error": "HTTP 404"}]}`

	var l Ledger
	require.NoError(t, json.Unmarshal([]byte(legacy), &l))

	assert.NotEmpty(t, l.RunID())
	assert.Equal(t, []int{1, 5}, l.Completed())
	assert.Equal(t, 5, l.LastIndex(), "lastIndex covers completed indices")
	assert.Equal(t, []int{3}, l.ErrorIndices())
}

func TestLedgerLoadsZonelessTimestamps(t *testing.T) {
	legacy := `{"lastIndex": 2, "completed": [0], "errors": [], "startedAt": "2025-01-30T10:15:30.123456", "updatedAt": "2025-01-30T11:00:00"}`

	var l Ledger
	require.NoError(t, json.Unmarshal([]byte(legacy), &l))

	assert.True(t, l.StartedAt().Equal(time.Date(2025, 1, 30, 10, 15, 30, 123456000, time.Local)))
	assert.True(t, l.UpdatedAt().Equal(time.Date(2025, 1, 30, 11, 0, 0, 0, time.Local)))
	assert.Equal(t, 3, l.ResumePoint())
}
