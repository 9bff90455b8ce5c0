package pipeline

import (
	"errors"
	"testing"

	"github.com/aluiziolira/go-enrich-catalog/models"
	"github.com/aluiziolira/go-enrich-catalog/parser"
	"github.com/aluiziolira/go-enrich-catalog/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	done := item(1)
	done.MarkCompleted("https://cdn.example.test/1.jpg", "", fixedNow)
	priceOnly := item(3)
	priceOnly.MarkCompleted("", "$2", fixedNow)

	catalog := newCatalog(item(0), done, item(2), priceOnly, item(4))
	ledger := progress.New(fixedNow)
	ledger.RecordSuccess(3, fixedNow)

	tests := []struct {
		name string
		n    int
		want []int
	}{
		{name: "zero", n: 0, want: nil},
		{name: "one", n: 1, want: []int{0}},
		{name: "all remaining", n: 10, want: []int{0, 2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, it := range Next(catalog, ledger, tt.n) {
				got = append(got, it.Index)
			}
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, 3, ledger.LastIndex(), "Next never mutates the ledger")
}

func TestApplyFallbacks(t *testing.T) {
	yt := &models.Item{Name: "Talk", URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}
	shop := &models.Item{Name: "Poster", URL: "https://store.example.test/poster"}
	unknown := &models.Item{Name: "Mystery", URL: "https://unknown.example.org/x"}
	fixed := &models.Item{Name: "Fixed", URL: "https://youtu.be/abcdefghijk"}
	for _, it := range []*models.Item{yt, shop, unknown} {
		it.MarkError("timeout", fixedNow)
	}
	fixed.MarkCompleted("https://cdn.example.test/f.jpg", "", fixedNow)

	catalog := newCatalog(yt, shop, unknown, fixed)
	ledger := progress.New(fixedNow)
	ledger.RecordFailure(0, yt.Name, "timeout", fixedNow)
	ledger.RecordFailure(1, shop.Name, "timeout", fixedNow)
	ledger.RecordFailure(2, unknown.Name, "timeout", fixedNow)
	ledger.RecordFailure(1, shop.Name, "timeout again", fixedNow)
	ledger.RecordFailure(3, fixed.Name, "timeout", fixedNow)

	st := &memStore{catalog: catalog, ledger: ledger}
	rules := []parser.FallbackRule{{Host: "store.example.test", ImageURL: "https://cdn.example.test/store.png"}}

	result, err := ApplyFallbacks(st, rules, fixedNow, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Candidates)
	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, []int{2}, result.Unresolved)
	assert.Equal(t, 1, st.saves)

	assert.Equal(t, models.StatusCompleted, yt.ScrapeStatus)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", yt.ImageURL)
	assert.Empty(t, yt.ScrapeError)
	assert.Equal(t, "https://cdn.example.test/store.png", shop.ImageURL)
	assert.Equal(t, models.StatusError, unknown.ScrapeStatus)
	assert.Equal(t, "https://cdn.example.test/f.jpg", fixed.ImageURL)

	assert.Equal(t, []int{0, 1}, ledger.Completed())
	assert.Len(t, ledger.Errors(), 5, "the error log is append-only")
	assert.Equal(t, 3, ledger.LastIndex())
}

func TestApplyFallbacksNothingToDo(t *testing.T) {
	st := &memStore{catalog: newCatalog(item(0))}

	result, err := ApplyFallbacks(st, nil, fixedNow, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Applied)
	assert.Zero(t, st.saves)
}

func TestApplyFallbacksSaveFailure(t *testing.T) {
	it := &models.Item{Name: "Talk", URL: "https://youtu.be/abcdefghijk"}
	it.MarkError("timeout", fixedNow)
	ledger := progress.New(fixedNow)
	ledger.RecordFailure(0, it.Name, "timeout", fixedNow)

	st := &memStore{catalog: newCatalog(it), ledger: ledger, saveErr: errors.New("read-only")}
	_, err := ApplyFallbacks(st, nil, fixedNow, nil)
	assert.ErrorIs(t, err, st.saveErr)
}
