package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: nil},
		{name: "punctuation only", text: "?!,.", want: nil},
		{name: "lowercases", text: "Refund POLICY", want: []string{"refund", "policy"}},
		{name: "splits on punctuation", text: "open: 9am-5pm (weekdays)", want: []string{"open", "9am", "5pm", "weekdays"}},
		{name: "keeps digits", text: "suite 204", want: []string{"suite", "204"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tokenize(tt.text)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func sparseFixture() *SparseIndex {
	return BuildSparse([]Chunk{
		{ID: "a#0000", Text: "refund requests are accepted within thirty days of purchase"},
		{ID: "a#0001", Text: "the refund excludes shipping costs"},
		{ID: "b#0000", Text: "office hours are nine to five on weekdays"},
		{ID: "b#0001", Text: "the office is closed on public holidays"},
	})
}

func TestSparseSearchRanksMatchingChunks(t *testing.T) {
	t.Parallel()

	idx := sparseFixture()

	hits := idx.Search("refund shipping", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "a#0001", hits[0].ID, "chunk matching both terms ranks first")

	for _, hit := range hits {
		assert.Greater(t, hit.Score, 0.0)
	}
}

func TestSparseSearchNoMatch(t *testing.T) {
	t.Parallel()

	idx := sparseFixture()
	assert.Empty(t, idx.Search("zebra quantum", 10))
	assert.Empty(t, idx.Search("", 10))
}

func TestSparseSearchLimit(t *testing.T) {
	t.Parallel()

	idx := sparseFixture()

	hits := idx.Search("the office refund", 2)
	assert.Len(t, hits, 2)
	assert.Empty(t, idx.Search("office", 0))
}

func TestSparseSearchTieBreaksOnChunkID(t *testing.T) {
	t.Parallel()

	// Identical chunks score identically, so ordering must fall back
	// to the chunk identifier.
	idx := BuildSparse([]Chunk{
		{ID: "z#0000", Text: "parking permit"},
		{ID: "a#0000", Text: "parking permit"},
		{ID: "m#0000", Text: "parking permit"},
	})

	hits := idx.Search("parking", 10)
	require.Len(t, hits, 3)
	assert.Equal(t, "a#0000", hits[0].ID)
	assert.Equal(t, "m#0000", hits[1].ID)
	assert.Equal(t, "z#0000", hits[2].ID)
}

func TestSparseSearchEmptyIndex(t *testing.T) {
	t.Parallel()

	idx := BuildSparse(nil)
	assert.Empty(t, idx.Search("anything", 5))

	var nilIdx *SparseIndex
	assert.Empty(t, nilIdx.Search("anything", 5))
}

func TestSparseSaveLoad(t *testing.T) {
	t.Parallel()

	idx := sparseFixture()
	path := filepath.Join(t.TempDir(), "sparse.json")
	require.NoError(t, idx.Save(path))

	loaded, err := LoadSparse(path)
	require.NoError(t, err)

	// A reloaded index must rank exactly like the original.
	assert.Equal(t, idx.Search("refund shipping office", 10), loaded.Search("refund shipping office", 10))
}

func TestLoadSparseMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadSparse(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
