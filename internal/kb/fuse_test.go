package kb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-labs/frontdesk/internal/index"
)

func TestFuseRanksConsensusWins(t *testing.T) {
	t.Parallel()

	dense := []index.DenseHit{
		{ID: "a#0000", Similarity: 0.9},
		{ID: "b#0000", Similarity: 0.8},
	}
	sparse := []index.SparseHit{
		{ID: "a#0000", Score: 4.2},
		{ID: "c#0000", Score: 1.1},
	}

	fused := fuseRanks(dense, sparse)
	require.Len(t, fused, 3)
	assert.Equal(t, "a#0000", fused[0].ID, "chunk ranked by both legs wins")
	assert.Greater(t, fused[0].Score, fused[1].Score)
}

func TestFuseRanksTieBreaksOnID(t *testing.T) {
	t.Parallel()

	// One hit per leg at the same rank scores identically; order must
	// fall back to the identifier.
	dense := []index.DenseHit{{ID: "z#0000", Similarity: 0.9}}
	sparse := []index.SparseHit{{ID: "a#0000", Score: 3.0}}

	fused := fuseRanks(dense, sparse)
	require.Len(t, fused, 2)
	assert.Equal(t, "a#0000", fused[0].ID)
	assert.Equal(t, "z#0000", fused[1].ID)
	assert.Equal(t, fused[0].Score, fused[1].Score)
}

func TestFuseRanksEqualSimilarityIsDeterministic(t *testing.T) {
	t.Parallel()

	// The dense leg reports equal similarities in arbitrary order;
	// fusion must impose ID order before assigning ranks.
	first := fuseRanks([]index.DenseHit{
		{ID: "b#0000", Similarity: 0.5},
		{ID: "a#0000", Similarity: 0.5},
	}, nil)
	second := fuseRanks([]index.DenseHit{
		{ID: "a#0000", Similarity: 0.5},
		{ID: "b#0000", Similarity: 0.5},
	}, nil)

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "a#0000", first[0].ID)
}

func TestFuseRanksRankWeighting(t *testing.T) {
	t.Parallel()

	fused := fuseRanks([]index.DenseHit{
		{ID: "a#0000", Similarity: 0.9},
		{ID: "b#0000", Similarity: 0.3},
	}, nil)
	require.Len(t, fused, 2)
	assert.Equal(t, "a#0000", fused[0].ID)
	assert.InDelta(t, 1.0/61, fused[0].Score, 1e-12)
	assert.InDelta(t, 1.0/62, fused[1].Score, 1e-12)
}

func TestFuseRanksEmpty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, fuseRanks(nil, nil))
}
