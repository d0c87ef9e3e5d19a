// Package kb answers natural-language questions against the published
// document index. Retrieval runs a dense and a sparse leg over the same
// snapshot, fuses them by reciprocal rank and synthesizes an answer
// grounded only in the retrieved passages.
package kb

import (
	"sort"

	"github.com/frontdesk-labs/frontdesk/internal/index"
)

// rrfK dampens the influence of rank position in reciprocal rank
// fusion. 60 is the constant from the original RRF paper; with two
// legs it keeps a single high rank from dominating consensus.
const rrfK = 60

// fusedHit is one chunk after rank fusion.
type fusedHit struct {
	ID    string
	Score float64
}

// fuseRanks merges the two result lists with reciprocal rank fusion:
// each list contributes 1/(rrfK + rank) per chunk, ranks starting at 1.
// Both legs weigh equally. Ties break on ascending chunk ID, which
// orders by document identifier first since IDs are prefixed with it.
func fuseRanks(dense []index.DenseHit, sparse []index.SparseHit) []fusedHit {
	// The dense backend does not define an order for equal
	// similarities, so impose one before assigning ranks.
	sort.SliceStable(dense, func(i, j int) bool {
		if dense[i].Similarity != dense[j].Similarity {
			return dense[i].Similarity > dense[j].Similarity
		}
		return dense[i].ID < dense[j].ID
	})

	scores := make(map[string]float64, len(dense)+len(sparse))
	for rank, hit := range dense {
		scores[hit.ID] += 1.0 / float64(rrfK+rank+1)
	}
	for rank, hit := range sparse {
		scores[hit.ID] += 1.0 / float64(rrfK+rank+1)
	}

	fused := make([]fusedHit, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, fusedHit{ID: id, Score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ID < fused[j].ID
	})
	return fused
}
