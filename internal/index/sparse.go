package index

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"unicode"
)

// BM25 parameters. Fixed so persisted indexes score identically across
// restarts.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// posting records one chunk containing a term, by ordinal into ChunkIDs.
type posting struct {
	Ord  int `json:"o"`
	Freq int `json:"f"`
}

// SparseIndex is an inverted index scored with BM25. It is built once
// per index version and is read-only afterwards, so lookups need no
// locking.
type SparseIndex struct {
	Postings map[string][]posting `json:"postings"`
	DocLens  []int                `json:"doc_lens"`
	ChunkIDs []string             `json:"chunk_ids"`
	AvgLen   float64              `json:"avg_len"`
}

// SparseHit is one scored chunk from a lexical query.
type SparseHit struct {
	ID    string
	Score float64
}

// tokenize lowercases and splits on anything that is not a letter or
// digit. Query and document text must go through the same function.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// BuildSparse indexes the chunks in order; chunk ordinals follow the
// slice order.
func BuildSparse(chunks []Chunk) *SparseIndex {
	idx := &SparseIndex{
		Postings: make(map[string][]posting),
		DocLens:  make([]int, len(chunks)),
		ChunkIDs: make([]string, len(chunks)),
	}

	var total int
	for ord, chunk := range chunks {
		terms := tokenize(chunk.Text)
		idx.DocLens[ord] = len(terms)
		idx.ChunkIDs[ord] = chunk.ID
		total += len(terms)

		freqs := make(map[string]int, len(terms))
		for _, term := range terms {
			freqs[term]++
		}
		for term, freq := range freqs {
			idx.Postings[term] = append(idx.Postings[term], posting{Ord: ord, Freq: freq})
		}
	}
	if len(chunks) > 0 {
		idx.AvgLen = float64(total) / float64(len(chunks))
	}
	return idx
}

// Search scores the query against the index and returns at most k hits,
// best first. Ties break on ascending chunk ID so results are stable.
func (s *SparseIndex) Search(query string, k int) []SparseHit {
	if s == nil || len(s.ChunkIDs) == 0 || k < 1 {
		return nil
	}

	n := float64(len(s.ChunkIDs))
	scores := make(map[int]float64)
	for _, term := range tokenize(query) {
		postings, ok := s.Postings[term]
		if !ok {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range postings {
			tf := float64(p.Freq)
			norm := 1 - bm25B + bm25B*float64(s.DocLens[p.Ord])/s.AvgLen
			scores[p.Ord] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	hits := make([]SparseHit, 0, len(scores))
	for ord, score := range scores {
		hits = append(hits, SparseHit{ID: s.ChunkIDs[ord], Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Save writes the index as JSON. The file is small relative to the
// dense store, so no compression is applied.
func (s *SparseIndex) Save(path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal sparse index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write sparse index: %w", err)
	}
	return nil
}

// LoadSparse reads an index written by Save.
func LoadSparse(path string) (*SparseIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sparse index: %w", err)
	}
	var idx SparseIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse sparse index: %w", err)
	}
	return &idx, nil
}
