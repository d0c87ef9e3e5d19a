// Package index builds, persists and publishes the hybrid retrieval
// index: a dense (embedding) and a sparse (lexical) structure over the
// same fixed-size chunks, described by an immutable manifest and guarded
// by a single-writer state store.
package index

import (
	"fmt"
	"strings"

	"github.com/frontdesk-labs/frontdesk/internal/corpus"
)

// Chunk is the retrieval unit. IDs are deterministic per document and
// position so identical corpora produce identical chunk identity.
type Chunk struct {
	ID      string `json:"id"`
	DocID   string `json:"doc_id"`
	DocName string `json:"doc_name"`
	Seq     int    `json:"seq"`
	Text    string `json:"text"`
}

// splitText cuts text into rune windows of size with the given overlap.
// The last window may be shorter; whitespace-only input yields nothing.
func splitText(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if size < 1 {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	step := size - overlap
	var parts []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return parts
}

// buildChunks chunks every document uniformly.
func buildChunks(docs []corpus.SourceDocument, size, overlap int) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		for i, part := range splitText(doc.Content, size, overlap) {
			chunks = append(chunks, Chunk{
				ID:      fmt.Sprintf("%s#%04d", doc.ID, i),
				DocID:   doc.ID,
				DocName: doc.Name,
				Seq:     i,
				Text:    part,
			})
		}
	}
	return chunks
}
