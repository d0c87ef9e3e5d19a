package index

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/philippgille/chromem-go"
	"google.golang.org/genai"
)

// denseCollection is the single collection name inside each version's
// chromem database. Versioning happens at the directory level.
const denseCollection = "chunks"

// NewEmbeddingFunc adapts a genkit embedder to chromem's callback.
// When dim > 0 the provider is asked for that output dimensionality;
// chromem normalizes the vectors itself, so no post-processing is done
// here.
func NewEmbeddingFunc(embedder ai.Embedder, dim int) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		req := &ai.EmbedRequest{
			Input: []*ai.Document{ai.DocumentFromText(text, nil)},
		}
		if dim > 0 {
			d := int32(dim)
			req.Options = &genai.EmbedContentConfig{OutputDimensionality: &d}
		}

		resp, err := embedder.Embed(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("embed text: %w", err)
		}
		if len(resp.Embeddings) == 0 {
			return nil, fmt.Errorf("embedder returned no embeddings")
		}
		return resp.Embeddings[0].Embedding, nil
	}
}

// DenseStore wraps one persistent chromem collection holding the chunk
// embeddings of a single index version.
type DenseStore struct {
	db  *chromem.DB
	col *chromem.Collection
}

// DenseHit is one scored chunk from a vector query.
type DenseHit struct {
	ID         string
	Similarity float32
}

// OpenDense opens (or creates) the dense store rooted at path. Opening
// an existing version reloads its persisted embeddings.
func OpenDense(path string, embed chromem.EmbeddingFunc) (*DenseStore, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open dense store: %w", err)
	}
	col, err := db.GetOrCreateCollection(denseCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open dense collection: %w", err)
	}
	return &DenseStore{db: db, col: col}, nil
}

// Add embeds and persists the chunks. Embedding runs with the given
// concurrency, which must be at least 1.
func (d *DenseStore) Add(ctx context.Context, chunks []Chunk, concurrency int) error {
	if len(chunks) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      chunk.ID,
			Content: chunk.Text,
			Metadata: map[string]string{
				"doc_id":   chunk.DocID,
				"doc_name": chunk.DocName,
			},
		})
	}
	if err := d.col.AddDocuments(ctx, docs, concurrency); err != nil {
		return fmt.Errorf("add documents to dense store: %w", err)
	}
	return nil
}

// Query embeds the text and returns at most k chunks by cosine
// similarity. k is clamped to the collection size because chromem
// rejects oversized result requests.
func (d *DenseStore) Query(ctx context.Context, text string, k int) ([]DenseHit, error) {
	count := d.col.Count()
	if count == 0 || k < 1 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := d.col.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query dense store: %w", err)
	}

	hits := make([]DenseHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, DenseHit{ID: res.ID, Similarity: res.Similarity})
	}
	return hits, nil
}

// Count reports how many chunks the collection holds.
func (d *DenseStore) Count() int {
	return d.col.Count()
}
