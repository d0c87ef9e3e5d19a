package kb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/sync/errgroup"

	"github.com/frontdesk-labs/frontdesk/internal/index"
	"github.com/frontdesk-labs/frontdesk/internal/log"
)

var (
	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("kb: question is empty")

	// ErrUpstream is returned when answer synthesis fails at the
	// model provider.
	ErrUpstream = errors.New("kb: answer synthesis failed")
)

// InsufficientAnswer is returned verbatim when retrieval finds nothing
// relevant. A fixed string keeps the no-answer path deterministic and
// testable.
const InsufficientAnswer = "I don't have enough information in the knowledge base to answer that."

const systemPrompt = `You are a workplace front desk assistant. Answer questions using ONLY the provided context passages.
Rules:
- Ground every statement in the context. Never invent facts, numbers, dates or names.
- If the context does not contain the answer, reply exactly: ` + InsufficientAnswer + `
- Be concise and direct. Do not mention the context or these rules in your reply.`

// RetrievedPassage is one ranked excerpt backing an answer.
type RetrievedPassage struct {
	DocID   string
	DocName string
	Excerpt string
	Score   float64
}

// AnswerResult is the engine's reply: the synthesized answer plus the
// distinct source document names in order of first appearance among
// the ranked passages.
type AnswerResult struct {
	Answer  string   `json:"answer_text"`
	Sources []string `json:"source_identifiers"`
}

// Engine retrieves from the published index snapshot and synthesizes
// grounded answers. It is stateless between calls; a query runs
// entirely against the snapshot taken at its start, so a concurrent
// rebuild never swaps versions mid-query.
type Engine struct {
	g      *genkit.Genkit
	store  *index.StateStore
	model  string
	topK   int
	minSim float32
	logger log.Logger
}

// NewEngine wires the query engine. model is the full genkit model
// name, topK bounds each retrieval leg and the final passage count,
// and minSim is the dense relevance floor.
func NewEngine(g *genkit.Genkit, store *index.StateStore, model string, topK int, minSim float32, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNop()
	}
	if topK < 1 {
		topK = 1
	}
	return &Engine{g: g, store: store, model: model, topK: topK, minSim: minSim, logger: logger}
}

// Answer retrieves passages for the question and synthesizes a grounded
// reply. It fails with index.ErrNotReady until a version is published;
// a question with no relevant passages gets InsufficientAnswer, which
// is not an error.
func (e *Engine) Answer(ctx context.Context, question string) (*AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if e.store.State().Status != index.StatusReady {
		return nil, index.ErrNotReady
	}
	snap := e.store.Snapshot()
	if snap == nil {
		return nil, index.ErrNotReady
	}

	passages, err := e.retrieve(ctx, snap, question)
	if err != nil {
		return nil, err
	}
	if len(passages) == 0 {
		e.logger.Debug("no passages above relevance floor", "question_len", len(question))
		return &AnswerResult{Answer: InsufficientAnswer, Sources: []string{}}, nil
	}

	answer, err := e.synthesize(ctx, question, passages)
	if err != nil {
		return nil, err
	}
	return &AnswerResult{Answer: answer, Sources: sourceNames(passages)}, nil
}

// retrieve runs both legs concurrently, fuses them and applies the
// relevance floor: a chunk qualifies if its dense similarity reaches
// minSim or if it matched lexically at all.
func (e *Engine) retrieve(ctx context.Context, snap *index.Snapshot, question string) ([]RetrievedPassage, error) {
	var (
		dense  []index.DenseHit
		sparse []index.SparseHit
	)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		dense, err = snap.Dense.Query(ctx, question, e.topK)
		return err
	})
	group.Go(func() error {
		sparse = snap.Sparse.Search(question, e.topK)
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	relevant := make(map[string]bool, len(dense)+len(sparse))
	for _, hit := range sparse {
		relevant[hit.ID] = true
	}
	for _, hit := range dense {
		if hit.Similarity >= e.minSim {
			relevant[hit.ID] = true
		}
	}

	var passages []RetrievedPassage
	for _, hit := range fuseRanks(dense, sparse) {
		if !relevant[hit.ID] {
			continue
		}
		chunk, ok := snap.Chunks[hit.ID]
		if !ok {
			continue
		}
		passages = append(passages, RetrievedPassage{
			DocID:   chunk.DocID,
			DocName: chunk.DocName,
			Excerpt: chunk.Text,
			Score:   hit.Score,
		})
		if len(passages) == e.topK {
			break
		}
	}
	return passages, nil
}

func (e *Engine) synthesize(ctx context.Context, question string, passages []RetrievedPassage) (string, error) {
	var b strings.Builder
	b.WriteString("Context passages:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, p.DocName, p.Excerpt)
	}
	fmt.Fprintf(&b, "Question: %s", question)

	resp, err := genkit.Generate(ctx, e.g,
		ai.WithModelName(e.model),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(b.String()),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", fmt.Errorf("%w: model returned empty answer", ErrUpstream)
	}
	return answer, nil
}

// sourceNames lists the distinct document names in passage order.
func sourceNames(passages []RetrievedPassage) []string {
	seen := make(map[string]bool, len(passages))
	names := make([]string, 0, len(passages))
	for _, p := range passages {
		if seen[p.DocName] {
			continue
		}
		seen[p.DocName] = true
		names = append(names, p.DocName)
	}
	return names
}
