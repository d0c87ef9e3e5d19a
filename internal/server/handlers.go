package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/frontdesk-labs/frontdesk/internal/index"
	"github.com/frontdesk-labs/frontdesk/internal/kb"
	"github.com/frontdesk-labs/frontdesk/internal/places"
	"github.com/frontdesk-labs/frontdesk/internal/security"
	"github.com/frontdesk-labs/frontdesk/internal/tabular"
)

// maxQuestionRunes caps user questions before they reach a prompt.
const maxQuestionRunes = 4000

// maxBodyBytes caps request bodies well above any valid payload.
const maxBodyBytes = 64 * 1024

type handlers struct {
	logger       *slog.Logger
	store        *index.StateStore
	builder      *index.Builder
	kb           *kb.Engine
	tabular      *tabular.Agent
	places       *places.Client
	screen       *security.QuestionScreen
	genTimeout   time.Duration
	modelLimiter *rate.Limiter
}

// waitModel reserves model capacity for one question. A request that
// cannot get capacity within its deadline is throttled, not failed.
func (h *handlers) waitModel(ctx context.Context, w http.ResponseWriter) bool {
	if h.modelLimiter == nil {
		return true
	}
	if err := h.modelLimiter.Wait(ctx); err != nil {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "rate_limited", "model capacity exhausted, retry later")
		return false
	}
	return true
}

// questionRequest is the shared payload of the question routes.
type questionRequest struct {
	Question string `json:"question"`
}

// decodeJSON decodes a strict JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// A second document in the body is malformed input, not extra data
	// to ignore.
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

// readQuestion decodes and validates a question payload. A rejected
// question is already answered on w.
func (h *handlers) readQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req questionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return "", false
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return "", false
	}
	if utf8.RuneCountInString(question) > maxQuestionRunes {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is too long")
		return "", false
	}
	if !h.screen.IsSafe(question) {
		// Never echo which pattern matched.
		h.logger.Warn("question rejected by screen", "request_id", requestIDFromContext(r.Context()))
		writeError(w, http.StatusBadRequest, "invalid_request", "question contains disallowed content")
		return "", false
	}
	return question, true
}

// syncResponse is the sync outcome returned to the client.
type syncResponse struct {
	VersionID  string `json:"version_id"`
	IndexDir   string `json:"index_dir"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Skipped    int    `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
}

// sync triggers a full rebuild. The builder's permit guard turns
// concurrent calls into busy responses.
func (h *handlers) sync(w http.ResponseWriter, r *http.Request) {
	if h.builder == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "document source is not configured")
		return
	}

	result, err := h.builder.Sync(r.Context(), h.store)
	if err != nil {
		writeComponentError(w, h.logger, "sync", err)
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		VersionID:  result.VersionID,
		IndexDir:   result.IndexDir,
		Documents:  result.Documents,
		Chunks:     result.Chunks,
		Skipped:    result.Skipped,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// syncStatusResponse is the index state snapshot.
type syncStatusResponse struct {
	Status     index.Status    `json:"status"`
	Manifest   *index.Manifest `json:"manifest,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
	LastSyncAt *time.Time      `json:"last_sync_at,omitempty"`
	Persisted  bool            `json:"persisted"`
}

// syncStatus reports the current index state. The snapshot read is
// lock-free; it never blocks on an in-flight build.
func (h *handlers) syncStatus(w http.ResponseWriter, _ *http.Request) {
	state := h.store.State()

	resp := syncStatusResponse{
		Status:    state.Status,
		Manifest:  state.Manifest,
		LastError: state.LastError,
		Persisted: state.Manifest != nil,
	}
	if !state.LastSyncAt.IsZero() {
		t := state.LastSyncAt
		resp.LastSyncAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

// kbQuery answers a question from the document index.
func (h *handlers) kbQuery(w http.ResponseWriter, r *http.Request) {
	question, ok := h.readQuestion(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.genTimeout)
	defer cancel()
	if !h.waitModel(ctx, w) {
		return
	}

	result, err := h.kb.Answer(ctx, question)
	if err != nil {
		writeComponentError(w, h.logger, "kb-query", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// policyQuestion is the user-facing alias of kb-query with the
// original response field names.
func (h *handlers) policyQuestion(w http.ResponseWriter, r *http.Request) {
	question, ok := h.readQuestion(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.genTimeout)
	defer cancel()
	if !h.waitModel(ctx, w) {
		return
	}

	result, err := h.kb.Answer(ctx, question)
	if err != nil {
		writeComponentError(w, h.logger, "policy-question", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":  result.Answer,
		"sources": result.Sources,
	})
}

// dataQuestion answers a question from the tabular dataset.
func (h *handlers) dataQuestion(w http.ResponseWriter, r *http.Request) {
	question, ok := h.readQuestion(w, r)
	if !ok {
		return
	}
	if h.tabular == nil {
		writeComponentError(w, h.logger, "data-question", tabular.ErrDatasetUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.genTimeout)
	defer cancel()
	if !h.waitModel(ctx, w) {
		return
	}

	answer, err := h.tabular.Answer(ctx, question)
	if err != nil {
		writeComponentError(w, h.logger, "data-question", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// placesSearch runs a place search with local post-filters.
func (h *handlers) placesSearch(w http.ResponseWriter, r *http.Request) {
	if h.places == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "places provider is not configured")
		return
	}

	var query places.PlaceQuery
	if err := decodeJSON(r, &query); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	cards, err := h.places.Search(r.Context(), query)
	if err != nil {
		writeComponentError(w, h.logger, "places-search", err)
		return
	}
	if cards == nil {
		cards = []places.PlaceCard{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": cards})
}

// placeDetails looks up one place by ID.
func (h *handlers) placeDetails(w http.ResponseWriter, r *http.Request) {
	if h.places == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "places provider is not configured")
		return
	}

	detail, err := h.places.Details(r.Context(), r.URL.Query().Get("place_id"))
	if err != nil {
		writeComponentError(w, h.logger, "place-details", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// directions returns the best route between two endpoints.
func (h *handlers) directions(w http.ResponseWriter, r *http.Request) {
	if h.places == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "places provider is not configured")
		return
	}

	q := r.URL.Query()
	route, err := h.places.Directions(r.Context(), q.Get("origin"), q.Get("destination"), q.Get("mode"))
	if err != nil {
		writeComponentError(w, h.logger, "directions", err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}
