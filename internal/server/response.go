package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frontdesk-labs/frontdesk/internal/corpus"
	"github.com/frontdesk-labs/frontdesk/internal/index"
	"github.com/frontdesk-labs/frontdesk/internal/kb"
	"github.com/frontdesk-labs/frontdesk/internal/places"
	"github.com/frontdesk-labs/frontdesk/internal/tabular"
)

// ErrorResponse is the uniform error envelope. Error is a stable
// machine-readable code; Message is for humans.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
// Buffer-first: headers go out only after encoding succeeds, so an
// encoding failure can still produce a proper 500.
func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		slog.Debug("failed to write response body", "error", err)
	}
}

// writeError writes the error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// User-facing messages per error category. Component detail stays in
// the server log; the client sees only these.
const (
	msgNotReady       = "knowledge base is not ready; run a sync first"
	msgBusy           = "a sync is already in progress; retry later"
	msgUpstream       = "an upstream service failed; please try again"
	msgUnableToAnswer = "unable to answer this question"
	msgInternal       = "internal server error"
)

// writeComponentError maps a component failure onto the fixed
// user-facing taxonomy. This is the only place internal sentinels are
// downgraded; nothing component-specific crosses the HTTP boundary.
func writeComponentError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	status, code, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "op", op, "error", err)
	} else {
		logger.Debug("request rejected", "op", op, "code", code, "error", err)
	}
	writeError(w, status, code, message)
}

// errorStatus is the single sentinel-to-taxonomy mapping.
func errorStatus(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, kb.ErrEmptyQuestion),
		errors.Is(err, tabular.ErrEmptyQuestion),
		errors.Is(err, places.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid_request", err.Error()

	case errors.Is(err, index.ErrNotReady):
		return http.StatusServiceUnavailable, "not_ready", msgNotReady

	case errors.Is(err, index.ErrBuildInProgress):
		return http.StatusConflict, "busy", msgBusy

	case errors.Is(err, places.ErrNotFound):
		return http.StatusNotFound, "not_found", "place not found"

	case errors.Is(err, places.ErrNoRoute):
		return http.StatusNotFound, "no_route", "no route found for the requested travel mode"

	case errors.Is(err, index.ErrEmptyCorpus),
		errors.Is(err, tabular.ErrDatasetUnavailable),
		errors.Is(err, tabular.ErrReasoningLimit):
		return http.StatusUnprocessableEntity, "unable_to_answer", msgUnableToAnswer

	case errors.Is(err, kb.ErrUpstream),
		errors.Is(err, tabular.ErrUpstream),
		errors.Is(err, places.ErrUpstream),
		errors.Is(err, corpus.ErrAuth),
		errors.Is(err, corpus.ErrFolderNotFound):
		return http.StatusBadGateway, "upstream_error", msgUpstream

	default:
		return http.StatusInternalServerError, "internal_error", msgInternal
	}
}
