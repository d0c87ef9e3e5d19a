// Package server is the mode router: the single HTTP entry point that
// validates requests, dispatches them to the knowledge-base engine, the
// tabular agent or the places gateway, and maps every component failure
// onto one fixed user-facing error taxonomy.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/frontdesk-labs/frontdesk/internal/index"
	"github.com/frontdesk-labs/frontdesk/internal/kb"
	"github.com/frontdesk-labs/frontdesk/internal/places"
	"github.com/frontdesk-labs/frontdesk/internal/security"
	"github.com/frontdesk-labs/frontdesk/internal/tabular"
)

// Defaults applied when Config leaves tuning fields zero.
const (
	defaultRateLimit  = 20.0
	defaultRateBurst  = 40
	defaultGenTimeout = 30 * time.Second
)

// Config wires the server. Store and KB are required; Builder, Tabular
// and Places are optional, their routes degrade to not_ready when
// absent.
type Config struct {
	Logger  *slog.Logger
	Store   *index.StateStore
	Builder *index.Builder
	KB      *kb.Engine
	Tabular *tabular.Agent
	Places  *places.Client
	Screen  *security.QuestionScreen

	AllowedOrigins []string
	RateLimit      float64 // requests/second per client
	RateBurst      int
	TrustProxy     bool

	// ModelRPM throttles question handling across all clients to the
	// upstream model quota, in requests per minute. Zero disables the
	// throttle.
	ModelRPM int

	// GenTimeout bounds one question's model and retrieval work.
	GenTimeout time.Duration
}

// Server is the JSON API HTTP server. It is stateless: handlers hold
// component references only.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the server with all routes configured.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("index state store is required")
	}
	if cfg.KB == nil {
		return nil, errors.New("kb engine is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Screen == nil {
		cfg.Screen = security.NewQuestionScreen()
	}
	if cfg.GenTimeout <= 0 {
		cfg.GenTimeout = defaultGenTimeout
	}

	var modelLimiter *rate.Limiter
	if cfg.ModelRPM > 0 {
		modelLimiter = rate.NewLimiter(rate.Limit(cfg.ModelRPM)/60, cfg.ModelRPM)
	}

	h := &handlers{
		logger:       logger,
		store:        cfg.Store,
		builder:      cfg.Builder,
		kb:           cfg.KB,
		tabular:      cfg.Tabular,
		places:       cfg.Places,
		screen:       cfg.Screen,
		genTimeout:   cfg.GenTimeout,
		modelLimiter: modelLimiter,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sync", h.sync)
	mux.HandleFunc("GET /api/v1/sync-status", h.syncStatus)
	mux.HandleFunc("POST /api/v1/kb-query", h.kbQuery)
	mux.HandleFunc("POST /api/v1/policy-question", h.policyQuestion)
	mux.HandleFunc("POST /api/v1/data-question", h.dataQuestion)
	mux.HandleFunc("POST /api/v1/places-search", h.placesSearch)
	mux.HandleFunc("GET /api/v1/place-details", h.placeDetails)
	mux.HandleFunc("GET /api/v1/directions", h.directions)

	rps := cfg.RateLimit
	if rps <= 0 {
		rps = defaultRateLimit
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	rl := newRateLimiter(rps, burst)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID precedes Logging so request_id is available as a log
	// attribute; CORS precedes RateLimit so preflight OPTIONS gets its
	// headers even when a client is throttled.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.AllowedOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health stays outside the middleware stack: liveness must not
	// depend on rate limits or index state.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// health is a pure liveness probe.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
