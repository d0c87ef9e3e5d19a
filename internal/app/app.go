// Package app wires configuration into the running components. Each
// provider function builds one capability; Setup composes them and
// returns an App ready to serve or sync.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/philippgille/chromem-go"

	"github.com/frontdesk-labs/frontdesk/internal/config"
	"github.com/frontdesk-labs/frontdesk/internal/corpus"
	"github.com/frontdesk-labs/frontdesk/internal/index"
	"github.com/frontdesk-labs/frontdesk/internal/kb"
	"github.com/frontdesk-labs/frontdesk/internal/log"
	"github.com/frontdesk-labs/frontdesk/internal/observability"
	"github.com/frontdesk-labs/frontdesk/internal/places"
	"github.com/frontdesk-labs/frontdesk/internal/security"
	"github.com/frontdesk-labs/frontdesk/internal/tabular"
)

// App holds the wired components. Builder and Places stay nil when
// their credentials are not configured; the HTTP layer degrades those
// routes instead of refusing to start.
type App struct {
	Config  *config.Config
	Logger  log.Logger
	Genkit  *genkit.Genkit
	Store   *index.StateStore
	Builder *index.Builder
	KB      *kb.Engine
	Tabular *tabular.Agent
	Places  *places.Client
	Screen  *security.QuestionScreen

	otelShutdown func(context.Context) error
}

// Setup creates and initializes the application.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	// Tracing attaches to genkit's TracerProvider, so it must be set up
	// before genkit.Init.
	a.otelShutdown = observability.Setup(ctx, observability.Config{
		Enabled:     cfg.Otel.Enabled,
		Endpoint:    cfg.Otel.Endpoint,
		ServiceName: cfg.Otel.ServiceName,
	}, logger)

	g := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.Gemini.APIKey}),
	)
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.Gemini.EmbedModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.Gemini.EmbedModel)
	}
	embedFunc := index.NewEmbeddingFunc(embedder, cfg.Gemini.EmbedDim)

	a.Store = provideStateStore(cfg, embedFunc, logger)

	builder, err := provideBuilder(ctx, cfg, embedFunc, logger)
	if err != nil {
		return nil, err
	}
	a.Builder = builder

	a.KB = kb.NewEngine(g, a.Store, cfg.Gemini.FullChatModel(),
		cfg.Index.TopK, float32(cfg.Index.MinSimilarity),
		logger.With("component", "kb"))

	a.Tabular = provideTabular(g, cfg, logger)

	a.Places, err = providePlaces(cfg, logger)
	if err != nil {
		return nil, err
	}

	a.Screen = security.NewQuestionScreen()
	return a, nil
}

// Close flushes pending telemetry. Components hold no other resources
// that outlive the process.
func (a *App) Close() error {
	if a.otelShutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.otelShutdown(ctx); err != nil {
		return fmt.Errorf("shutting down tracer provider: %w", err)
	}
	return nil
}

// provideStateStore creates the store and restores the published index
// version from disk when one exists. Corrupt artifacts leave the store
// NotBuilt with a warning; the next sync replaces them.
func provideStateStore(cfg *config.Config, embedFunc chromem.EmbeddingFunc, logger log.Logger) *index.StateStore {
	store := index.NewStateStore(logger.With("component", "index"))

	snap, err := index.Open(cfg.Index.Dir, embedFunc)
	switch {
	case err != nil:
		logger.Warn("could not restore persisted index, starting empty",
			"dir", cfg.Index.Dir, "error", err)
	case snap != nil:
		store.Restore(snap)
	}
	return store
}

// provideBuilder wires the Drive-backed builder, or nothing when the
// document source is not configured.
func provideBuilder(ctx context.Context, cfg *config.Config, embedFunc chromem.EmbeddingFunc, logger log.Logger) (*index.Builder, error) {
	if cfg.Drive.CredentialsFile == "" || cfg.Drive.FolderID == "" {
		logger.Info("document source not configured, sync disabled")
		return nil, nil
	}

	svc, err := corpus.NewDriveService(ctx, cfg.Drive.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	source, err := corpus.NewDriveSource(svc, cfg.Drive.FolderID, logger.With("component", "corpus"))
	if err != nil {
		return nil, fmt.Errorf("creating drive source: %w", err)
	}
	bounded := corpus.WithDeadline(source, time.Duration(cfg.Drive.TimeoutSeconds)*time.Second)

	builder, err := index.NewBuilder(bounded, embedFunc, cfg.Index.Dir,
		cfg.Index.ChunkSize, cfg.Index.ChunkOverlap,
		logger.With("component", "builder"))
	if err != nil {
		return nil, fmt.Errorf("creating index builder: %w", err)
	}
	return builder, nil
}

// provideTabular loads the dataset and wires the agent. A failed load
// keeps the agent constructed; every data question then answers as
// unavailable instead of blocking startup.
func provideTabular(g *genkit.Genkit, cfg *config.Config, logger log.Logger) *tabular.Agent {
	var table *tabular.Table
	if cfg.Dataset.Path != "" {
		var err error
		table, err = tabular.LoadCSV(cfg.Dataset.Path)
		if err != nil {
			logger.Warn("loading dataset failed, data questions unavailable",
				"path", cfg.Dataset.Path, "error", err)
			table = nil
		} else {
			logger.Info("dataset loaded",
				"path", cfg.Dataset.Path, "rows", table.RowCount())
		}
	}
	return tabular.NewAgent(g, cfg.Gemini.FullChatModel(), table,
		logger.With("component", "tabular"))
}

// providePlaces wires the Maps client when a key is configured.
func providePlaces(cfg *config.Config, logger log.Logger) (*places.Client, error) {
	if cfg.Maps.APIKey == "" {
		logger.Info("maps api key not configured, places routes disabled")
		return nil, nil
	}
	client, err := places.NewClient(cfg.Maps.APIKey,
		logger.With("component", "places"),
		places.WithTimeout(time.Duration(cfg.Maps.TimeoutSeconds)*time.Second))
	if err != nil {
		return nil, fmt.Errorf("creating places client: %w", err)
	}
	return client, nil
}
