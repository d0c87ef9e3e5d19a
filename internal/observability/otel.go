// Package observability exports traces over OTLP HTTP. Genkit owns the
// TracerProvider and instruments every model and embedder call; this
// package only attaches an exporter to it, so enabling tracing never
// changes application behavior.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultEndpoint is the conventional local OTLP HTTP collector address.
const DefaultEndpoint = "localhost:4318"

// shutdownTimeout bounds the final span flush at process exit.
const shutdownTimeout = 5 * time.Second

// Config selects the trace export target.
type Config struct {
	// Enabled turns export on. When false Setup is a no-op.
	Enabled bool
	// Endpoint is the OTLP HTTP host:port (default localhost:4318).
	Endpoint string
	// ServiceName tags exported spans.
	ServiceName string
}

// Setup registers an OTLP exporter with genkit's TracerProvider and
// returns a shutdown function that flushes pending spans. A failed
// exporter construction disables tracing with a warning instead of
// failing startup; traces are an aid, not a dependency.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) func(context.Context) error {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func(context.Context) error { return nil }

	if !cfg.Enabled {
		return noop
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's TracerProvider reads service identity from the OTEL env
	// vars. Setenv is safe here: Setup runs once during startup before
	// any goroutine is spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return noop
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return tracing.TracerProvider().Shutdown(ctx)
	}
}
