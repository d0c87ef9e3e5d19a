package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/frontdesk-labs/frontdesk/internal/app"
)

// runSync rebuilds the knowledge-base index once and exits. Useful for
// cron-driven refreshes and for warming the index before the first
// serve.
func runSync() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if a.Builder == nil {
		return errors.New("document source is not configured; set drive.credentials_file and drive.folder_id")
	}

	result, err := a.Builder.Sync(ctx, a.Store)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	logger.Info("sync complete",
		"version_id", result.VersionID,
		"documents", result.Documents,
		"chunks", result.Chunks,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	fmt.Printf("Indexed %d documents (%d chunks, %d skipped) as version %s in %s\n",
		result.Documents, result.Chunks, result.Skipped, result.VersionID, result.Duration.Round(time.Millisecond))
	return nil
}
