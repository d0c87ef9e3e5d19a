// Package cmd provides the frontdesk CLI commands.
//
// Commands:
//   - serve: HTTP API server (questions, places, sync)
//   - sync:  one-shot knowledge-base rebuild
//
// Both commands read the same configuration; signal handling and
// graceful shutdown go through context cancellation.
package cmd

import (
	"fmt"
	"os"

	"github.com/frontdesk-labs/frontdesk/internal/config"
	"github.com/frontdesk-labs/frontdesk/internal/log"
)

// Execute is the main entry point for the frontdesk CLI.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "sync":
		return runSync()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// loadConfig loads configuration and builds the process logger from it.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
	})
	return cfg, logger, nil
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Frontdesk - workplace assistant backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  frontdesk serve      Start the HTTP API server")
	fmt.Println("  frontdesk sync       Rebuild the knowledge-base index once and exit")
	fmt.Println("  frontdesk version    Show version information")
	fmt.Println("  frontdesk help       Show this help")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  GEMINI_API_KEY         Required: Gemini API key")
	fmt.Println("  GOOGLE_MAPS_API_KEY    Optional: enables place search and directions")
	fmt.Println("  FRONTDESK_*            Optional: override any config key")
	fmt.Println()
	fmt.Println("Configuration file: ./config.yaml or ~/.frontdesk/config.yaml")
}
