package testutil

import "log/slog"

// DiscardLogger returns a logger that drops everything. Components
// taking a log.Logger (an alias for *slog.Logger) accept it directly;
// prefer log.NewNop() where the log package is already imported.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
