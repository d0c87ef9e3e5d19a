package config

import (
	"fmt"
	"log/slog"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Model access. The Gemini key is required for every question mode;
	// the Maps key and Drive credentials are optional and degrade their
	// route (upstream/auth errors) instead of blocking startup.
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}
	if c.Gemini.ChatModel == "" {
		return fmt.Errorf("%w: gemini.chat_model cannot be empty", ErrInvalidModel)
	}
	if c.Gemini.EmbedModel == "" {
		return fmt.Errorf("%w: gemini.embed_model cannot be empty", ErrInvalidModel)
	}
	if c.Gemini.EmbedDim < 1 || c.Gemini.EmbedDim > 3072 {
		return fmt.Errorf("%w: gemini.embed_dim must be between 1 and 3072, got %d",
			ErrInvalidModel, c.Gemini.EmbedDim)
	}
	if c.Gemini.TimeoutSeconds < 1 || c.Gemini.TimeoutSeconds > 600 {
		return fmt.Errorf("%w: gemini.timeout_seconds must be between 1 and 600, got %d",
			ErrInvalidTimeout, c.Gemini.TimeoutSeconds)
	}
	if c.Gemini.RequestsPerMinute < 1 {
		return fmt.Errorf("%w: gemini.requests_per_minute must be positive, got %d",
			ErrInvalidRateLimit, c.Gemini.RequestsPerMinute)
	}

	// Server.
	if c.Server.Host == "" {
		return fmt.Errorf("%w: server.host cannot be empty", ErrInvalidServerAddr)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 1 and 65535, got %d",
			ErrInvalidServerAddr, c.Server.Port)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("%w: server.rate_limit must be positive, got %v",
			ErrInvalidRateLimit, c.Server.RateLimit)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("%w: server.rate_burst must be at least 1, got %d",
			ErrInvalidRateLimit, c.Server.RateBurst)
	}

	// Index build and retrieval.
	if c.Index.Dir == "" {
		return fmt.Errorf("%w: index.dir cannot be empty", ErrInvalidIndexDir)
	}
	if c.Index.ChunkSize < 1 {
		return fmt.Errorf("%w: index.chunk_size must be positive, got %d",
			ErrInvalidChunking, c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("%w: index.chunk_overlap must be in [0, chunk_size), got %d",
			ErrInvalidChunking, c.Index.ChunkOverlap)
	}
	if c.Index.TopK < 1 || c.Index.TopK > 50 {
		return fmt.Errorf("%w: index.top_k must be between 1 and 50, got %d",
			ErrInvalidTopK, c.Index.TopK)
	}
	if c.Index.MinSimilarity < 0 || c.Index.MinSimilarity >= 1 {
		return fmt.Errorf("%w: index.min_similarity must be in [0, 1), got %v",
			ErrInvalidSimilarity, c.Index.MinSimilarity)
	}

	// Upstream timeouts.
	if c.Maps.TimeoutSeconds < 1 || c.Maps.TimeoutSeconds > 120 {
		return fmt.Errorf("%w: maps.timeout_seconds must be between 1 and 120, got %d",
			ErrInvalidTimeout, c.Maps.TimeoutSeconds)
	}
	if c.Drive.TimeoutSeconds < 1 || c.Drive.TimeoutSeconds > 3600 {
		return fmt.Errorf("%w: drive.timeout_seconds must be between 1 and 3600, got %d",
			ErrInvalidTimeout, c.Drive.TimeoutSeconds)
	}

	// Optional capabilities: warn once at validation time so a
	// misconfigured deployment is visible before the first request fails.
	if c.Maps.APIKey == "" {
		slog.Warn("GOOGLE_MAPS_API_KEY not set; place search, details and directions will fail as upstream errors")
	}
	if c.Drive.CredentialsFile == "" || c.Drive.FolderID == "" {
		slog.Warn("drive.credentials_file or drive.folder_id not set; sync will fail until configured")
	}
	if c.Dataset.Path == "" {
		slog.Warn("dataset.path not set; data questions will answer as unavailable")
	}

	return nil
}
