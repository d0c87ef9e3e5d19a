// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (GEMINI_API_KEY, GOOGLE_MAPS_API_KEY, FRONTDESK_*)
//  2. Config file (./config.yaml or ~/.frontdesk/config.yaml)
//  3. Default values
//
// Sensitive values (API keys) are masked in MarshalJSON and String.
// Validation returns sentinel errors for errors.Is() checks.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidServerAddr indicates the server host or port is invalid.
	ErrInvalidServerAddr = errors.New("invalid server address")

	// ErrInvalidModel indicates a model identifier is empty or malformed.
	ErrInvalidModel = errors.New("invalid model")

	// ErrInvalidChunking indicates the chunk size/overlap combination is unusable.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the retrieval top-K is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidSimilarity indicates the similarity floor is out of range.
	ErrInvalidSimilarity = errors.New("invalid similarity floor")

	// ErrInvalidIndexDir indicates the index artifacts directory is unset.
	ErrInvalidIndexDir = errors.New("invalid index directory")

	// ErrInvalidTimeout indicates a timeout value is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidRateLimit indicates the request rate limit is out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
)

// Model defaults. The chat model is provider-qualified for Genkit when it
// carries no prefix; gemini-embedding model names are passed to the
// googlegenai plugin as-is.
const (
	DefaultChatModel  = "gemini-2.5-flash"
	DefaultEmbedModel = "text-embedding-004"
	DefaultEmbedDim   = 768
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host           string   `mapstructure:"host" json:"host"`
	Port           int      `mapstructure:"port" json:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`
	RateLimit      float64  `mapstructure:"rate_limit" json:"rate_limit"`   // requests/second per client
	RateBurst      int      `mapstructure:"rate_burst" json:"rate_burst"`   // bucket size per client
	TrustProxy     bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // honor X-Forwarded-For behind a reverse proxy
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GeminiConfig holds model access settings.
type GeminiConfig struct {
	APIKey            string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	ChatModel         string `mapstructure:"chat_model" json:"chat_model"`
	EmbedModel        string `mapstructure:"embed_model" json:"embed_model"`
	EmbedDim          int    `mapstructure:"embed_dim" json:"embed_dim"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" json:"requests_per_minute"`
}

// FullChatModel returns the provider-qualified model name for Genkit,
// e.g. "googleai/gemini-2.5-flash". Already-qualified names pass through.
func (g GeminiConfig) FullChatModel() string {
	if strings.Contains(g.ChatModel, "/") {
		return g.ChatModel
	}
	return "googleai/" + g.ChatModel
}

// DriveConfig holds the corpus source settings.
type DriveConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" json:"credentials_file"`
	FolderID        string `mapstructure:"folder_id" json:"folder_id"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
}

// MapsConfig holds the places provider settings.
type MapsConfig struct {
	APIKey         string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
}

// IndexConfig holds index build and retrieval settings.
type IndexConfig struct {
	Dir           string  `mapstructure:"dir" json:"dir"`
	ChunkSize     int     `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap  int     `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	TopK          int     `mapstructure:"top_k" json:"top_k"`
	MinSimilarity float64 `mapstructure:"min_similarity" json:"min_similarity"`
}

// DatasetConfig holds the tabular dataset settings. An empty path is
// allowed; data questions then degrade to the unable-to-answer outcome.
type DatasetConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// OtelConfig holds trace export settings.
type OtelConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	JSON  bool   `mapstructure:"json" json:"json"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are masked in MarshalJSON; when adding a
// secret field, update MarshalJSON as well.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" json:"server"`
	Gemini  GeminiConfig  `mapstructure:"gemini" json:"gemini"`
	Drive   DriveConfig   `mapstructure:"drive" json:"drive"`
	Maps    MapsConfig    `mapstructure:"maps" json:"maps"`
	Index   IndexConfig   `mapstructure:"index" json:"index"`
	Dataset DatasetConfig `mapstructure:"dataset" json:"dataset"`
	Otel    OtelConfig    `mapstructure:"otel" json:"otel"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".frontdesk"))
	}

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus env cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults", "config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("gemini.chat_model", DefaultChatModel)
	v.SetDefault("gemini.embed_model", DefaultEmbedModel)
	v.SetDefault("gemini.embed_dim", DefaultEmbedDim)
	v.SetDefault("gemini.timeout_seconds", 30)
	v.SetDefault("gemini.requests_per_minute", 60)

	v.SetDefault("drive.timeout_seconds", 120)

	v.SetDefault("maps.timeout_seconds", 12)

	v.SetDefault("index.dir", "./data/index")
	v.SetDefault("index.chunk_size", 500)
	v.SetDefault("index.chunk_overlap", 50)
	v.SetDefault("index.top_k", 10)
	v.SetDefault("index.min_similarity", 0.25)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4318")
	v.SetDefault("otel.service_name", "frontdesk")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// bindEnvVariables binds environment variables explicitly. The two
// provider secrets keep their conventional unprefixed names; everything
// else is FRONTDESK_-prefixed.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded bindings cannot fail; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini.api_key", "GEMINI_API_KEY")
	mustBind("maps.api_key", "GOOGLE_MAPS_API_KEY")

	mustBind("server.host", "FRONTDESK_SERVER_HOST")
	mustBind("server.port", "FRONTDESK_SERVER_PORT")
	mustBind("server.allowed_origins", "FRONTDESK_ALLOWED_ORIGINS")
	mustBind("server.trust_proxy", "FRONTDESK_TRUST_PROXY")

	mustBind("gemini.chat_model", "FRONTDESK_CHAT_MODEL")
	mustBind("gemini.embed_model", "FRONTDESK_EMBED_MODEL")

	mustBind("drive.credentials_file", "FRONTDESK_DRIVE_CREDENTIALS_FILE")
	mustBind("drive.folder_id", "FRONTDESK_DRIVE_FOLDER_ID")

	mustBind("index.dir", "FRONTDESK_INDEX_DIR")
	mustBind("dataset.path", "FRONTDESK_DATASET_PATH")

	mustBind("otel.enabled", "FRONTDESK_OTEL_ENABLED")
	mustBind("otel.endpoint", "FRONTDESK_OTEL_ENDPOINT")

	mustBind("log.level", "FRONTDESK_LOG_LEVEL")
	mustBind("log.json", "FRONTDESK_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid accidental substring matches against real secret content.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 bytes
// or fewer are fully masked; longer ones keep the first and last two
// characters for debug utility. This defends against accidental logging,
// not against compromised log storage.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.Gemini.APIKey = maskSecret(a.Gemini.APIKey)
	a.Maps.APIKey = maskSecret(a.Maps.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
