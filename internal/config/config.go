// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables
//  2. Config file (~/.corpus/config.yaml or ./config.yaml)
//  3. Defaults
//
// Sensitive values (passwords, tokens) are masked in MarshalJSON so the
// config can be logged safely. Validation runs at load time and fails fast
// with sentinel errors checkable via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidEmbedder indicates the embedder configuration is invalid.
	ErrInvalidEmbedder = errors.New("invalid embedder configuration")

	// ErrInvalidChunking indicates the chunking parameters are out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidWeights indicates the hybrid score weights are out of range.
	ErrInvalidWeights = errors.New("invalid hybrid weight configuration")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultEmbedderModel truncates its 3072-dim output to 768 via
	// OutputDimensionality; the pgvector schema stores vector(768).
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbedderDimension matches chunk.VectorDimension and the
	// vector(N) column width.
	DefaultEmbedderDimension = 768
)

// Config stores application configuration.
// Sensitive fields are masked in MarshalJSON; update it when adding secrets.
type Config struct {
	// Embedding provider
	EmbedderModel     string  `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimension int32   `mapstructure:"embedder_dimension" json:"embedder_dimension"`
	EmbedBatchSize    int     `mapstructure:"embed_batch_size" json:"embed_batch_size"`
	EmbedRPS          float64 `mapstructure:"embed_rps" json:"embed_rps"`

	// Chunking
	ChunkTargetSize int `mapstructure:"chunk_target_size" json:"chunk_target_size"`
	ChunkOverlap    int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Retrieval
	SearchLanguage string  `mapstructure:"search_language" json:"search_language"`
	VectorWeight   float64 `mapstructure:"vector_weight" json:"vector_weight"`
	TextWeight     float64 `mapstructure:"text_weight" json:"text_weight"`

	// Storage (see storage.go for DSN/URL builders)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`
	AdminToken string `mapstructure:"admin_token" json:"admin_token"` // SENSITIVE

	// Content sources
	NotionToken string `mapstructure:"notion_token" json:"notion_token"` // SENSITIVE
	CMSBaseURL  string `mapstructure:"cms_base_url" json:"cms_base_url"`
	CMSToken    string `mapstructure:"cms_token" json:"cms_token"` // SENSITIVE

	// Observability (serve mode)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".corpus")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedder_dimension", DefaultEmbedderDimension)
	viper.SetDefault("embed_batch_size", 128)
	viper.SetDefault("embed_rps", 5.0)

	viper.SetDefault("chunk_target_size", 1000)
	viper.SetDefault("chunk_overlap", 180)

	viper.SetDefault("search_language", "english")
	viper.SetDefault("vector_weight", 0.7)
	viper.SetDefault("text_weight", 0.3)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "corpus")
	viper.SetDefault("postgres_password", "corpus_dev_password")
	viper.SetDefault("postgres_db_name", "corpus")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("server_addr", "127.0.0.1:3500")

	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("environment", "dev")
	viper.SetDefault("service_name", "corpus")
}

// bindEnvVariables binds environment variables explicitly. GEMINI_API_KEY is
// read directly by the genkit plugin, not via viper; Validate checks its
// presence.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("admin_token", "CORPUS_ADMIN_TOKEN")
	mustBind("notion_token", "NOTION_TOKEN")
	mustBind("cms_base_url", "CORPUS_CMS_BASE_URL")
	mustBind("cms_token", "CORPUS_CMS_TOKEN")
	mustBind("server_addr", "CORPUS_SERVER_ADDR")
	mustBind("embedder_model", "CORPUS_EMBEDDER_MODEL")
	mustBind("otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	mustBind("environment", "CORPUS_ENVIRONMENT")
}

// maskedValue uses full-width blocks so masked output can never be a
// substring of the real secret.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 chars or fewer
// are fully masked; longer ones keep the first and last 2 chars for debug
// utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.AdminToken = maskSecret(a.AdminToken)
	a.NotionToken = maskSecret(a.NotionToken)
	a.CMSToken = maskSecret(a.CMSToken)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer so accidental printing never leaks secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
