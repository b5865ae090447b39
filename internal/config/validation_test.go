package config

import (
	"errors"
	"testing"
)

func validConfig() *Config {
	return &Config{
		EmbedderModel:     DefaultEmbedderModel,
		EmbedderDimension: DefaultEmbedderDimension,
		EmbedBatchSize:    128,
		EmbedRPS:          5,
		ChunkTargetSize:   1000,
		ChunkOverlap:      180,
		SearchLanguage:    "english",
		VectorWeight:      0.7,
		TextWeight:        0.3,
		PostgresHost:      "localhost",
		PostgresPort:      5432,
		PostgresUser:      "corpus",
		PostgresPassword:  "a_strong_password",
		PostgresDBName:    "corpus",
		PostgresSSLMode:   "disable",
		ServerAddr:        "127.0.0.1:3500",
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"empty embedder model", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedder},
		{"zero dimension", func(c *Config) { c.EmbedderDimension = 0 }, ErrInvalidEmbedder},
		{"huge dimension", func(c *Config) { c.EmbedderDimension = 100000 }, ErrInvalidEmbedder},
		{"zero batch size", func(c *Config) { c.EmbedBatchSize = 0 }, ErrInvalidEmbedder},
		{"zero rps", func(c *Config) { c.EmbedRPS = 0 }, ErrInvalidEmbedder},
		{"zero chunk target", func(c *Config) { c.ChunkTargetSize = 0 }, ErrInvalidChunking},
		{"overlap >= target", func(c *Config) { c.ChunkOverlap = c.ChunkTargetSize }, ErrInvalidChunking},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, ErrInvalidChunking},
		{"negative vector weight", func(c *Config) { c.VectorWeight = -0.1 }, ErrInvalidWeights},
		{"negative text weight", func(c *Config) { c.TextWeight = -1 }, ErrInvalidWeights},
		{"all-zero weights", func(c *Config) { c.VectorWeight = 0; c.TextWeight = 0 }, ErrInvalidWeights},
		{"empty host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"port too low", func(c *Config) { c.PostgresPort = 0 }, ErrInvalidPostgresPort},
		{"port too high", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"empty password", func(c *Config) { c.PostgresPassword = "" }, ErrInvalidPostgresPassword},
		{"short password", func(c *Config) { c.PostgresPassword = "short" }, ErrInvalidPostgresPassword},
		{"deprecated ssl mode", func(c *Config) { c.PostgresSSLMode = "prefer" }, ErrInvalidPostgresSSLMode},
		{"bogus ssl mode", func(c *Config) { c.PostgresSSLMode = "yes" }, ErrInvalidPostgresSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if !errors.Is(cfg.Validate(), ErrConfigNil) {
		t.Error("expected ErrConfigNil")
	}
}

func TestValidate_RequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	err := validConfig().Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}
