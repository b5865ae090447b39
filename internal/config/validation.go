package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Validate validates configuration values. Returns sentinel errors checkable
// with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// The embedding provider key is required for every ingest and query path.
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedder)
	}
	if c.EmbedderDimension < 1 || c.EmbedderDimension > 4096 {
		return fmt.Errorf("%w: embedder_dimension must be between 1 and 4096, got %d",
			ErrInvalidEmbedder, c.EmbedderDimension)
	}
	if c.EmbedBatchSize < 1 || c.EmbedBatchSize > 1000 {
		return fmt.Errorf("%w: embed_batch_size must be between 1 and 1000, got %d",
			ErrInvalidEmbedder, c.EmbedBatchSize)
	}
	if c.EmbedRPS <= 0 {
		return fmt.Errorf("%w: embed_rps must be positive, got %g", ErrInvalidEmbedder, c.EmbedRPS)
	}

	if c.ChunkTargetSize < 1 {
		return fmt.Errorf("%w: chunk_target_size must be positive, got %d",
			ErrInvalidChunking, c.ChunkTargetSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkTargetSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_target_size), got %d",
			ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.VectorWeight < 0 || c.TextWeight < 0 {
		return fmt.Errorf("%w: weights must be non-negative, got %g/%g",
			ErrInvalidWeights, c.VectorWeight, c.TextWeight)
	}
	if c.VectorWeight+c.TextWeight <= 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidWeights)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "corpus_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"warning", "change postgres_password for production deployments")
	}
	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// Deprecated allow/prefer modes are excluded (MITM vulnerable).
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
