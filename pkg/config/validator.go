package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Embedding.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Embedding.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.workers",
			Message: "workers must be at least 1",
		})
	}

	if !c.Embedding.Local {
		if _, err := url.Parse(c.Embedding.BaseURL); err != nil || c.Embedding.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "embedding.base_url",
				Message: "invalid embedding server URL",
			})
		}
	}

	switch c.Index.Backend {
	case "memory", "pgvector":
	default:
		errors = append(errors, ValidationError{
			Field:   "index.backend",
			Message: fmt.Sprintf("unknown backend %q, expected memory or pgvector", c.Index.Backend),
		})
	}

	switch c.Index.Metric {
	case "cosine", "l2":
	default:
		errors = append(errors, ValidationError{
			Field:   "index.metric",
			Message: fmt.Sprintf("unknown metric %q, expected cosine or l2", c.Index.Metric),
		})
	}

	if c.Index.Backend == "pgvector" {
		if c.Database.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "database URL is required for the pgvector backend",
			})
		} else if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Chunker.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Edgar.RateLimit <= 0 || c.Edgar.RateLimit > 10 {
		errors = append(errors, ValidationError{
			Field:   "edgar.rate_limit",
			Message: "rate_limit must be between 0 and 10 requests per second",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.MaxTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be positive",
		})
	}

	return errors
}
