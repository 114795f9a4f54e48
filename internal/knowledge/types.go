package knowledge

import (
	"time"
)

// VectorDimension is the embedding size the documents schema stores.
// Embedders that output larger vectors must be asked to truncate to this.
const VectorDimension int32 = 768

// Source type values for the source_type metadata key.
const (
	// SourceTypeFile marks content indexed from a local file.
	SourceTypeFile = "file"

	// SourceTypeText marks content submitted directly over the API.
	SourceTypeText = "text"

	// SourceTypeSeed marks the built-in language primer documents.
	SourceTypeSeed = "seed"
)

// Document is one unit of indexed heritage content.
type Document struct {
	ID        string            // content-hash identifier
	Content   string            // chunk text, embedded on Add
	Metadata  map[string]string // filterable metadata (source_type, file_name, ...)
	CreatedAt time.Time
}

// Result is a single search hit with its similarity score.
type Result struct {
	Document   Document
	Similarity float32 // cosine similarity, 1.0 = identical direction
}

// SearchOption configures Search using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	filter  map[string]string
	timeout time.Duration
}

// WithTopK sets the maximum number of results. Default 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter restricts results to documents whose metadata contains the
// key-value pair. Multiple calls AND together.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout bounds the embedding call and the vector query. Default 30s.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
