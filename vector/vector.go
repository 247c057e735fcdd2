package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrConfiguration         = errors.New("configuration error")
	ErrInput                 = errors.New("input error")
	ErrNotInitialized        = errors.New("vector database not initialized")
	ErrClosed                = errors.New("vector database closed")
	ErrEmbedderNotSet        = fmt.Errorf("%w: embedder not set, call SetEmbedder before Initialize", ErrConfiguration)
	ErrInvalidCollectionName = fmt.Errorf("%w: collection name must be a non-empty string", ErrInput)
	ErrMissingText           = errors.New("match has no text metadata")
)

// TextKey is the metadata key holding the original document text.
const TextKey = "text"

type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricDotProduct Metric = "dotproduct"
	MetricEuclidean  Metric = "euclidean"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricCosine, MetricDotProduct, MetricEuclidean:
		return true
	default:
		return false
	}
}

type Config struct {
	Collection string `yaml:"collection"`
	Dimension  int    `yaml:"dimension"`
	Metric     Metric `yaml:"metric"`
}

// ApplyDefaults fills the metric when it is left empty.
func (cfg *Config) ApplyDefaults() {
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}
}

// Validate reports configuration problems without touching the network.
func (cfg Config) Validate() error {
	if cfg.Collection == "" {
		return fmt.Errorf("%w: collection name required", ErrConfiguration)
	}

	if cfg.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrConfiguration, cfg.Dimension)
	}

	if !cfg.Metric.Valid() {
		return fmt.Errorf("%w: unsupported metric %q", ErrConfiguration, cfg.Metric)
	}

	return nil
}

// IndexName derives the remote index name for the collection and dimension.
// The result only contains lowercase alphanumerics and "-".
func (cfg Config) IndexName() string {
	name := strings.ToLower(cfg.Collection + "-" + strconv.Itoa(cfg.Dimension))

	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, name)
}

type (
	Metadata map[string]any

	// Filter uses the Pinecone metadata filter syntax:
	// {"genre": "drama"}, {"genre": {"$eq": "drama"}}, {"year": {"$in": [2020, 2021]}}.
	Filter map[string]any
)

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type GetOptions struct {
	IDs   []string `json:"ids,omitempty"`
	Where Filter   `json:"where,omitempty"`
	Limit int      `json:"limit,omitempty"`
}

type VectorDB interface {
	// SetEmbedder attaches the embedder used by Add and Query.
	SetEmbedder(embedder Embedder)

	// Initialize checks that the database is ready to serve Add and Query.
	Initialize(ctx context.Context) error

	// Get returns the ids stored in the index, narrowed by the options.
	Get(ctx context.Context, opts GetOptions) ([]string, error)

	// Add embeds the documents and upserts them with their metadata and ids.
	Add(ctx context.Context, documents []string, metadatas []Metadata, ids []string) error

	// Query embeds the first query only and returns the text of the
	// nResults nearest records, in the order reported by the backend.
	Query(ctx context.Context, queries []string, nResults int, where Filter) ([]string, error)

	// SetCollectionName changes the collection used for the next index derivation.
	SetCollectionName(name string) error

	// Count returns the number of vectors stored in the index.
	Count(ctx context.Context) (int, error)

	// Reset deletes the index and recreates it empty.
	Reset(ctx context.Context) error

	Close() error
}

// ValidateBatch rejects batches whose documents, metadatas and ids differ in length.
func ValidateBatch(documents []string, metadatas []Metadata, ids []string) error {
	if len(documents) != len(metadatas) || len(documents) != len(ids) {
		return fmt.Errorf("%w: documents (%d), metadatas (%d) and ids (%d) must have equal lengths",
			ErrInput, len(documents), len(metadatas), len(ids))
	}

	return nil
}

// ValidateQuery rejects empty query lists and non-positive result counts.
func ValidateQuery(queries []string, nResults int) error {
	if len(queries) == 0 {
		return fmt.Errorf("%w: at least one query required", ErrInput)
	}

	if nResults <= 0 {
		return fmt.Errorf("%w: nResults must be positive, got %d", ErrInput, nResults)
	}

	return nil
}

// WithText copies the metadata and stores the document text under TextKey.
func WithText(metadata Metadata, text string) Metadata {
	m := make(Metadata, len(metadata)+1)
	for k, v := range metadata {
		m[k] = v
	}

	m[TextKey] = text
	return m
}

// Embed runs the embedder and checks that one vector came back per text.
func Embed(ctx context.Context, embedder Embedder, texts []string) ([][]float32, error) {
	if embedder == nil {
		return nil, ErrEmbedderNotSet
	}

	embeddings, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}

	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(texts))
	}

	return embeddings, nil
}

// Limit truncates ids to n when n is positive.
func Limit(ids []string, n int) []string {
	if n > 0 && len(ids) > n {
		return ids[:n]
	}

	return ids
}

// Intersect keeps the ids that also appear in allowed, preserving order.
func Intersect(ids []string, allowed []string) []string {
	set := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}

	return out
}
