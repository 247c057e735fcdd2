// Package embedding turns embedding provider settings into a vector.Embedder.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"

	"github.com/flarexio/ragblade/vector"
)

type Provider string

const (
	ProviderOpenAI       Provider = "openai"
	ProviderOpenAICompat Provider = "openai-compat"
	ProviderOllama       Provider = "ollama"
	ProviderMistral      Provider = "mistral"
	ProviderJina         Provider = "jina"
	ProviderCohere       Provider = "cohere"
	ProviderMixedbread   Provider = "mixedbread"
	ProviderLocalAI      Provider = "localai"
)

var ErrUnknownProvider = fmt.Errorf("%w: unknown embedding provider", vector.ErrConfiguration)

type Config struct {
	Provider Provider `yaml:"provider"`
	Model    string   `yaml:"model"`
	BaseURL  string   `yaml:"baseURL"`
	APIKey   string   `yaml:"apiKey"`

	// Concurrency bounds the texts embedded at the same time.
	Concurrency int `yaml:"concurrency"`
}

func (cfg *Config) ApplyDefaults() {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}

	if cfg.Model == "" && cfg.Provider == ProviderOpenAI {
		cfg.Model = string(chromem.EmbeddingModelOpenAI3Small)
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
}

func (cfg Config) Validate() error {
	switch cfg.Provider {
	case ProviderOpenAI, ProviderMistral, ProviderJina, ProviderCohere, ProviderMixedbread:
		if cfg.APIKey == "" {
			return fmt.Errorf("%w: %s api key required", vector.ErrConfiguration, cfg.Provider)
		}

	case ProviderOpenAICompat:
		if cfg.BaseURL == "" {
			return fmt.Errorf("%w: base url required for %s", vector.ErrConfiguration, cfg.Provider)
		}

	case ProviderOllama, ProviderLocalAI:

	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderOpenAICompat, ProviderOllama, ProviderJina, ProviderCohere, ProviderMixedbread, ProviderLocalAI:
		if cfg.Model == "" {
			return fmt.Errorf("%w: model required for %s", vector.ErrConfiguration, cfg.Provider)
		}
	}

	return nil
}

// NewEmbedder builds the embedding function of the configured provider.
func NewEmbedder(cfg Config) (vector.Embedder, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var fn chromem.EmbeddingFunc
	switch cfg.Provider {
	case ProviderOpenAI:
		fn = chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(cfg.Model))
	case ProviderOpenAICompat:
		fn = chromem.NewEmbeddingFuncOpenAICompat(cfg.BaseURL, cfg.APIKey, cfg.Model, nil)
	case ProviderOllama:
		fn = chromem.NewEmbeddingFuncOllama(cfg.Model, cfg.BaseURL)
	case ProviderMistral:
		fn = chromem.NewEmbeddingFuncMistral(cfg.APIKey)
	case ProviderJina:
		fn = chromem.NewEmbeddingFuncJina(cfg.APIKey, chromem.EmbeddingModelJina(cfg.Model))
	case ProviderCohere:
		fn = chromem.NewEmbeddingFuncCohere(cfg.APIKey, chromem.EmbeddingModelCohere(cfg.Model))
	case ProviderMixedbread:
		fn = chromem.NewEmbeddingFuncMixedbread(cfg.APIKey, chromem.EmbeddingModelMixedbread(cfg.Model))
	case ProviderLocalAI:
		fn = chromem.NewEmbeddingFuncLocalAI(cfg.Model)
	}

	return NewFuncEmbedder(fn, cfg.Concurrency), nil
}

// NewFuncEmbedder adapts a single-text embedding function into a batch
// embedder running up to concurrency calls at once.
func NewFuncEmbedder(fn chromem.EmbeddingFunc, concurrency int) vector.Embedder {
	if concurrency <= 0 {
		concurrency = 1
	}

	return &funcEmbedder{fn, concurrency}
}

type funcEmbedder struct {
	fn          chromem.EmbeddingFunc
	concurrency int
}

func (e *funcEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.fn == nil {
		return nil, errors.New("embedding function not set")
	}

	embeddings := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, text := range texts {
		g.Go(func() error {
			embedding, err := e.fn(ctx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}

			embeddings[i] = embedding
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return embeddings, nil
}
