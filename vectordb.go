package ragblade

import (
	"context"
	"fmt"

	"github.com/flarexio/ragblade/persistence/chromem"
	"github.com/flarexio/ragblade/persistence/pinecone"
	"github.com/flarexio/ragblade/persistence/qdrant"
	"github.com/flarexio/ragblade/vector"
)

// NewVectorDB opens the configured backend with the shared vector settings.
func NewVectorDB(ctx context.Context, cfg Config) (vector.VectorDB, error) {
	cfg.ApplyDefaults()

	switch cfg.Backend {
	case BackendPinecone:
		c := cfg.Pinecone
		c.Vector = cfg.Vector
		return pinecone.NewPineconeVectorDB(ctx, c)

	case BackendQdrant:
		c := cfg.Qdrant
		c.Vector = cfg.Vector
		return qdrant.NewQdrantVectorDB(ctx, c)

	case BackendChromem:
		c := cfg.Chromem
		c.Vector = cfg.Vector
		return chromem.NewChromemVectorDB(c)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}
