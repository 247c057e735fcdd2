package ragblade

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/flarexio/ragblade/embedding"
	"github.com/flarexio/ragblade/persistence/chromem"
	"github.com/flarexio/ragblade/persistence/pinecone"
	"github.com/flarexio/ragblade/persistence/qdrant"
	"github.com/flarexio/ragblade/vector"
)

var (
	ErrVectorDBNotSet     = errors.New("vector database not set")
	ErrEmptyQuery         = fmt.Errorf("%w: query is empty", vector.ErrInput)
	ErrEmptyDocument      = fmt.Errorf("%w: document content is empty", vector.ErrInput)
	ErrResetNotConfirmed  = errors.New("reset not confirmed")
	ErrUnsupportedBackend = fmt.Errorf("%w: unsupported vector backend", vector.ErrConfiguration)
)

// DefaultK is the number of results returned when a query does not ask for a count.
const DefaultK = 5

type Backend string

const (
	BackendPinecone Backend = "pinecone"
	BackendQdrant   Backend = "qdrant"
	BackendChromem  Backend = "chromem"
)

type Config struct {
	Backend   Backend          `yaml:"backend"`
	Vector    vector.Config    `yaml:"vector"`
	Embedding embedding.Config `yaml:"embedding"`
	DefaultK  int              `yaml:"defaultK"`

	Pinecone pinecone.Config `yaml:"pinecone"`
	Qdrant   qdrant.Config   `yaml:"qdrant"`
	Chromem  chromem.Config  `yaml:"chromem"`
}

func (cfg *Config) ApplyDefaults() {
	if cfg.Backend == "" {
		cfg.Backend = BackendPinecone
	}

	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "embedchain_store"
	}

	if cfg.Vector.Dimension == 0 {
		cfg.Vector.Dimension = 1536
	}

	cfg.Vector.ApplyDefaults()

	if cfg.DefaultK <= 0 {
		cfg.DefaultK = DefaultK
	}
}

type Document struct {
	ID       string          `json:"id,omitempty"`
	Content  string          `json:"content"`
	Metadata vector.Metadata `json:"metadata,omitempty"`
}

// DocumentID derives a stable id from the document content.
func DocumentID(content string) string {
	hash := sha256.Sum256([]byte(content))
	return "doc_" + hex.EncodeToString(hash[:12])
}
