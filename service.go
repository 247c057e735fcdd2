package ragblade

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/flarexio/ragblade/vector"
)

// Service defines the core logic of RAGBlade.
type Service interface {

	// Close releases the vector database.
	Close() error

	// AddDocuments stores the documents that are not stored yet and returns
	// the ids that were added. Documents without an id get one derived from
	// their content.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Query returns the content of the k documents nearest to the query.
	Query(ctx context.Context, query string, k int, where vector.Filter) ([]string, error)

	// ListIDs returns the stored document ids.
	ListIDs(ctx context.Context, opts vector.GetOptions) ([]string, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// SetCollection renames the collection. The new name applies from the next Reset.
	SetCollection(ctx context.Context, name string) error

	// Reset deletes every stored document. It refuses unless confirm is true.
	Reset(ctx context.Context, confirm bool) error
}

type ServiceMiddleware func(Service) Service

func NewService(ctx context.Context, cfg Config, db vector.VectorDB, embedder vector.Embedder) (Service, error) {
	if db == nil {
		return nil, ErrVectorDBNotSet
	}

	cfg.ApplyDefaults()

	db.SetEmbedder(embedder)

	if err := db.Initialize(ctx); err != nil {
		return nil, err
	}

	return &service{
		db:  db,
		cfg: cfg,
		log: zap.L().With(
			zap.String("service", "ragblade"),
		),
	}, nil
}

type service struct {
	db vector.VectorDB
	mu sync.RWMutex

	cfg Config
	log *zap.Logger
}

func (svc *service) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.db.Close()
}

func (svc *service) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	log := svc.log.With(
		zap.String("action", "add_documents"),
	)

	var (
		documents []string
		metadatas []vector.Metadata
		ids       []string
		seen      = make(map[string]struct{}, len(docs))
	)

	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			return nil, ErrEmptyDocument
		}

		id := doc.ID
		if id == "" {
			id = DocumentID(doc.Content)
		}

		if _, ok := seen[id]; ok {
			log.Debug("duplicate document in batch", zap.String("id", id))
			continue
		}

		seen[id] = struct{}{}

		metadata := doc.Metadata
		if metadata == nil {
			metadata = vector.Metadata{}
		}

		documents = append(documents, doc.Content)
		metadatas = append(metadatas, metadata)
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return []string{}, nil
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	existing, err := svc.db.Get(ctx, vector.GetOptions{IDs: ids})
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		stored := make(map[string]struct{}, len(existing))
		for _, id := range existing {
			stored[id] = struct{}{}
		}

		n := 0
		for i, id := range ids {
			if _, ok := stored[id]; ok {
				continue
			}

			documents[n] = documents[i]
			metadatas[n] = metadatas[i]
			ids[n] = id
			n++
		}

		documents, metadatas, ids = documents[:n], metadatas[:n], ids[:n]

		log.Info("skipped stored documents", zap.Int("count", len(existing)))
	}

	if len(ids) == 0 {
		return []string{}, nil
	}

	if err := svc.db.Add(ctx, documents, metadatas, ids); err != nil {
		return nil, err
	}

	return ids, nil
}

func (svc *service) Query(ctx context.Context, query string, k int, where vector.Filter) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	if k <= 0 {
		k = svc.cfg.DefaultK
	}

	svc.mu.RLock()
	defer svc.mu.RUnlock()

	return svc.db.Query(ctx, []string{query}, k, where)
}

func (svc *service) ListIDs(ctx context.Context, opts vector.GetOptions) ([]string, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	return svc.db.Get(ctx, opts)
}

func (svc *service) Count(ctx context.Context) (int, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	return svc.db.Count(ctx)
}

func (svc *service) SetCollection(ctx context.Context, name string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.db.SetCollectionName(name); err != nil {
		return err
	}

	svc.cfg.Vector.Collection = name
	return nil
}

func (svc *service) Reset(ctx context.Context, confirm bool) error {
	if !confirm {
		return ErrResetNotConfirmed
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.db.Reset(ctx)
}
