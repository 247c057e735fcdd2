package chromem

import (
	"context"
	"fmt"
	"slices"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade/vector"
)

// NewChromemVectorDB opens an in-process chromem-go database, in memory or
// backed by files under cfg.Path.
func NewChromemVectorDB(cfg Config) (vector.VectorDB, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, err
		}

		db = d
	}

	v := &chromemVectorDB{
		cfg: cfg,
		db:  db,
		log: zap.L().With(
			zap.String("component", "vector"),
			zap.String("provider", "chromem"),
		),
	}

	if err := v.ensureCollection(); err != nil {
		return nil, err
	}

	return v, nil
}

type chromemVectorDB struct {
	cfg Config
	db  *chromem.DB

	name       string
	collection *chromem.Collection

	embedder    vector.Embedder
	initialized bool
	closed      bool

	log *zap.Logger
}

func (v *chromemVectorDB) ensureCollection() error {
	name := v.cfg.Vector.IndexName()

	c, err := v.db.GetOrCreateCollection(name, nil, v.embed)
	if err != nil {
		return err
	}

	v.name = name
	v.collection = c
	return nil
}

// embed lets chromem embed single texts with the attached embedder instead of
// its default OpenAI function.
func (v *chromemVectorDB) embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := vector.Embed(ctx, v.embedder, []string{text})
	if err != nil {
		return nil, err
	}

	return embeddings[0], nil
}

func (v *chromemVectorDB) SetEmbedder(embedder vector.Embedder) {
	v.embedder = embedder
}

func (v *chromemVectorDB) Initialize(ctx context.Context) error {
	if v.embedder == nil {
		return vector.ErrEmbedderNotSet
	}

	v.initialized = true
	return nil
}

func (v *chromemVectorDB) ready() error {
	if v.closed {
		return vector.ErrClosed
	}

	if !v.initialized {
		return vector.ErrNotInitialized
	}

	return nil
}

func (v *chromemVectorDB) Get(ctx context.Context, opts vector.GetOptions) ([]string, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}

	var (
		ids []string
		err error
	)

	if len(opts.IDs) > 0 && len(opts.Where) == 0 {
		ids = v.findIDs(ctx, opts.IDs)
	} else {
		ids, err = v.listIDs(ctx, opts.Where)
		if err == nil && len(opts.IDs) > 0 {
			ids = vector.Intersect(ids, opts.IDs)
		}
	}

	if err != nil {
		return nil, err
	}

	slices.Sort(ids)
	return vector.Limit(slices.Compact(ids), opts.Limit), nil
}

func (v *chromemVectorDB) findIDs(ctx context.Context, ids []string) []string {
	found := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}

		if _, err := v.collection.GetByID(ctx, id); err == nil {
			found = append(found, id)
		}
	}

	return found
}

// listIDs runs an exhaustive query over the whole collection. chromem scans
// every document, so the listing is exact.
func (v *chromemVectorDB) listIDs(ctx context.Context, where vector.Filter) ([]string, error) {
	filter, err := toWhere(where)
	if err != nil {
		return nil, err
	}

	count := v.collection.Count()
	if count == 0 {
		return []string{}, nil
	}

	probe := make([]float32, v.cfg.Vector.Dimension)
	probe[0] = 1

	results, err := v.collection.QueryEmbedding(ctx, probe, count, filter, nil)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(results))
	for i, result := range results {
		ids[i] = result.ID
	}

	return ids, nil
}

func (v *chromemVectorDB) Add(ctx context.Context, documents []string, metadatas []vector.Metadata, ids []string) error {
	if err := v.ready(); err != nil {
		return err
	}

	if err := vector.ValidateBatch(documents, metadatas, ids); err != nil {
		return err
	}

	if len(documents) == 0 {
		return nil
	}

	embeddings, err := vector.Embed(ctx, v.embedder, documents)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(documents))
	for i, text := range documents {
		if len(embeddings[i]) != v.cfg.Vector.Dimension {
			return fmt.Errorf("%w: embedding of %q has dimension %d, want %d",
				vector.ErrConfiguration, ids[i], len(embeddings[i]), v.cfg.Vector.Dimension)
		}

		docs[i] = chromem.Document{
			ID:        ids[i],
			Metadata:  toMetadata(vector.WithText(metadatas[i], text)),
			Embedding: embeddings[i],
			Content:   text,
		}
	}

	return v.collection.AddDocuments(ctx, docs, v.cfg.Concurrency)
}

func (v *chromemVectorDB) Query(ctx context.Context, queries []string, nResults int, where vector.Filter) ([]string, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}

	if err := vector.ValidateQuery(queries, nResults); err != nil {
		return nil, err
	}

	filter, err := toWhere(where)
	if err != nil {
		return nil, err
	}

	embedding, err := v.embed(ctx, queries[0])
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults above the collection size.
	k := min(nResults, v.collection.Count())
	if k == 0 {
		return []string{}, nil
	}

	results, err := v.collection.QueryEmbedding(ctx, embedding, k, filter, nil)
	if err != nil {
		return nil, err
	}

	contents := make([]string, len(results))
	for i, result := range results {
		contents[i] = result.Content
	}

	return contents, nil
}

func (v *chromemVectorDB) SetCollectionName(name string) error {
	if name == "" {
		return vector.ErrInvalidCollectionName
	}

	v.cfg.Vector.Collection = name
	return nil
}

func (v *chromemVectorDB) Count(ctx context.Context) (int, error) {
	if err := v.ready(); err != nil {
		return 0, err
	}

	return v.collection.Count(), nil
}

// Reset drops the current collection and opens the collection derived from
// the current configuration.
func (v *chromemVectorDB) Reset(ctx context.Context) error {
	if err := v.ready(); err != nil {
		return err
	}

	log := v.log.With(
		zap.String("action", "reset"),
		zap.String("collection", v.name),
	)

	if err := v.db.DeleteCollection(v.name); err != nil {
		return err
	}

	log.Warn("collection deleted")

	return v.ensureCollection()
}

func (v *chromemVectorDB) Close() error {
	v.closed = true
	return nil
}
