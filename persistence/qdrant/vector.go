package qdrant

import (
	"context"
	"fmt"
	"slices"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade/vector"
)

const scrollPageSize = 256

// NewQdrantVectorDB connects to Qdrant over gRPC and ensures the collection
// derived from the collection name and dimension exists.
func NewQdrantVectorDB(ctx context.Context, cfg Config) (vector.VectorDB, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	db, err := newQdrantVectorDB(ctx, cfg, c)
	if err != nil {
		c.Close()
		return nil, err
	}

	return db, nil
}

func newQdrantVectorDB(ctx context.Context, cfg Config, c pointsClient) (*qdrantVectorDB, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db := &qdrantVectorDB{
		cfg:    cfg,
		client: c,
		log: zap.L().With(
			zap.String("component", "vector"),
			zap.String("provider", "qdrant"),
		),
	}

	if err := db.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

type qdrantVectorDB struct {
	cfg    Config
	client pointsClient

	collection string

	embedder    vector.Embedder
	initialized bool
	closed      bool

	log *zap.Logger
}

func (db *qdrantVectorDB) ensureCollection(ctx context.Context) error {
	name := db.cfg.Vector.IndexName()

	log := db.log.With(
		zap.String("action", "ensure_collection"),
		zap.String("collection", name),
	)

	exists, err := db.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}

	if !exists {
		err := db.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(db.cfg.Vector.Dimension),
				Distance: distanceOf(db.cfg.Vector.Metric),
			}),
		})

		if err != nil {
			return fmt.Errorf("creating collection %s: %w", name, err)
		}

		log.Info("collection created")
	}

	db.collection = name
	return nil
}

func (db *qdrantVectorDB) SetEmbedder(embedder vector.Embedder) {
	db.embedder = embedder
}

func (db *qdrantVectorDB) Initialize(ctx context.Context) error {
	if db.embedder == nil {
		return vector.ErrEmbedderNotSet
	}

	db.initialized = true
	return nil
}

func (db *qdrantVectorDB) ready() error {
	if db.closed {
		return vector.ErrClosed
	}

	if !db.initialized {
		return vector.ErrNotInitialized
	}

	return nil
}

func (db *qdrantVectorDB) Get(ctx context.Context, opts vector.GetOptions) ([]string, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}

	var (
		ids []string
		err error
	)

	if len(opts.IDs) > 0 && len(opts.Where) == 0 {
		ids, err = db.fetchIDs(ctx, opts.IDs)
	} else {
		ids, err = db.scrollIDs(ctx, opts)
	}

	if err != nil {
		return nil, err
	}

	slices.Sort(ids)
	return vector.Limit(slices.Compact(ids), opts.Limit), nil
}

func (db *qdrantVectorDB) fetchIDs(ctx context.Context, ids []string) ([]string, error) {
	points := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		points[i] = pointID(id)
	}

	found, err := db.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: db.collection,
		Ids:            points,
		WithPayload:    qdrant.NewWithPayload(true),
	})

	if err != nil {
		return nil, err
	}

	return recordIDs(found), nil
}

// scrollIDs pages through every point matching the filter.
func (db *qdrantVectorDB) scrollIDs(ctx context.Context, opts vector.GetOptions) ([]string, error) {
	filter, err := toFilter(opts.Where)
	if err != nil {
		return nil, err
	}

	if len(opts.IDs) > 0 {
		points := make([]*qdrant.PointId, len(opts.IDs))
		for i, id := range opts.IDs {
			points[i] = pointID(id)
		}

		if filter == nil {
			filter = new(qdrant.Filter)
		}

		filter.Must = append(filter.Must, qdrant.NewHasID(points...))
	}

	var (
		ids    []string
		offset *qdrant.PointId
	)

	for {
		points, next, err := db.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: db.collection,
			Filter:         filter,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
		})

		if err != nil {
			return nil, err
		}

		ids = append(ids, recordIDs(points)...)

		if next == nil || len(points) == 0 {
			return ids, nil
		}

		offset = next
	}
}

func recordIDs(points []*qdrant.RetrievedPoint) []string {
	ids := make([]string, 0, len(points))
	for _, p := range points {
		if id, ok := stringOf(p.GetPayload(), IDKey); ok {
			ids = append(ids, id)
		}
	}

	return ids
}

func (db *qdrantVectorDB) Add(ctx context.Context, documents []string, metadatas []vector.Metadata, ids []string) error {
	if err := db.ready(); err != nil {
		return err
	}

	if err := vector.ValidateBatch(documents, metadatas, ids); err != nil {
		return err
	}

	if len(documents) == 0 {
		return nil
	}

	embeddings, err := vector.Embed(ctx, db.embedder, documents)
	if err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(documents))
	for i, text := range documents {
		payload, err := toPayload(ids[i], metadatas[i], text)
		if err != nil {
			return err
		}

		points[i] = &qdrant.PointStruct{
			Id:      pointID(ids[i]),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: payload,
		}
	}

	_, err = db.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})

	if err != nil {
		return fmt.Errorf("upserting points to collection %s: %w", db.collection, err)
	}

	return nil
}

func (db *qdrantVectorDB) Query(ctx context.Context, queries []string, nResults int, where vector.Filter) ([]string, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}

	if err := vector.ValidateQuery(queries, nResults); err != nil {
		return nil, err
	}

	filter, err := toFilter(where)
	if err != nil {
		return nil, err
	}

	embeddings, err := vector.Embed(ctx, db.embedder, queries[:1])
	if err != nil {
		return nil, err
	}

	points, err := db.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(embeddings[0]...),
		Limit:          qdrant.PtrOf(uint64(nResults)),
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})

	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", db.collection, err)
	}

	contents := make([]string, 0, len(points))
	for _, p := range points {
		text, ok := stringOf(p.GetPayload(), vector.TextKey)
		if !ok {
			id, _ := stringOf(p.GetPayload(), IDKey)
			return nil, fmt.Errorf("%w: %s", vector.ErrMissingText, id)
		}

		contents = append(contents, text)
	}

	return vector.Limit(contents, nResults), nil
}

func (db *qdrantVectorDB) SetCollectionName(name string) error {
	if name == "" {
		return vector.ErrInvalidCollectionName
	}

	db.cfg.Vector.Collection = name
	return nil
}

func (db *qdrantVectorDB) Count(ctx context.Context) (int, error) {
	if err := db.ready(); err != nil {
		return 0, err
	}

	n, err := db.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Exact:          qdrant.PtrOf(true),
	})

	if err != nil {
		return 0, err
	}

	return int(n), nil
}

// Reset drops the current collection and creates the collection derived
// from the current configuration. A collection already gone is not dropped
// again.
func (db *qdrantVectorDB) Reset(ctx context.Context) error {
	if err := db.ready(); err != nil {
		return err
	}

	name := db.collection

	log := db.log.With(
		zap.String("action", "reset"),
		zap.String("collection", name),
	)

	exists, err := db.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}

	if exists {
		if err := db.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("deleting collection %s: %w", name, err)
		}

		log.Warn("collection deleted")
	}

	return db.ensureCollection(ctx)
}

func (db *qdrantVectorDB) Close() error {
	if db.closed {
		return nil
	}

	db.closed = true
	return db.client.Close()
}
