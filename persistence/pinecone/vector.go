package pinecone

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade/vector"
)

const (
	listPageSize = 100

	// maxTopK is the largest top_k Pinecone accepts for a query.
	maxTopK = 10000
)

var ErrIndexNotReady = errors.New("pinecone index not ready")

// NewPineconeVectorDB connects to Pinecone and ensures the index derived from
// the collection name and dimension exists before returning.
func NewPineconeVectorDB(ctx context.Context, cfg Config) (vector.VectorDB, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	return newPineconeVectorDB(ctx, cfg, c)
}

func newPineconeVectorDB(ctx context.Context, cfg Config, c controlPlane) (*pineconeVectorDB, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db := &pineconeVectorDB{
		cfg:          cfg,
		client:       c,
		pollInterval: cfg.PollInterval,
		log: zap.L().With(
			zap.String("component", "vector"),
			zap.String("provider", "pinecone"),
		),
	}

	if err := db.ensureIndex(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

type pineconeVectorDB struct {
	cfg    Config
	client controlPlane

	indexName  string
	serverless bool
	index      dataPlane

	embedder    vector.Embedder
	initialized bool
	closed      bool

	pollInterval time.Duration
	log          *zap.Logger
}

// ensureIndex creates the derived index when it does not exist yet and
// opens a data plane connection to it.
func (db *pineconeVectorDB) ensureIndex(ctx context.Context) error {
	name := db.cfg.Vector.IndexName()

	log := db.log.With(
		zap.String("action", "ensure_index"),
		zap.String("index", name),
	)

	exists, err := db.indexExists(ctx, name)
	if err != nil {
		return err
	}

	if !exists {
		if err := db.createIndex(ctx, name); err != nil {
			return err
		}

		log.Info("index created")
	}

	idx, err := db.waitReady(ctx, name)
	if err != nil {
		return err
	}

	conn, err := db.client.Connect(idx.Host, db.cfg.Namespace)
	if err != nil {
		return err
	}

	if db.index != nil {
		db.index.Close()
	}

	db.indexName = name
	db.serverless = idx.Spec != nil && idx.Spec.Serverless != nil
	db.index = conn

	log.Info("index connected", zap.String("host", idx.Host))
	return nil
}

func (db *pineconeVectorDB) indexExists(ctx context.Context, name string) (bool, error) {
	indexes, err := db.client.ListIndexes(ctx)
	if err != nil {
		return false, err
	}

	return slices.ContainsFunc(indexes, func(idx *pinecone.Index) bool {
		return idx != nil && idx.Name == name
	}), nil
}

func (db *pineconeVectorDB) createIndex(ctx context.Context, name string) error {
	dimension := int32(db.cfg.Vector.Dimension)
	metric := pinecone.IndexMetric(db.cfg.Vector.Metric)

	if db.cfg.serverless() {
		_, err := db.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
			Name:      name,
			Dimension: dimension,
			Metric:    metric,
			Cloud:     pinecone.Cloud(db.cfg.Cloud),
			Region:    db.cfg.Region,
		})

		return err
	}

	_, err := db.client.CreatePodIndex(ctx, &pinecone.CreatePodIndexRequest{
		Name:        name,
		Dimension:   dimension,
		Metric:      metric,
		Environment: db.cfg.Environment,
		PodType:     db.cfg.PodType,
	})

	return err
}

func (db *pineconeVectorDB) waitReady(ctx context.Context, name string) (*pinecone.Index, error) {
	ctx, cancel := context.WithTimeout(ctx, db.cfg.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(db.pollInterval)
	defer ticker.Stop()

	for {
		idx, err := db.client.DescribeIndex(ctx, name)
		if err != nil {
			return nil, err
		}

		if idx.Status == nil || idx.Status.Ready {
			return idx, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrIndexNotReady, name, ctx.Err())

		case <-ticker.C:
		}
	}
}

func (db *pineconeVectorDB) SetEmbedder(embedder vector.Embedder) {
	db.embedder = embedder
}

func (db *pineconeVectorDB) Initialize(ctx context.Context) error {
	if db.embedder == nil {
		return vector.ErrEmbedderNotSet
	}

	db.initialized = true
	return nil
}

func (db *pineconeVectorDB) ready() error {
	if db.closed {
		return vector.ErrClosed
	}

	if !db.initialized {
		return vector.ErrNotInitialized
	}

	if db.index == nil {
		return fmt.Errorf("%w: index %s not connected, reset to recreate it", vector.ErrNotInitialized, db.indexName)
	}

	return nil
}

// topK clamps n to the range Pinecone accepts.
func topK(n int) uint32 {
	return uint32(min(max(n, 1), maxTopK))
}

func (db *pineconeVectorDB) Get(ctx context.Context, opts vector.GetOptions) ([]string, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}

	var (
		ids []string
		err error
	)

	switch {
	case len(opts.Where) > 0:
		ids, err = db.queryIDs(ctx, opts.Where)
		if err == nil && len(opts.IDs) > 0 {
			ids = vector.Intersect(ids, opts.IDs)
		}

	case len(opts.IDs) > 0:
		ids, err = db.fetchIDs(ctx, opts.IDs)

	case db.serverless:
		ids, err = db.listIDs(ctx, opts.Limit)

	default:
		ids, err = db.queryIDs(ctx, nil)
	}

	if err != nil {
		return nil, err
	}

	slices.Sort(ids)
	return vector.Limit(slices.Compact(ids), opts.Limit), nil
}

// listIDs pages through every id in the namespace. Only serverless indexes
// support listing.
func (db *pineconeVectorDB) listIDs(ctx context.Context, limit int) ([]string, error) {
	var (
		ids   []string
		token *string
	)

	for {
		pageSize := uint32(listPageSize)
		resp, err := db.index.ListVectors(ctx, &pinecone.ListVectorsRequest{
			Limit:           &pageSize,
			PaginationToken: token,
		})

		if err != nil {
			return nil, err
		}

		for _, id := range resp.VectorIds {
			if id != nil {
				ids = append(ids, *id)
			}
		}

		if limit > 0 && len(ids) >= limit {
			return ids, nil
		}

		if resp.NextPaginationToken == nil || *resp.NextPaginationToken == "" {
			return ids, nil
		}

		token = resp.NextPaginationToken
	}
}

func (db *pineconeVectorDB) fetchIDs(ctx context.Context, ids []string) ([]string, error) {
	resp, err := db.index.FetchVectors(ctx, ids)
	if err != nil {
		return nil, err
	}

	found := make([]string, 0, len(resp.Vectors))
	for id := range resp.Vectors {
		found = append(found, id)
	}

	return found, nil
}

// queryIDs approximates a listing with a zero-vector similarity query. It may
// miss ids when the service caps top_k.
func (db *pineconeVectorDB) queryIDs(ctx context.Context, where vector.Filter) ([]string, error) {
	count, err := db.Count(ctx)
	if err != nil {
		return nil, err
	}

	filter, err := toFilter(where)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrInput, err)
	}

	resp, err := db.index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:         make([]float32, db.cfg.Vector.Dimension),
		TopK:           topK(count),
		MetadataFilter: filter,
	})

	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		if match != nil && match.Vector != nil {
			ids = append(ids, match.Vector.Id)
		}
	}

	return ids, nil
}

func (db *pineconeVectorDB) Add(ctx context.Context, documents []string, metadatas []vector.Metadata, ids []string) error {
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

	vectors := make([]*pinecone.Vector, len(documents))
	for i, text := range documents {
		metadata, err := toMetadata(vector.WithText(metadatas[i], text))
		if err != nil {
			return fmt.Errorf("%w: metadata of %q: %w", vector.ErrInput, ids[i], err)
		}

		vectors[i] = &pinecone.Vector{
			Id:       ids[i],
			Values:   embeddings[i],
			Metadata: metadata,
		}
	}

	_, err = db.index.UpsertVectors(ctx, vectors)
	return err
}

func (db *pineconeVectorDB) Query(ctx context.Context, queries []string, nResults int, where vector.Filter) ([]string, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}

	if err := vector.ValidateQuery(queries, nResults); err != nil {
		return nil, err
	}

	embeddings, err := vector.Embed(ctx, db.embedder, queries[:1])
	if err != nil {
		return nil, err
	}

	filter, err := toFilter(where)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrInput, err)
	}

	resp, err := db.index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          embeddings[0],
		TopK:            topK(nResults),
		MetadataFilter:  filter,
		IncludeMetadata: true,
	})

	if err != nil {
		return nil, err
	}

	contents := make([]string, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		if match == nil || match.Vector == nil {
			continue
		}

		text, ok := textOf(match.Vector)
		if !ok {
			return nil, fmt.Errorf("%w: %s", vector.ErrMissingText, match.Vector.Id)
		}

		contents = append(contents, text)
	}

	return vector.Limit(contents, nResults), nil
}

func (db *pineconeVectorDB) SetCollectionName(name string) error {
	if name == "" {
		return vector.ErrInvalidCollectionName
	}

	db.cfg.Vector.Collection = name
	return nil
}

func (db *pineconeVectorDB) Count(ctx context.Context) (int, error) {
	if err := db.ready(); err != nil {
		return 0, err
	}

	stats, err := db.index.DescribeIndexStats(ctx)
	if err != nil {
		return 0, err
	}

	if ns := db.cfg.Namespace; ns != "" {
		summary, ok := stats.Namespaces[ns]
		if !ok || summary == nil {
			return 0, nil
		}

		return int(summary.VectorCount), nil
	}

	return int(stats.TotalVectorCount), nil
}

// Reset deletes the connected index and recreates the index derived from the
// current configuration. An index already gone, e.g. after a failed reset, is
// not deleted again.
func (db *pineconeVectorDB) Reset(ctx context.Context) error {
	if db.closed {
		return vector.ErrClosed
	}

	if !db.initialized {
		return vector.ErrNotInitialized
	}

	name := db.indexName

	log := db.log.With(
		zap.String("action", "reset"),
		zap.String("index", name),
	)

	exists, err := db.indexExists(ctx, name)
	if err != nil {
		return err
	}

	if exists {
		if err := db.client.DeleteIndex(ctx, name); err != nil {
			return err
		}

		log.Warn("index deleted")
	}

	if db.index != nil {
		db.index.Close()
		db.index = nil
	}

	if err := db.waitDeleted(ctx, name); err != nil {
		return err
	}

	return db.ensureIndex(ctx)
}

// waitDeleted blocks until the index no longer shows up in the index list.
func (db *pineconeVectorDB) waitDeleted(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, db.cfg.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(db.pollInterval)
	defer ticker.Stop()

	for {
		exists, err := db.indexExists(ctx, name)
		if err != nil {
			return err
		}

		if !exists {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("index %s still terminating: %w", name, ctx.Err())

		case <-ticker.C:
		}
	}
}

func (db *pineconeVectorDB) Close() error {
	db.closed = true

	if db.index == nil {
		return nil
	}

	err := db.index.Close()
	db.index = nil
	return err
}
