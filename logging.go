package ragblade

import (
	"context"

	"go.uber.org/zap"

	"github.com/flarexio/ragblade/vector"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "ragblade"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	log := mw.log.With(
		zap.String("action", "add_documents"),
		zap.Int("documents", len(docs)),
	)

	ids, err := mw.next.AddDocuments(ctx, docs)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("documents added", zap.Int("count", len(ids)))
	return ids, nil
}

func (mw *loggingMiddleware) Query(ctx context.Context, query string, k int, where vector.Filter) ([]string, error) {
	log := mw.log.With(
		zap.String("action", "query"),
		zap.String("query", query),
	)

	if k > 0 {
		log = log.With(
			zap.Int("k", k),
		)
	}

	if len(where) > 0 {
		log = log.With(
			zap.Any("where", where),
		)
	}

	results, err := mw.next.Query(ctx, query, k, where)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("documents queried", zap.Int("count", len(results)))
	return results, nil
}

func (mw *loggingMiddleware) ListIDs(ctx context.Context, opts vector.GetOptions) ([]string, error) {
	log := mw.log.With(
		zap.String("action", "list_ids"),
	)

	if opts.Limit > 0 {
		log = log.With(
			zap.Int("limit", opts.Limit),
		)
	}

	ids, err := mw.next.ListIDs(ctx, opts)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("ids listed", zap.Int("count", len(ids)))
	return ids, nil
}

func (mw *loggingMiddleware) Count(ctx context.Context) (int, error) {
	log := mw.log.With(
		zap.String("action", "count"),
	)

	n, err := mw.next.Count(ctx)
	if err != nil {
		log.Error(err.Error())
		return 0, err
	}

	log.Debug("documents counted", zap.Int("count", n))
	return n, nil
}

func (mw *loggingMiddleware) SetCollection(ctx context.Context, name string) error {
	log := mw.log.With(
		zap.String("action", "set_collection"),
		zap.String("collection", name),
	)

	err := mw.next.SetCollection(ctx, name)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("collection set")
	return nil
}

func (mw *loggingMiddleware) Reset(ctx context.Context, confirm bool) error {
	log := mw.log.With(
		zap.String("action", "reset"),
		zap.Bool("confirm", confirm),
	)

	err := mw.next.Reset(ctx, confirm)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Warn("collection reset")
	return nil
}
