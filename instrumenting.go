package ragblade

import (
	"context"
	"strconv"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/flarexio/ragblade/vector"
)

// InstrumentingMiddleware records request counts and latencies labelled by
// method and error, plus the number of documents added.
func InstrumentingMiddleware(requestCount metrics.Counter, requestLatency metrics.Histogram, documentsAdded metrics.Counter) ServiceMiddleware {
	return func(next Service) Service {
		return &instrumentingMiddleware{
			requestCount:   requestCount,
			requestLatency: requestLatency,
			documentsAdded: documentsAdded,
			next:           next,
		}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	documentsAdded metrics.Counter
	next           Service
}

func (mw *instrumentingMiddleware) observe(method string, begin time.Time, err error) {
	lvs := []string{"method", method, "error", strconv.FormatBool(err != nil)}
	mw.requestCount.With(lvs...).Add(1)
	mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
}

func (mw *instrumentingMiddleware) Close() error {
	return mw.next.Close()
}

func (mw *instrumentingMiddleware) AddDocuments(ctx context.Context, docs []Document) (ids []string, err error) {
	defer func(begin time.Time) {
		mw.observe("add_documents", begin, err)

		if err == nil {
			mw.documentsAdded.Add(float64(len(ids)))
		}
	}(time.Now())

	return mw.next.AddDocuments(ctx, docs)
}

func (mw *instrumentingMiddleware) Query(ctx context.Context, query string, k int, where vector.Filter) (results []string, err error) {
	defer func(begin time.Time) {
		mw.observe("query", begin, err)
	}(time.Now())

	return mw.next.Query(ctx, query, k, where)
}

func (mw *instrumentingMiddleware) ListIDs(ctx context.Context, opts vector.GetOptions) (ids []string, err error) {
	defer func(begin time.Time) {
		mw.observe("list_ids", begin, err)
	}(time.Now())

	return mw.next.ListIDs(ctx, opts)
}

func (mw *instrumentingMiddleware) Count(ctx context.Context) (n int, err error) {
	defer func(begin time.Time) {
		mw.observe("count", begin, err)
	}(time.Now())

	return mw.next.Count(ctx)
}

func (mw *instrumentingMiddleware) SetCollection(ctx context.Context, name string) (err error) {
	defer func(begin time.Time) {
		mw.observe("set_collection", begin, err)
	}(time.Now())

	return mw.next.SetCollection(ctx, name)
}

func (mw *instrumentingMiddleware) Reset(ctx context.Context, confirm bool) (err error) {
	defer func(begin time.Time) {
		mw.observe("reset", begin, err)
	}(time.Now())

	return mw.next.Reset(ctx, confirm)
}
