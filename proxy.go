package ragblade

import (
	"context"
	"errors"

	"github.com/flarexio/ragblade/vector"
)

var ErrInvalidResponse = errors.New("invalid response type")

// ProxyMiddleware serves the Service through remote endpoints, ignoring next.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	req := AddDocumentsRequest{
		Documents: docs,
	}

	resp, err := mw.endpoints.AddDocuments(ctx, req)
	if err != nil {
		return nil, err
	}

	ids, ok := resp.([]string)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return ids, nil
}

func (mw *proxyMiddleware) Query(ctx context.Context, query string, k int, where vector.Filter) ([]string, error) {
	req := QueryRequest{
		Query: query,
		K:     k,
		Where: where,
	}

	resp, err := mw.endpoints.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	results, ok := resp.([]string)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return results, nil
}

func (mw *proxyMiddleware) ListIDs(ctx context.Context, opts vector.GetOptions) ([]string, error) {
	resp, err := mw.endpoints.ListIDs(ctx, opts)
	if err != nil {
		return nil, err
	}

	ids, ok := resp.([]string)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return ids, nil
}

func (mw *proxyMiddleware) Count(ctx context.Context) (int, error) {
	resp, err := mw.endpoints.Count(ctx, nil)
	if err != nil {
		return 0, err
	}

	n, ok := resp.(int)
	if !ok {
		return 0, ErrInvalidResponse
	}

	return n, nil
}

func (mw *proxyMiddleware) SetCollection(ctx context.Context, name string) error {
	req := SetCollectionRequest{
		Name: name,
	}

	_, err := mw.endpoints.SetCollection(ctx, req)
	return err
}

func (mw *proxyMiddleware) Reset(ctx context.Context, confirm bool) error {
	req := ResetRequest{
		Confirm: confirm,
	}

	_, err := mw.endpoints.Reset(ctx, req)
	return err
}
