package ragblade

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/ragblade/vector"
)

var ErrInvalidRequest = errors.New("invalid request type")

type EndpointSet struct {
	AddDocuments  endpoint.Endpoint
	Query         endpoint.Endpoint
	ListIDs       endpoint.Endpoint
	Count         endpoint.Endpoint
	SetCollection endpoint.Endpoint
	Reset         endpoint.Endpoint
}

func MakeEndpoints(svc Service) *EndpointSet {
	return &EndpointSet{
		AddDocuments:  AddDocumentsEndpoint(svc),
		Query:         QueryEndpoint(svc),
		ListIDs:       ListIDsEndpoint(svc),
		Count:         CountEndpoint(svc),
		SetCollection: SetCollectionEndpoint(svc),
		Reset:         ResetEndpoint(svc),
	}
}

type AddDocumentsRequest struct {
	Documents []Document `json:"documents"`
}

func AddDocumentsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AddDocumentsRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.AddDocuments(ctx, req.Documents)
	}
}

type QueryRequest struct {
	Query string        `json:"query"`
	K     int           `json:"k,omitempty"`
	Where vector.Filter `json:"where,omitempty"`
}

func QueryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QueryRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.Query(ctx, req.Query, req.K, req.Where)
	}
}

type ListIDsRequest = vector.GetOptions

func ListIDsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ListIDsRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.ListIDs(ctx, req)
	}
}

func CountEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.Count(ctx)
	}
}

type SetCollectionRequest struct {
	Name string `json:"name"`
}

func SetCollectionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SetCollectionRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		err := svc.SetCollection(ctx, req.Name)
		return nil, err
	}
}

type ResetRequest struct {
	Confirm bool `json:"confirm"`
}

func ResetEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ResetRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		err := svc.Reset(ctx, req.Confirm)
		return nil, err
	}
}
