package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/vector"
)

func MakeEndpoints(nc *nats.Conn, prefix string) *ragblade.EndpointSet {
	return &ragblade.EndpointSet{
		AddDocuments:  AddDocumentsEndpoint(nc, prefix+".add_documents"),
		Query:         QueryEndpoint(nc, prefix+".query"),
		ListIDs:       ListIDsEndpoint(nc, prefix+".list_ids"),
		Count:         CountEndpoint(nc, prefix+".count"),
		SetCollection: SetCollectionEndpoint(nc, prefix+".set_collection"),
		Reset:         ResetEndpoint(nc, prefix+".reset"),
	}
}

// DefaultTimeout bounds requests whose context carries no deadline.
var DefaultTimeout = time.Minute

func call(ctx context.Context, nc *nats.Conn, topic string, req any) (*nats.Msg, error) {
	var data []byte
	if req != nil {
		bs, err := json.Marshal(req)
		if err != nil {
			return nil, err
		}

		data = bs
	}

	return natsRequest(ctx, nc, topic, data)
}

func natsRequest(ctx context.Context, nc *nats.Conn, topic string, data []byte) (*nats.Msg, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	msg, err := nc.RequestWithContext(ctx, topic, data)
	if err != nil {
		return nil, err
	}

	if err := Error(msg); err != nil {
		return nil, err
	}

	return msg, nil
}

func AddDocumentsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.AddDocumentsRequest)
		if !ok {
			return nil, ragblade.ErrInvalidRequest
		}

		resp, err := call(ctx, nc, topic, &req)
		if err != nil {
			return nil, err
		}

		var ids []string
		if err := json.Unmarshal(resp.Data, &ids); err != nil {
			return nil, err
		}

		return ids, nil
	}
}

func QueryEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.QueryRequest)
		if !ok {
			return nil, ragblade.ErrInvalidRequest
		}

		resp, err := call(ctx, nc, topic, &req)
		if err != nil {
			return nil, err
		}

		var results []string
		if err := json.Unmarshal(resp.Data, &results); err != nil {
			return nil, err
		}

		return results, nil
	}
}

func ListIDsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.ListIDsRequest)
		if !ok {
			return nil, ragblade.ErrInvalidRequest
		}

		resp, err := call(ctx, nc, topic, &req)
		if err != nil {
			return nil, err
		}

		var ids []string
		if err := json.Unmarshal(resp.Data, &ids); err != nil {
			return nil, err
		}

		return ids, nil
	}
}

func CountEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := call(ctx, nc, topic, nil)
		if err != nil {
			return nil, err
		}

		var n int
		if err := json.Unmarshal(resp.Data, &n); err != nil {
			return nil, err
		}

		return n, nil
	}
}

func SetCollectionEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.SetCollectionRequest)
		if !ok {
			return nil, ragblade.ErrInvalidRequest
		}

		resp, err := natsRequest(ctx, nc, topic, []byte(req.Name))
		if err != nil {
			return nil, err
		}

		return string(resp.Data), nil
	}
}

func ResetEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ragblade.ResetRequest)
		if !ok {
			return nil, ragblade.ErrInvalidRequest
		}

		resp, err := call(ctx, nc, topic, &req)
		if err != nil {
			return nil, err
		}

		return string(resp.Data), nil
	}
}

// Error turns a micro error reply back into an error. Replies with code 400
// wrap vector.ErrInput, and known service errors are restored by message.
func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	switch description {
	case ragblade.ErrResetNotConfirmed.Error():
		return ragblade.ErrResetNotConfirmed
	case ragblade.ErrEmptyQuery.Error():
		return ragblade.ErrEmptyQuery
	case ragblade.ErrEmptyDocument.Error():
		return ragblade.ErrEmptyDocument
	case vector.ErrInvalidCollectionName.Error():
		return vector.ErrInvalidCollectionName
	}

	if code == "400" {
		return fmt.Errorf("%w: %s", vector.ErrInput, description)
	}

	return errors.New(code + ":" + description)
}
