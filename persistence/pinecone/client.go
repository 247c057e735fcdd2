package pinecone

import (
	"context"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

// controlPlane is the subset of the Pinecone client used to manage indexes.
type controlPlane interface {
	ListIndexes(ctx context.Context) ([]*pinecone.Index, error)
	CreateServerlessIndex(ctx context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error)
	CreatePodIndex(ctx context.Context, in *pinecone.CreatePodIndexRequest) (*pinecone.Index, error)
	DescribeIndex(ctx context.Context, name string) (*pinecone.Index, error)
	DeleteIndex(ctx context.Context, name string) error
	Connect(host string, namespace string) (dataPlane, error)
}

// dataPlane is the subset of an index connection used for records.
type dataPlane interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error)
	ListVectors(ctx context.Context, in *pinecone.ListVectorsRequest) (*pinecone.ListVectorsResponse, error)
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

func newClient(cfg Config) (controlPlane, error) {
	params := pinecone.NewClientParams{
		ApiKey: cfg.APIKey,
		Host:   cfg.Host,
	}

	c, err := pinecone.NewClient(params)
	if err != nil {
		return nil, err
	}

	return &client{c}, nil
}

type client struct {
	*pinecone.Client
}

func (c *client) Connect(host string, namespace string) (dataPlane, error) {
	conn, err := c.Client.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: namespace,
	})

	if err != nil {
		return nil, err
	}

	return conn, nil
}
