package pinecone

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"
	"strconv"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

var errIndexNotFound = errors.New("index not found")

// fakePinecone is an in-memory stand-in for the Pinecone control plane.
type fakePinecone struct {
	indexes map[string]*fakeIndex

	// terminating holds deleted indexes with the number of list calls they
	// still show up in.
	terminating map[string]int

	// createErrs fail the next create calls in order.
	createErrs []error

	// notReadyPolls is the number of describe calls a new index reports
	// not ready for. terminatingPolls is the same for list calls after a
	// delete.
	notReadyPolls    int
	terminatingPolls int

	created   []string
	deleted   []string
	lists     int
	describes int
}

func newFakePinecone() *fakePinecone {
	return &fakePinecone{
		indexes:     make(map[string]*fakeIndex),
		terminating: make(map[string]int),
	}
}

func (f *fakePinecone) ListIndexes(ctx context.Context) ([]*pinecone.Index, error) {
	f.lists++

	names := make([]string, 0, len(f.indexes))
	for name := range f.indexes {
		names = append(names, name)
	}

	for name, polls := range f.terminating {
		if polls <= 0 {
			delete(f.terminating, name)
			continue
		}

		f.terminating[name] = polls - 1
		names = append(names, name)
	}

	sort.Strings(names)

	indexes := make([]*pinecone.Index, len(names))
	for i, name := range names {
		idx, ok := f.indexes[name]
		if !ok {
			indexes[i] = &pinecone.Index{
				Name:   name,
				Status: &pinecone.IndexStatus{Ready: false},
			}
			continue
		}

		indexes[i] = idx.describe()
	}

	return indexes, nil
}

func (f *fakePinecone) createErr() error {
	if len(f.createErrs) == 0 {
		return nil
	}

	err := f.createErrs[0]
	f.createErrs = f.createErrs[1:]
	return err
}

func (f *fakePinecone) CreateServerlessIndex(ctx context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error) {
	if err := f.createErr(); err != nil {
		return nil, err
	}

	idx := &fakeIndex{
		name:       in.Name,
		dimension:  in.Dimension,
		metric:     in.Metric,
		serverless: true,
		pending:    f.notReadyPolls,
		records:    make(map[string]*pinecone.Vector),
	}

	f.indexes[in.Name] = idx
	f.created = append(f.created, in.Name)
	return idx.describe(), nil
}

func (f *fakePinecone) CreatePodIndex(ctx context.Context, in *pinecone.CreatePodIndexRequest) (*pinecone.Index, error) {
	if err := f.createErr(); err != nil {
		return nil, err
	}

	idx := &fakeIndex{
		name:      in.Name,
		dimension: in.Dimension,
		metric:    in.Metric,
		pending:   f.notReadyPolls,
		records:   make(map[string]*pinecone.Vector),
	}

	f.indexes[in.Name] = idx
	f.created = append(f.created, in.Name)
	return idx.describe(), nil
}

func (f *fakePinecone) DescribeIndex(ctx context.Context, name string) (*pinecone.Index, error) {
	f.describes++

	idx, ok := f.indexes[name]
	if !ok {
		return nil, errIndexNotFound
	}

	desc := idx.describe()
	if idx.pending > 0 {
		idx.pending--
		desc.Status = &pinecone.IndexStatus{Ready: false}
	}

	return desc, nil
}

func (f *fakePinecone) DeleteIndex(ctx context.Context, name string) error {
	if _, ok := f.indexes[name]; !ok {
		return errIndexNotFound
	}

	delete(f.indexes, name)
	f.deleted = append(f.deleted, name)

	if f.terminatingPolls > 0 {
		f.terminating[name] = f.terminatingPolls
	}

	return nil
}

func (f *fakePinecone) Connect(host string, namespace string) (dataPlane, error) {
	for _, idx := range f.indexes {
		if idx.host() == host {
			return idx, nil
		}
	}

	return nil, errIndexNotFound
}

type fakeIndex struct {
	name       string
	dimension  int32
	metric     pinecone.IndexMetric
	serverless bool
	pending    int
	records    map[string]*pinecone.Vector

	// namespaces adds per-namespace counts to the index stats.
	namespaces map[string]uint32

	queries []*pinecone.QueryByVectorValuesRequest
	closed  bool
}

func (idx *fakeIndex) host() string {
	return idx.name + ".svc.pinecone.test"
}

func (idx *fakeIndex) describe() *pinecone.Index {
	spec := &pinecone.IndexSpec{}
	if idx.serverless {
		spec.Serverless = &pinecone.ServerlessSpec{Cloud: pinecone.Aws, Region: "us-east-1"}
	} else {
		spec.Pod = &pinecone.PodSpec{Environment: "us-east1-gcp", PodType: "p1.x1"}
	}

	return &pinecone.Index{
		Name:      idx.name,
		Dimension: idx.dimension,
		Host:      idx.host(),
		Metric:    idx.metric,
		Spec:      spec,
		Status:    &pinecone.IndexStatus{Ready: true},
	}
}

func (idx *fakeIndex) UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error) {
	for _, v := range in {
		if len(v.Values) != int(idx.dimension) {
			return 0, errors.New("vector dimension mismatch")
		}

		idx.records[v.Id] = v
	}

	return uint32(len(in)), nil
}

func (idx *fakeIndex) QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	idx.queries = append(idx.queries, in)

	var matches []*pinecone.ScoredVector
	for _, v := range idx.records {
		if !matchesFilter(v.Metadata, in.MetadataFilter) {
			continue
		}

		scored := &pinecone.ScoredVector{
			Vector: &pinecone.Vector{Id: v.Id},
			Score:  similarity(in.Vector, v.Values),
		}

		if in.IncludeMetadata {
			scored.Vector.Metadata = v.Metadata
		}

		matches = append(matches, scored)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].Vector.Id < matches[j].Vector.Id
		}

		return matches[i].Score > matches[j].Score
	})

	if len(matches) > int(in.TopK) {
		matches = matches[:in.TopK]
	}

	return &pinecone.QueryVectorsResponse{Matches: matches}, nil
}

func (idx *fakeIndex) FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error) {
	vectors := make(map[string]*pinecone.Vector)
	for _, id := range ids {
		if v, ok := idx.records[id]; ok {
			vectors[id] = v
		}
	}

	return &pinecone.FetchVectorsResponse{Vectors: vectors}, nil
}

func (idx *fakeIndex) ListVectors(ctx context.Context, in *pinecone.ListVectorsRequest) (*pinecone.ListVectorsResponse, error) {
	if !idx.serverless {
		return nil, errors.New("list is only supported on serverless indexes")
	}

	ids := make([]string, 0, len(idx.records))
	for id := range idx.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	offset := 0
	if in.PaginationToken != nil {
		offset, _ = strconv.Atoi(*in.PaginationToken)
	}

	limit := 100
	if in.Limit != nil {
		limit = int(*in.Limit)
	}

	end := min(offset+limit, len(ids))

	resp := &pinecone.ListVectorsResponse{}
	for _, id := range ids[offset:end] {
		resp.VectorIds = append(resp.VectorIds, &id)
	}

	if end < len(ids) {
		next := strconv.Itoa(end)
		resp.NextPaginationToken = &next
	}

	return resp, nil
}

func (idx *fakeIndex) DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error) {
	total := uint32(len(idx.records))

	namespaces := make(map[string]*pinecone.NamespaceSummary, len(idx.namespaces))
	for ns, n := range idx.namespaces {
		namespaces[ns] = &pinecone.NamespaceSummary{VectorCount: n}
		total += n
	}

	return &pinecone.DescribeIndexStatsResponse{
		TotalVectorCount: total,
		Namespaces:       namespaces,
	}, nil
}

func (idx *fakeIndex) Close() error {
	idx.closed = true
	return nil
}

func similarity(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i] * b[i])
		na += float64(a[i] * a[i])
		nb += float64(b[i] * b[i])
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// matchesFilter supports equality, $eq and $in on top-level keys.
func matchesFilter(metadata *pinecone.Metadata, filter *pinecone.MetadataFilter) bool {
	if filter == nil {
		return true
	}

	var fields map[string]any
	if metadata != nil {
		fields = metadata.AsMap()
	}

	for key, cond := range filter.AsMap() {
		value := fields[key]

		switch c := cond.(type) {
		case map[string]any:
			if eq, ok := c["$eq"]; ok && eq != value {
				return false
			}

			if in, ok := c["$in"].([]any); ok && !slices.Contains(in, value) {
				return false
			}

		default:
			if c != value {
				return false
			}
		}
	}

	return true
}
