package qdrant

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"

	"github.com/qdrant/go-client/qdrant"
)

var errCollectionNotFound = errors.New("collection not found")

// fakeQdrant keeps collections in memory and evaluates the subset of filter
// conditions the adapter emits.
type fakeQdrant struct {
	collections map[string]*fakeCollection

	// createErr fails the next create call.
	createErr error

	created []string
	deleted []string
	closed  bool
}

type fakeCollection struct {
	params *qdrant.VectorParams
	points map[string]*qdrant.PointStruct
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{
		collections: make(map[string]*fakeCollection),
	}
}

func (f *fakeQdrant) collection(name string) (*fakeCollection, error) {
	c, ok := f.collections[name]
	if !ok {
		return nil, errCollectionNotFound
	}

	return c, nil
}

func (f *fakeQdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeQdrant) CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error {
	if err := f.createErr; err != nil {
		f.createErr = nil
		return err
	}

	f.collections[request.CollectionName] = &fakeCollection{
		params: request.GetVectorsConfig().GetParams(),
		points: make(map[string]*qdrant.PointStruct),
	}

	f.created = append(f.created, request.CollectionName)
	return nil
}

func (f *fakeQdrant) DeleteCollection(ctx context.Context, name string) error {
	if _, err := f.collection(name); err != nil {
		return err
	}

	delete(f.collections, name)
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeQdrant) Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	c, err := f.collection(request.CollectionName)
	if err != nil {
		return nil, err
	}

	for _, p := range request.Points {
		data := p.GetVectors().GetVector().GetDense().GetData()
		if uint64(len(data)) != c.params.GetSize() {
			return nil, errors.New("wrong vector dimension")
		}

		c.points[p.GetId().GetUuid()] = p
	}

	return &qdrant.UpdateResult{Status: qdrant.UpdateStatus_Completed}, nil
}

func (f *fakeQdrant) Get(ctx context.Context, request *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error) {
	c, err := f.collection(request.CollectionName)
	if err != nil {
		return nil, err
	}

	var points []*qdrant.RetrievedPoint
	for _, id := range request.Ids {
		if p, ok := c.points[id.GetUuid()]; ok {
			points = append(points, &qdrant.RetrievedPoint{Id: p.Id, Payload: p.Payload})
		}
	}

	return points, nil
}

func (f *fakeQdrant) ScrollAndOffset(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
	c, err := f.collection(request.CollectionName)
	if err != nil {
		return nil, nil, err
	}

	var keys []string
	for key, p := range c.points {
		if matches(p, request.Filter) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	start := 0
	if request.Offset != nil {
		start = sort.SearchStrings(keys, request.Offset.GetUuid())
	}

	limit := 10
	if request.Limit != nil {
		limit = int(*request.Limit)
	}

	end := min(start+limit, len(keys))

	points := make([]*qdrant.RetrievedPoint, 0, end-start)
	for _, key := range keys[start:end] {
		p := c.points[key]
		points = append(points, &qdrant.RetrievedPoint{Id: p.Id, Payload: p.Payload})
	}

	var next *qdrant.PointId
	if end < len(keys) {
		next = qdrant.NewIDUUID(keys[end])
	}

	return points, next, nil
}

func (f *fakeQdrant) Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error) {
	c, err := f.collection(request.CollectionName)
	if err != nil {
		return 0, err
	}

	var n uint64
	for _, p := range c.points {
		if matches(p, request.Filter) {
			n++
		}
	}

	return n, nil
}

func (f *fakeQdrant) Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	c, err := f.collection(request.CollectionName)
	if err != nil {
		return nil, err
	}

	query := request.GetQuery().GetNearest().GetDense().GetData()

	var scored []*qdrant.ScoredPoint
	for _, p := range c.points {
		if !matches(p, request.Filter) {
			continue
		}

		scored = append(scored, &qdrant.ScoredPoint{
			Id:      p.Id,
			Payload: p.Payload,
			Score:   cosine(query, p.GetVectors().GetVector().GetDense().GetData()),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score == scored[j].Score {
			return scored[i].Id.GetUuid() < scored[j].Id.GetUuid()
		}

		return scored[i].Score > scored[j].Score
	})

	limit := request.GetLimit()
	if limit == 0 {
		limit = 10
	}

	if uint64(len(scored)) > limit {
		scored = scored[:limit]
	}

	return scored, nil
}

func (f *fakeQdrant) Close() error {
	f.closed = true
	return nil
}

func cosine(a, b []float32) float32 {
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

func matches(p *qdrant.PointStruct, filter *qdrant.Filter) bool {
	if filter == nil {
		return true
	}

	for _, cond := range filter.Must {
		if !satisfies(p, cond) {
			return false
		}
	}

	for _, cond := range filter.MustNot {
		if satisfies(p, cond) {
			return false
		}
	}

	return true
}

func satisfies(p *qdrant.PointStruct, cond *qdrant.Condition) bool {
	if hasID := cond.GetHasId(); hasID != nil {
		return slices.ContainsFunc(hasID.GetHasId(), func(id *qdrant.PointId) bool {
			return id.GetUuid() == p.GetId().GetUuid()
		})
	}

	field := cond.GetField()
	if field == nil {
		return false
	}

	value, ok := p.Payload[field.Key]
	if !ok {
		return false
	}

	switch m := field.GetMatch().GetMatchValue().(type) {
	case *qdrant.Match_Keyword:
		return value.GetStringValue() == m.Keyword
	case *qdrant.Match_Integer:
		return isInteger(value) && value.GetIntegerValue() == m.Integer
	case *qdrant.Match_Boolean:
		_, isBool := value.GetKind().(*qdrant.Value_BoolValue)
		return isBool && value.GetBoolValue() == m.Boolean
	case *qdrant.Match_Keywords:
		return slices.Contains(m.Keywords.GetStrings(), value.GetStringValue())
	case *qdrant.Match_Integers:
		return isInteger(value) && slices.Contains(m.Integers.GetIntegers(), value.GetIntegerValue())
	case *qdrant.Match_ExceptKeywords:
		return !slices.Contains(m.ExceptKeywords.GetStrings(), value.GetStringValue())
	case *qdrant.Match_ExceptIntegers:
		return !isInteger(value) || !slices.Contains(m.ExceptIntegers.GetIntegers(), value.GetIntegerValue())
	default:
		return false
	}
}

func isInteger(v *qdrant.Value) bool {
	_, ok := v.GetKind().(*qdrant.Value_IntegerValue)
	return ok
}
