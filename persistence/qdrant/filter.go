package qdrant

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/flarexio/ragblade/vector"
)

// IDKey is the payload key holding the caller's record id.
const IDKey = "id"

var pointNamespace = uuid.MustParse("6f0b6a4e-2a55-4c61-9a43-8f5b3c1d2e7a")

// pointID maps an arbitrary record id onto a stable UUIDv5 point id.
func pointID(id string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(pointNamespace, []byte(id)).String())
}

// toFilter translates the metadata filter syntax into Qdrant match
// conditions. Supported: {"k": v}, {"k": {"$eq": v}}, $ne, $in and $nin
// over strings, integers and booleans.
func toFilter(where vector.Filter) (*qdrant.Filter, error) {
	if len(where) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filter := new(qdrant.Filter)
	for _, key := range keys {
		cond, ok := where[key].(map[string]any)
		if !ok {
			if c, isFilter := where[key].(vector.Filter); isFilter {
				cond, ok = c, true
			}
		}

		if !ok {
			c, err := matchValue(key, where[key])
			if err != nil {
				return nil, err
			}

			filter.Must = append(filter.Must, c)
			continue
		}

		for op, value := range cond {
			switch op {
			case "$eq":
				c, err := matchValue(key, value)
				if err != nil {
					return nil, err
				}

				filter.Must = append(filter.Must, c)

			case "$ne":
				c, err := matchValue(key, value)
				if err != nil {
					return nil, err
				}

				filter.MustNot = append(filter.MustNot, c)

			case "$in":
				c, err := matchAny(key, value, false)
				if err != nil {
					return nil, err
				}

				filter.Must = append(filter.Must, c)

			case "$nin":
				c, err := matchAny(key, value, true)
				if err != nil {
					return nil, err
				}

				filter.Must = append(filter.Must, c)

			default:
				return nil, fmt.Errorf("%w: unsupported filter operator %q on %q", vector.ErrInput, op, key)
			}
		}
	}

	return filter, nil
}

func matchValue(key string, value any) (*qdrant.Condition, error) {
	switch v := value.(type) {
	case string:
		return qdrant.NewMatch(key, v), nil
	case bool:
		return qdrant.NewMatchBool(key, v), nil
	default:
		n, ok := integer(value)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported filter value %v (%T) on %q", vector.ErrInput, value, value, key)
		}

		return qdrant.NewMatchInt(key, n), nil
	}
}

func matchAny(key string, value any, except bool) (*qdrant.Condition, error) {
	items, ok := vector.Normalize(map[string]any{key: value})[key].([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: %q expects a non-empty list", vector.ErrInput, key)
	}

	if _, isString := items[0].(string); isString {
		keywords := make([]string, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: mixed list values on %q", vector.ErrInput, key)
			}

			keywords[i] = s
		}

		if except {
			return qdrant.NewMatchExcept(key, keywords...), nil
		}

		return qdrant.NewMatchKeywords(key, keywords...), nil
	}

	ints := make([]int64, len(items))
	for i, item := range items {
		n, ok := integer(item)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported list value %v on %q", vector.ErrInput, item, key)
		}

		ints[i] = n
	}

	if except {
		return qdrant.NewMatchExceptInts(key, ints...), nil
	}

	return qdrant.NewMatchInts(key, ints...), nil
}

// integer accepts Go integers and integral floats, which is how JSON
// decoding hands numbers over.
func integer(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}

		return int64(v), true
	default:
		return 0, false
	}
}

func toPayload(id string, metadata vector.Metadata, text string) (map[string]*qdrant.Value, error) {
	m := vector.Normalize(vector.WithText(metadata, text))
	m[IDKey] = id

	payload, err := qdrant.TryValueMap(m)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata of %q: %w", vector.ErrInput, id, err)
	}

	return payload, nil
}

func stringOf(payload map[string]*qdrant.Value, key string) (string, bool) {
	v, ok := payload[key]
	if !ok || v == nil {
		return "", false
	}

	s, ok := v.GetKind().(*qdrant.Value_StringValue)
	if !ok {
		return "", false
	}

	return s.StringValue, true
}
