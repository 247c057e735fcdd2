package vector

// Normalize rewrites named map types and typed slices into plain
// map[string]any and []any so protobuf value encoders accept them.
func Normalize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}

	return out
}

func normalize(v any) any {
	switch val := v.(type) {
	case Metadata:
		return Normalize(val)
	case Filter:
		return Normalize(val)
	case map[string]any:
		return Normalize(val)
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case []string:
		return toAnySlice(val)
	case []int:
		return toAnySlice(val)
	case []int64:
		return toAnySlice(val)
	case []float64:
		return toAnySlice(val)
	case []bool:
		return toAnySlice(val)
	default:
		return v
	}
}

func toAnySlice[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}

	return out
}
