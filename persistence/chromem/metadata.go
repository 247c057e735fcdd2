package chromem

import (
	"fmt"

	"github.com/flarexio/ragblade/vector"
)

// toMetadata flattens metadata values into the strings chromem stores.
func toMetadata(m vector.Metadata) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}

	return out
}

// toWhere supports exact matches only: {"k": v} and {"k": {"$eq": v}}.
func toWhere(where vector.Filter) (map[string]string, error) {
	if len(where) == 0 {
		return nil, nil
	}

	out := make(map[string]string, len(where))
	for k, v := range vector.Normalize(where) {
		cond, ok := v.(map[string]any)
		if !ok {
			out[k] = fmt.Sprint(v)
			continue
		}

		eq, ok := cond["$eq"]
		if !ok || len(cond) != 1 {
			return nil, fmt.Errorf("%w: chromem filters only support exact matches on %q", vector.ErrInput, k)
		}

		out[k] = fmt.Sprint(eq)
	}

	return out, nil
}
