// Package vectortest provides helpers for testing vector database backends
// without calling a real embedding model.
package vectortest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// BagOfWords is a deterministic embedder that hashes each lowercase word
// into one of Dimension buckets and normalizes the result. Texts sharing
// words end up close under cosine similarity.
type BagOfWords struct {
	Dimension int

	// Calls counts the texts embedded so far.
	Calls int
}

func (e *BagOfWords) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		embeddings[i] = e.embed(text)
		e.Calls++
	}

	return embeddings, nil
}

func (e *BagOfWords) embed(text string) []float32 {
	v := make([]float32, e.Dimension)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		v[int(h.Sum32())%e.Dimension] += 1
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}

	if norm == 0 {
		v[0] = 1
		return v
	}

	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}

	return v
}
