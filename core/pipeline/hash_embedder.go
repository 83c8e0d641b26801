package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder creates an offline bag-of-words embedder using feature hashing.
// It needs no model download and is fully deterministic, texts sharing words
// get similar vectors.
func HashEmbedder(dimension int) Embedder {
	if dimension <= 0 {
		dimension = 256
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vector := make([]float32, dimension)
		for _, word := range Words(text) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vector[h.Sum32()%uint32(dimension)]++
		}

		var sum float64
		for _, v := range vector {
			sum += float64(v) * float64(v)
		}
		if sum > 0 {
			n := float32(math.Sqrt(sum))
			for i := range vector {
				vector[i] /= n
			}
		}
		return vector, nil
	}

	return NewEmbedder(fmt.Sprintf("hash-bow-%d", dimension), embed)
}

// Words lower-cases text and splits it into letter and digit runs.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
