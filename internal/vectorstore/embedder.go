package vectorstore

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Embedder turns texts into fixed-size vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// DefaultHashDimensions is the default vector size of the HashEmbedder.
const DefaultHashDimensions = 512

// HashEmbedder maps tokens into a fixed number of buckets with xxhash and
// weights them by log(1+tf). It needs no model and is deterministic.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hashing embedder with dims buckets.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions returns the vector size.
func (h *HashEmbedder) Dimensions() int {
	return h.dims
}

// Embed returns one L2-normalized vector per text. Texts without tokens get a
// zero vector.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	counts := make([]float64, h.dims)
	for _, tok := range tokenize(text) {
		counts[xxhash.Sum64String(tok)%uint64(h.dims)]++
	}

	var norm float64
	for i, c := range counts {
		if c > 0 {
			counts[i] = math.Log1p(c)
			norm += counts[i] * counts[i]
		}
	}

	vec := make([]float32, h.dims)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, c := range counts {
		vec[i] = float32(c / norm)
	}
	return vec
}

// tokenize lowercases text and splits it on anything that is not a letter or
// a number.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
