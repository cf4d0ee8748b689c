package match

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrEmbedding wraps failures from the embedding backend.
var ErrEmbedding = errors.New("embedding failed")

// Embedder turns a phrase into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbeddingScorer rates similarity as the cosine of the two phrase vectors,
// rescaled from [-1, 1] to [0, 1].
type EmbeddingScorer struct {
	embedder Embedder
}

// NewEmbeddingScorer constructs a scorer backed by the given embedder.
func NewEmbeddingScorer(embedder Embedder) *EmbeddingScorer {
	return &EmbeddingScorer{embedder: embedder}
}

// Score embeds both phrases and returns their rescaled cosine similarity.
func (s *EmbeddingScorer) Score(ctx context.Context, a, b string) (float64, error) {
	va, err := s.embedder.Embed(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	vb, err := s.embedder.Embed(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	cos, err := cosine(va, vb)
	if err != nil {
		return 0, err
	}
	return (cos + 1) / 2, nil
}

func cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("%w: vector dimensions %d and %d", ErrEmbedding, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
