package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLexicalScorerVerbForms(t *testing.T) {
	scorer := NewLexicalScorer()

	cases := []struct {
		a, b string
		min  float64
	}{
		{"ran", "Running", 0.99},
		{"went running", "Running", 0.99},
		{"did yoga", "Yoga", 0.99},
		{"swam laps", "Swimming", 0.49},
		{"read some fiction", "Reading", 0.49},
		{"lifted weights", "Lifting Weights", 0.99},
	}

	for _, tc := range cases {
		t.Run(tc.a+" vs "+tc.b, func(t *testing.T) {
			score, err := scorer.Score(context.Background(), tc.a, tc.b)
			require.NoError(t, err)
			require.GreaterOrEqual(t, score, tc.min, "score for %q vs %q", tc.a, tc.b)
		})
	}
}

func TestLexicalScorerUnrelatedPhrases(t *testing.T) {
	scorer := NewLexicalScorer()

	cases := [][2]string{
		{"read a book", "Running"},
		{"went swimming", "went running"},
		{"did yoga", "did pilates"},
		{"had a walk", "had dinner"},
	}

	for _, tc := range cases {
		score, err := scorer.Score(context.Background(), tc[0], tc[1])
		require.NoError(t, err)
		require.Less(t, score, 0.5, "score for %q vs %q", tc[0], tc[1])
	}
}

func TestLexicalScorerEmptyInput(t *testing.T) {
	scorer := NewLexicalScorer()

	score, err := scorer.Score(context.Background(), "", "Running")
	require.NoError(t, err)
	require.Zero(t, score)
}

type fixedEmbedder struct {
	vectors map[string][]float64
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return f.vectors[text], nil
}

func TestEmbeddingScorerCosine(t *testing.T) {
	embedder := &fixedEmbedder{vectors: map[string][]float64{
		"running":  {1, 0, 0},
		"jogging":  {0.9, 0.1, 0},
		"baking":   {0, 0, 1},
		"opposite": {-1, 0, 0},
	}}
	scorer := NewEmbeddingScorer(embedder)

	high, err := scorer.Score(context.Background(), "running", "jogging")
	require.NoError(t, err)
	require.Greater(t, high, 0.95)

	mid, err := scorer.Score(context.Background(), "running", "baking")
	require.NoError(t, err)
	require.InDelta(t, 0.5, mid, 0.01)

	low, err := scorer.Score(context.Background(), "running", "opposite")
	require.NoError(t, err)
	require.InDelta(t, 0.0, low, 0.01)
}

func TestEmbeddingScorerDimensionMismatch(t *testing.T) {
	embedder := &fixedEmbedder{vectors: map[string][]float64{
		"a": {1, 0},
		"b": {1, 0, 0},
	}}
	scorer := NewEmbeddingScorer(embedder)

	_, err := scorer.Score(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrEmbedding)
}
