// Package scoring holds the correctness and format scorers the reward
// policy consults. Each returns one raw score per completion, nominally in
// [0, weight].
package scoring

import (
	"context"

	"github.com/spachava753/swarmreward/internal/models"
)

// CorrectnessScorer compares a node's completions against its reference answer.
type CorrectnessScorer interface {
	Name() string
	Score(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error)
}

// FormatScorer rates how well each completion follows the expected output format.
type FormatScorer interface {
	Name() string
	Score(ctx context.Context, completions []models.Completion, weight float64) ([]float64, error)
}

// CorrectnessFunc adapts a function to the CorrectnessScorer interface.
type CorrectnessFunc func(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error)

func (f CorrectnessFunc) Name() string { return "correctness_func" }

func (f CorrectnessFunc) Score(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error) {
	return f(ctx, completions, answer, metadata, weight)
}

// FormatFunc adapts a function to the FormatScorer interface.
type FormatFunc func(ctx context.Context, completions []models.Completion, weight float64) ([]float64, error)

func (f FormatFunc) Name() string { return "format_func" }

func (f FormatFunc) Score(ctx context.Context, completions []models.Completion, weight float64) ([]float64, error) {
	return f(ctx, completions, weight)
}
