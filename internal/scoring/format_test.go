package scoring_test

import (
	"context"
	"testing"

	"github.com/spachava753/swarmreward/internal/models"
	"github.com/spachava753/swarmreward/internal/scoring"
)

func TestTagFormatScorer(t *testing.T) {
	tests := []struct {
		name       string
		completion models.Completion
		expected   float64
	}{
		{name: "well formed", completion: "<think>reasoning</think><answer>4</answer>", expected: 0.2},
		{name: "whitespace between blocks", completion: "  <think>a\nb</think>\n\n<answer>4</answer>\n", expected: 0.2},
		{name: "missing think", completion: "<answer>4</answer>", expected: 0},
		{name: "trailing text", completion: "<think>a</think><answer>4</answer> done", expected: 0},
		{name: "wrong order", completion: "<answer>4</answer><think>a</think>", expected: 0},
		{name: "plain text", completion: "4", expected: 0},
	}

	scorer := scoring.NewTagFormatScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scorer.Score(context.Background(), []models.Completion{tt.completion}, 0.2)
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			if len(got) != 1 || got[0] != tt.expected {
				t.Errorf("Score(%q) = %v, want [%v]", tt.completion, got, tt.expected)
			}
		})
	}
}

func TestFuncAdapters(t *testing.T) {
	var correctness scoring.CorrectnessScorer = scoring.CorrectnessFunc(
		func(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error) {
			return []float64{weight}, nil
		})
	got, err := correctness.Score(context.Background(), []models.Completion{"x"}, models.PresentAnswer("x"), nil, 0.7)
	if err != nil || len(got) != 1 || got[0] != 0.7 {
		t.Errorf("CorrectnessFunc returned %v, %v", got, err)
	}

	var format scoring.FormatScorer = scoring.FormatFunc(
		func(ctx context.Context, completions []models.Completion, weight float64) ([]float64, error) {
			return make([]float64, len(completions)), nil
		})
	got, err = format.Score(context.Background(), []models.Completion{"a", "b"}, 1)
	if err != nil || len(got) != 2 {
		t.Errorf("FormatFunc returned %v, %v", got, err)
	}
}
