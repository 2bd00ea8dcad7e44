package reward_test

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/spachava753/swarmreward/internal/config"
	"github.com/spachava753/swarmreward/internal/models"
	"github.com/spachava753/swarmreward/internal/reward"
	"github.com/spachava753/swarmreward/internal/scoring"
)

// constCorrectness returns v for every completion and counts its calls.
func constCorrectness(v float64, calls *int) scoring.CorrectnessFunc {
	return func(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error) {
		if calls != nil {
			*calls++
		}
		out := make([]float64, len(completions))
		for i := range out {
			out[i] = v * weight
		}
		return out, nil
	}
}

func constFormat(v float64) scoring.FormatFunc {
	return func(ctx context.Context, completions []models.Completion, weight float64) ([]float64, error) {
		out := make([]float64, len(completions))
		for i := range out {
			out[i] = v
		}
		return out, nil
	}
}

func TestPolicyFallbacks(t *testing.T) {
	var calls int
	policy := reward.NewPolicy(config.DefaultPolicyConfig(), constCorrectness(1, &calls), nil)

	tests := []struct {
		name        string
		completions models.CompletionList
		answer      models.Answer
		expected    []int
	}{
		{
			name:        "absent completions",
			completions: models.AbsentCompletions(),
			answer:      models.PresentAnswer("4"),
			expected:    []int{20},
		},
		{
			name:        "empty completions",
			completions: models.PresentCompletions(),
			answer:      models.PresentAnswer("4"),
			expected:    []int{20},
		},
		{
			name:        "absent completions and answer",
			completions: models.AbsentCompletions(),
			answer:      models.AbsentAnswer(),
			expected:    []int{20},
		},
		{
			name:        "absent answer",
			completions: models.PresentCompletions("a", "b"),
			answer:      models.AbsentAnswer(),
			expected:    []int{20, 20},
		},
		{
			name:        "empty string answer",
			completions: models.PresentCompletions("a", "b", "c"),
			answer:      models.PresentAnswer(""),
			expected:    []int{20, 20, 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.Score(context.Background(), tt.completions, tt.answer, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}

	if calls != 0 {
		t.Errorf("expected scorer not to be called for fallbacks, got %d calls", calls)
	}
}

func TestPolicyScaling(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		formatting bool
		format     float64
		expected   int
	}{
		{name: "all correct", score: 1.0, expected: 30},
		{name: "all wrong", score: 0.0, expected: 20},
		{name: "half", score: 0.5, expected: 25},
		{name: "truncates", score: 0.99, expected: 29},
		{name: "above one clamps", score: 3.0, expected: 30},
		{name: "negative clamps", score: -1.0, expected: 20},
		{name: "positive infinity clamps", score: math.Inf(1), expected: 30},
		{name: "formatting only", score: 0.0, formatting: true, format: 0.1, expected: 21},
		{name: "correct plus formatting clamps", score: 1.0, formatting: true, format: 0.1, expected: 30},
		{name: "formatting ignored when disabled", score: 0.0, format: 0.1, expected: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultPolicyConfig()
			cfg.IncludeFormatting = tt.formatting
			policy := reward.NewPolicy(cfg, constCorrectness(tt.score, nil), constFormat(tt.format))

			got, err := policy.Score(context.Background(), models.PresentCompletions("a", "b"), models.PresentAnswer("4"), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, []int{tt.expected, tt.expected}) {
				t.Errorf("expected [%d %d], got %v", tt.expected, tt.expected, got)
			}
		})
	}
}

func TestPolicyPassesWeights(t *testing.T) {
	cfg := config.DefaultPolicyConfig()
	cfg.CorrectnessWeight = 0.5
	cfg.FormatWeight = 0.3
	cfg.IncludeFormatting = true

	var gotCorrectness, gotFormat float64
	correctness := scoring.CorrectnessFunc(func(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error) {
		gotCorrectness = weight
		return []float64{weight}, nil
	})
	format := scoring.FormatFunc(func(ctx context.Context, completions []models.Completion, weight float64) ([]float64, error) {
		gotFormat = weight
		return []float64{0}, nil
	})

	got, err := reward.NewPolicy(cfg, correctness, format).Score(context.Background(), models.PresentCompletions("a"), models.PresentAnswer("a"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCorrectness != 0.5 || gotFormat != 0.3 {
		t.Errorf("expected weights 0.5/0.3, got %v/%v", gotCorrectness, gotFormat)
	}
	if !slices.Equal(got, []int{25}) {
		t.Errorf("expected [25], got %v", got)
	}
}

func TestPolicyDefaultScorers(t *testing.T) {
	cfg := config.DefaultPolicyConfig()
	cfg.IncludeFormatting = true
	policy := reward.NewPolicy(cfg, nil, nil)

	completions := models.PresentCompletions(
		"<think>2+2</think><answer>4</answer>",
		"<answer>4</answer>",
		"<think>hmm</think><answer>5</answer>",
		"5",
	)
	got, err := policy.Score(context.Background(), completions, models.PresentAnswer("4"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expected := []int{30, 30, 21, 20}; !slices.Equal(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestPolicyScorerErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		scorer   scoring.CorrectnessFunc
		expected models.ErrorType
	}{
		{
			name: "scorer error",
			scorer: func(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error) {
				return nil, boom
			},
			expected: models.ErrScorerFailed,
		},
		{
			name: "wrong length",
			scorer: func(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error) {
				return []float64{1}, nil
			},
			expected: models.ErrScorerOutputLength,
		},
		{
			name: "nan score",
			scorer: func(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error) {
				return []float64{1, math.NaN()}, nil
			},
			expected: models.ErrScorerOutputNaN,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := reward.NewPolicy(config.DefaultPolicyConfig(), tt.scorer, nil)
			_, err := policy.Score(context.Background(), models.PresentCompletions("a", "b"), models.PresentAnswer("a"), nil)

			var serr *models.ScorerError
			if !errors.As(err, &serr) {
				t.Fatalf("expected ScorerError, got %v", err)
			}
			if serr.Type != tt.expected {
				t.Errorf("expected type %s, got %s", tt.expected, serr.Type)
			}
			if serr.Scorer != "correctness_func" {
				t.Errorf("expected scorer name correctness_func, got %s", serr.Scorer)
			}
		})
	}

	t.Run("underlying error preserved", func(t *testing.T) {
		policy := reward.NewPolicy(config.DefaultPolicyConfig(), tests[0].scorer, nil)
		_, err := policy.Score(context.Background(), models.PresentCompletions("a"), models.PresentAnswer("a"), nil)
		if !errors.Is(err, boom) {
			t.Errorf("expected errors.Is(err, boom), got %v", err)
		}
	})
}

func TestScale(t *testing.T) {
	prev := reward.Scale(-0.5, 20, 30)
	for i := 0; i <= 150; i++ {
		s := -0.25 + float64(i)/100
		got := reward.Scale(s, 20, 30)
		if got < 20 || got > 30 {
			t.Fatalf("Scale(%v) = %d out of [20, 30]", s, got)
		}
		if got < prev {
			t.Fatalf("Scale not monotonic: Scale(%v) = %d < %d", s, got, prev)
		}
		prev = got
	}

	if got := reward.Scale(0.5, 0, 100); got != 50 {
		t.Errorf("Scale(0.5, 0, 100) = %d, want 50", got)
	}
}
