package scoring

import (
	"context"
	"regexp"

	"github.com/spachava753/swarmreward/internal/models"
)

var thinkAnswerFormat = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*<answer>.*?</answer>\s*$`)

// TagFormatScorer awards the full weight to completions laid out as a
// <think> block followed by an <answer> block.
type TagFormatScorer struct{}

// NewTagFormatScorer creates the default format scorer.
func NewTagFormatScorer() *TagFormatScorer {
	return &TagFormatScorer{}
}

// Name returns the scorer name.
func (s *TagFormatScorer) Name() string {
	return "think_answer_tags"
}

// Score implements FormatScorer.
func (s *TagFormatScorer) Score(ctx context.Context, completions []models.Completion, weight float64) ([]float64, error) {
	scores := make([]float64, len(completions))
	for i, c := range completions {
		if thinkAnswerFormat.MatchString(string(c)) {
			scores[i] = weight
		}
	}
	return scores, nil
}
