package scoring

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/spachava753/swarmreward/internal/models"
)

var answerTag = regexp.MustCompile(`(?s)<answer>(.*?)</answer>`)

// ExactMatchScorer awards the full weight to completions whose extracted
// answer equals one of the reference values after normalisation.
type ExactMatchScorer struct{}

// NewExactMatchScorer creates the default correctness scorer.
func NewExactMatchScorer() *ExactMatchScorer {
	return &ExactMatchScorer{}
}

// Name returns the scorer name.
func (s *ExactMatchScorer) Name() string {
	return string(models.ScorerExactMatch)
}

// Score implements CorrectnessScorer. Metadata is not consulted.
func (s *ExactMatchScorer) Score(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error) {
	values, _ := answer.Values()
	want := make([]string, 0, len(values))
	for _, v := range values {
		want = append(want, normalize(v))
	}

	scores := make([]float64, len(completions))
	for i, c := range completions {
		got := normalize(ExtractAnswer(string(c)))
		for _, w := range want {
			if equivalent(got, w) {
				scores[i] = weight
				break
			}
		}
	}
	return scores, nil
}

// ExtractAnswer returns the content of the last <answer> span, or the whole
// text when the completion has none.
func ExtractAnswer(text string) string {
	matches := answerTag.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text
	}
	return matches[len(matches)-1][1]
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimPrefix(s, "$")
	if looksNumeric(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	return strings.TrimSpace(s)
}

func looksNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return err == nil
}

func equivalent(got, want string) bool {
	if got == "" {
		return false
	}
	if got == want {
		return true
	}
	a, errA := strconv.ParseFloat(got, 64)
	b, errB := strconv.ParseFloat(want, 64)
	return errA == nil && errB == nil && a == b
}
