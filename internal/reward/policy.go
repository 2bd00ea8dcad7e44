// Package reward turns parsed rollout nodes into integer training rewards.
package reward

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/spachava753/swarmreward/internal/models"
	"github.com/spachava753/swarmreward/internal/scoring"
)

// Policy scores the completions of a single node.
type Policy struct {
	cfg         models.PolicyConfig
	correctness scoring.CorrectnessScorer
	format      scoring.FormatScorer
}

// NewPolicy creates a scoring policy. A nil correctness scorer defaults to
// exact matching and a nil format scorer to the think/answer tag check.
func NewPolicy(cfg models.PolicyConfig, correctness scoring.CorrectnessScorer, format scoring.FormatScorer) *Policy {
	if correctness == nil {
		correctness = scoring.NewExactMatchScorer()
	}
	if format == nil {
		format = scoring.NewTagFormatScorer()
	}
	return &Policy{
		cfg:         cfg,
		correctness: correctness,
		format:      format,
	}
}

// Config returns the policy constants.
func (p *Policy) Config() models.PolicyConfig {
	return p.cfg
}

// Score returns one reward per completion. Nodes without completions get a
// single floor reward and nodes without an answer get the floor for every
// completion; neither case consults a scorer.
func (p *Policy) Score(ctx context.Context, completions models.CompletionList, answer models.Answer, metadata models.Metadata) ([]int, error) {
	items, ok := completions.Items()
	if !ok {
		slog.Debug("completions absent, using floor reward", "floor", p.cfg.RewardFloor)
		return []int{p.cfg.RewardFloor}, nil
	}

	if _, ok := answer.Values(); !ok {
		slog.Debug("answer absent, using floor rewards", "floor", p.cfg.RewardFloor, "completions", len(items))
		return repeat(p.cfg.RewardFloor, len(items)), nil
	}

	combined, err := p.scoreWith(p.correctness.Name(), len(items), func() ([]float64, error) {
		return p.correctness.Score(ctx, items, answer, metadata, p.cfg.CorrectnessWeight)
	})
	if err != nil {
		return nil, err
	}

	if p.cfg.IncludeFormatting {
		formatScores, err := p.scoreWith(p.format.Name(), len(items), func() ([]float64, error) {
			return p.format.Score(ctx, items, p.cfg.FormatWeight)
		})
		if err != nil {
			return nil, err
		}
		for i := range combined {
			combined[i] += formatScores[i]
		}
	}

	rewards := make([]int, len(combined))
	for i, s := range combined {
		rewards[i] = Scale(s, p.cfg.RewardFloor, p.cfg.RewardCeiling)
	}
	return rewards, nil
}

// scoreWith runs one scorer and checks it returned one non-NaN score per
// completion. The returned slice is a copy the caller may modify.
func (p *Policy) scoreWith(name string, n int, score func() ([]float64, error)) ([]float64, error) {
	scores, err := score()
	if err != nil {
		return nil, &models.ScorerError{Type: models.ErrScorerFailed, Scorer: name, Err: err}
	}
	if len(scores) != n {
		return nil, &models.ScorerError{
			Type:   models.ErrScorerOutputLength,
			Scorer: name,
			Err:    fmt.Errorf("expected %d scores, got %d", n, len(scores)),
		}
	}
	for i, s := range scores {
		if math.IsNaN(s) {
			return nil, &models.ScorerError{
				Type:   models.ErrScorerOutputNaN,
				Scorer: name,
				Err:    fmt.Errorf("score %d is NaN", i),
			}
		}
	}
	return slices.Clone(scores), nil
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}
