package reward

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/spachava753/swarmreward/internal/gamestate"
	"github.com/spachava753/swarmreward/internal/models"
	"golang.org/x/sync/errgroup"
)

// Orchestrator walks a parsed game state and scores every node of one stage.
type Orchestrator struct {
	parser      gamestate.Parser
	policy      *Policy
	stage       int
	concurrency int
}

// NewOrchestrator creates an orchestrator for the given stage. Agents are
// scored concurrently, at most concurrency at a time; values below 1 mean
// sequential.
func NewOrchestrator(parser gamestate.Parser, policy *Policy, stage, concurrency int) *Orchestrator {
	return &Orchestrator{
		parser:      parser,
		policy:      policy,
		stage:       stage,
		concurrency: max(concurrency, 1),
	}
}

// Stage returns the stage this orchestrator scores.
func (o *Orchestrator) Stage() int {
	return o.stage
}

// Compute parses gs and returns a reward matrix with the same agents and
// batches, holding one reward list per node in node order. The first error
// stops the traversal.
func (o *Orchestrator) Compute(ctx context.Context, gs *models.GameState) (models.RewardMatrix, error) {
	rollout, err := o.parser.Parse(gs, o.stage)
	if err != nil {
		return nil, fmt.Errorf("parsing game state: %w", err)
	}
	if err := gamestate.ValidateShape(rollout); err != nil {
		return nil, err
	}

	agents := slices.Sorted(maps.Keys(rollout.Completions))
	slog.Debug("computing rewards", "stage", o.stage, "agents", len(agents), "concurrency", o.concurrency)

	matrix := make(models.RewardMatrix, len(agents))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, agent := range agents {
		g.Go(func() error {
			batches, err := o.scoreAgent(gctx, agent, rollout)
			if err != nil {
				return err
			}
			mu.Lock()
			matrix[agent] = batches
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return matrix, nil
}

func (o *Orchestrator) scoreAgent(ctx context.Context, agent models.AgentID, rollout models.Rollout) (map[models.BatchID][][]int, error) {
	batches := rollout.Completions[agent]
	out := make(map[models.BatchID][][]int, len(batches))

	for _, batch := range slices.Sorted(maps.Keys(batches)) {
		nodes := batches[batch]
		answers := rollout.Answers[agent][batch]
		metadata := rollout.Metadata[agent][batch]

		rewards := make([][]int, len(nodes))
		for i := range nodes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, err := o.policy.Score(ctx, nodes[i], answers[i], metadata[i])
			if err != nil {
				return nil, fmt.Errorf("scoring agent %q batch %q node %d: %w", agent, batch, i, err)
			}
			slog.Debug("scored node", "agent", agent, "batch", batch, "node", i, "rewards", r)
			rewards[i] = r
		}
		out[batch] = rewards
	}

	return out, nil
}
