package reward

import "github.com/spachava753/swarmreward/internal/models"

// Summarize aggregates a reward matrix. Rewards at or below the floor and
// at or above the ceiling are counted separately.
func Summarize(matrix models.RewardMatrix, cfg models.PolicyConfig) models.RewardSummary {
	summary := models.RewardSummary{
		TotalAgents: len(matrix),
		Agents:      make(map[models.AgentID]models.AgentSummary, len(matrix)),
	}

	var total int
	for agent, batches := range matrix {
		as := models.AgentSummary{Batches: len(batches)}
		var agentTotal int

		for _, nodes := range batches {
			as.Nodes += len(nodes)
			for _, rewards := range nodes {
				for _, r := range rewards {
					as.Rewards++
					agentTotal += r
					if r <= cfg.RewardFloor {
						as.FloorRewards++
					}
					if r >= cfg.RewardCeiling {
						as.CeilingRewards++
					}
				}
			}
		}

		if as.Rewards > 0 {
			as.MeanReward = float64(agentTotal) / float64(as.Rewards)
		}
		summary.Agents[agent] = as

		summary.TotalBatches += as.Batches
		summary.TotalNodes += as.Nodes
		summary.TotalRewards += as.Rewards
		summary.FloorRewards += as.FloorRewards
		summary.CeilingRewards += as.CeilingRewards
		total += agentTotal
	}

	if summary.TotalRewards > 0 {
		summary.MeanReward = float64(total) / float64(summary.TotalRewards)
	}
	return summary
}
