package models

import "encoding/json"

// GameState is one round of multi-agent rollout data as produced upstream.
// Node fields stay raw until a parser decides how to read them.
type GameState struct {
	Round  int                     `json:"round"`
	Stage  int                     `json:"stage"`
	Agents map[AgentID]AgentRecord `json:"agents"`
}

// AgentRecord holds every batch an agent produced in the round.
type AgentRecord struct {
	Batches map[BatchID][]NodeRecord `json:"batches"`
}

// NodeRecord is one decision point as it was written by the rollout workers.
type NodeRecord struct {
	Stage       int             `json:"stage"`
	Completions json.RawMessage `json:"completions,omitempty"`
	Answer      json.RawMessage `json:"answer,omitempty"`
	Metadata    Metadata        `json:"metadata,omitempty"`
}
