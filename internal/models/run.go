package models

import "time"

// ScorerType selects the correctness scorer implementation.
type ScorerType string

const (
	ScorerExactMatch ScorerType = "exact_match"
	ScorerSandbox    ScorerType = "sandbox"
)

// RunConfig represents the parsed reward.yaml configuration.
type RunConfig struct {
	Name              *string      `yaml:"name,omitempty" json:"name,omitempty"`
	OutputDir         string       `yaml:"output_dir" json:"output_dir"`
	Stage             int          `yaml:"stage" json:"stage"`
	NConcurrentAgents int          `yaml:"n_concurrent_agents" json:"n_concurrent_agents"`
	LogLevel          string       `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	Policy            PolicyConfig `yaml:"policy" json:"policy"`
	GameState         GameStateRef `yaml:"game_state" json:"game_state"`
	Scorer            ScorerConfig `yaml:"scorer" json:"scorer"`
}

// PolicyConfig holds the scoring policy constants.
type PolicyConfig struct {
	RewardFloor       int     `yaml:"reward_floor" json:"reward_floor"`
	RewardCeiling     int     `yaml:"reward_ceiling" json:"reward_ceiling"`
	CorrectnessWeight float64 `yaml:"correctness_weight" json:"correctness_weight"`
	FormatWeight      float64 `yaml:"format_weight" json:"format_weight"`
	IncludeFormatting bool    `yaml:"include_formatting" json:"include_formatting"`
}

// GameStateRef specifies where the game state document is read from.
type GameStateRef struct {
	Path *string `yaml:"path,omitempty" json:"path,omitempty"`
	URL  *string `yaml:"url,omitempty" json:"url,omitempty"`
}

// ScorerConfig configures the correctness scorer.
type ScorerConfig struct {
	Type              ScorerType         `yaml:"type" json:"type"`
	VerifierPath      string             `yaml:"verifier_path,omitempty" json:"verifier_path,omitempty"`
	TimeoutMultiplier float64            `yaml:"timeout_multiplier" json:"timeout_multiplier"`
	Environment       SandboxEnvironment `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// SandboxEnvironment selects and tunes the sandbox provider for the sandbox scorer.
type SandboxEnvironment struct {
	Type           string         `yaml:"type" json:"type"`
	ProviderConfig map[string]any `yaml:"provider_config,omitempty" json:"provider_config,omitempty"`
	OverrideCPUs   *int           `yaml:"override_cpus,omitempty" json:"override_cpus,omitempty"`
	OverrideMemory *string        `yaml:"override_memory,omitempty" json:"override_memory,omitempty"`
}

// RunResult is what a run wrote and how long it took.
type RunResult struct {
	Name        string        `json:"name"`
	Round       int           `json:"round"`
	Stage       int           `json:"stage"`
	OutputDir   string        `json:"output_dir"`
	Rewards     RewardMatrix  `json:"-"`
	Summary     RewardSummary `json:"summary"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     time.Time     `json:"ended_at"`
	DurationSec float64       `json:"duration_sec"`
}

// RewardSummary contains aggregate statistics across a reward matrix.
type RewardSummary struct {
	TotalAgents    int                      `json:"total_agents"`
	TotalBatches   int                      `json:"total_batches"`
	TotalNodes     int                      `json:"total_nodes"`
	TotalRewards   int                      `json:"total_rewards"`
	MeanReward     float64                  `json:"mean_reward"`
	FloorRewards   int                      `json:"floor_rewards"`
	CeilingRewards int                      `json:"ceiling_rewards"`
	Agents         map[AgentID]AgentSummary `json:"agents"`
}

// AgentSummary contains the same statistics for one agent.
type AgentSummary struct {
	Batches        int     `json:"batches"`
	Nodes          int     `json:"nodes"`
	Rewards        int     `json:"rewards"`
	MeanReward     float64 `json:"mean_reward"`
	FloorRewards   int     `json:"floor_rewards"`
	CeilingRewards int     `json:"ceiling_rewards"`
}
