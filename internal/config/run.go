package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/spachava753/swarmreward/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultPolicyConfig returns the reward policy used by training: integer
// rewards in [20, 30], correctness weighted 1.0 and formatting 0.1.
func DefaultPolicyConfig() models.PolicyConfig {
	return models.PolicyConfig{
		RewardFloor:       20,
		RewardCeiling:     30,
		CorrectnessWeight: 1.0,
		FormatWeight:      0.1,
		IncludeFormatting: false,
	}
}

// DefaultRunConfig returns a RunConfig with default values.
func DefaultRunConfig() models.RunConfig {
	return models.RunConfig{
		OutputDir:         "rewards",
		NConcurrentAgents: 1,
		LogLevel:          "info",
		Policy:            DefaultPolicyConfig(),
		Scorer: models.ScorerConfig{
			Type:              models.ScorerExactMatch,
			TimeoutMultiplier: 1.0,
			Environment: models.SandboxEnvironment{
				Type: "docker",
			},
		},
	}
}

// LoadRunConfig loads and parses a reward.yaml file.
func LoadRunConfig(path string) (models.RunConfig, error) {
	cfg := DefaultRunConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading run config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing run config: %w", err)
	}

	// Apply defaults for missing values
	if cfg.OutputDir == "" {
		cfg.OutputDir = "rewards"
	}
	if cfg.NConcurrentAgents <= 0 {
		cfg.NConcurrentAgents = 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Scorer.Type == "" {
		cfg.Scorer.Type = models.ScorerExactMatch
	}
	if cfg.Scorer.TimeoutMultiplier == 0 {
		cfg.Scorer.TimeoutMultiplier = 1.0
	}
	if cfg.Scorer.Environment.Type == "" {
		cfg.Scorer.Environment.Type = "docker"
	}

	if err := ValidateRunConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ValidateRunConfig checks the settings that would otherwise surface as
// confusing failures halfway through a run.
func ValidateRunConfig(cfg models.RunConfig) error {
	if err := ValidatePolicyConfig(cfg.Policy); err != nil {
		return err
	}

	hasPath := cfg.GameState.Path != nil && *cfg.GameState.Path != ""
	hasURL := cfg.GameState.URL != nil && *cfg.GameState.URL != ""
	if !hasPath && !hasURL {
		return fmt.Errorf("game_state: must specify either 'path' or 'url'")
	}
	if hasPath && hasURL {
		return fmt.Errorf("game_state: cannot specify both 'path' and 'url'")
	}

	if cfg.Stage < 0 {
		return fmt.Errorf("stage must be non-negative, got %d", cfg.Stage)
	}

	switch cfg.Scorer.Type {
	case models.ScorerExactMatch:
	case models.ScorerSandbox:
		if cfg.Scorer.VerifierPath == "" {
			return fmt.Errorf("scorer: sandbox scorer requires 'verifier_path'")
		}
		switch cfg.Scorer.Environment.Type {
		case "docker", "modal":
		default:
			return fmt.Errorf("scorer: unsupported environment type: %s", cfg.Scorer.Environment.Type)
		}
	default:
		return fmt.Errorf("scorer: unsupported scorer type: %s", cfg.Scorer.Type)
	}

	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// ValidatePolicyConfig checks the reward range and weights.
func ValidatePolicyConfig(p models.PolicyConfig) error {
	if p.RewardFloor >= p.RewardCeiling {
		return fmt.Errorf("policy: reward_floor (%d) must be below reward_ceiling (%d)", p.RewardFloor, p.RewardCeiling)
	}
	if p.CorrectnessWeight < 0 || math.IsNaN(p.CorrectnessWeight) {
		return fmt.Errorf("policy: correctness_weight must be non-negative, got %v", p.CorrectnessWeight)
	}
	if p.FormatWeight < 0 || math.IsNaN(p.FormatWeight) {
		return fmt.Errorf("policy: format_weight must be non-negative, got %v", p.FormatWeight)
	}
	return nil
}

// ParseLogLevel maps a log_level string onto a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level: %s", level)
	}
}
