// Package executor runs a reward computation end to end: it loads the run
// config and game state, builds the scorers, computes the reward matrix and
// writes the results to disk.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spachava753/swarmreward/internal/config"
	"github.com/spachava753/swarmreward/internal/environment"
	"github.com/spachava753/swarmreward/internal/environment/docker"
	"github.com/spachava753/swarmreward/internal/environment/modal"
	"github.com/spachava753/swarmreward/internal/gamestate"
	"github.com/spachava753/swarmreward/internal/models"
	"github.com/spachava753/swarmreward/internal/reward"
	"github.com/spachava753/swarmreward/internal/scoring"
	"github.com/spachava753/swarmreward/internal/util"
	"github.com/spachava753/swarmreward/internal/verifier"
)

// NewScorerFunc creates the correctness scorer for a run.
type NewScorerFunc func(ctx context.Context, cfg models.ScorerConfig) (scoring.CorrectnessScorer, error)

// Runner computes and persists the rewards described by one RunConfig.
type Runner struct {
	cfg          models.RunConfig
	policy       *reward.Policy
	orchestrator *reward.Orchestrator
}

// NewRunner builds the policy and orchestrator for cfg.
func NewRunner(ctx context.Context, cfg models.RunConfig, newScorer NewScorerFunc) (*Runner, error) {
	correctness, err := newScorer(ctx, cfg.Scorer)
	if err != nil {
		return nil, fmt.Errorf("creating scorer: %w", err)
	}

	policy := reward.NewPolicy(cfg.Policy, correctness, scoring.NewTagFormatScorer())
	return &Runner{
		cfg:          cfg,
		policy:       policy,
		orchestrator: reward.NewOrchestrator(gamestate.NewStageParser(), policy, cfg.Stage, cfg.NConcurrentAgents),
	}, nil
}

// Run loads the game state, computes the reward matrix and writes
// config.json, rewards.json and summary.json under <output_dir>/<name>.
func (r *Runner) Run(ctx context.Context) (*models.RunResult, error) {
	startTime := time.Now()

	runName := startTime.Format("2006-01-02__15-04-05")
	if r.cfg.Name != nil && *r.cfg.Name != "" {
		runName = *r.cfg.Name
	}
	runDir := filepath.Join(r.cfg.OutputDir, runName)

	if _, err := os.Stat(runDir); err == nil {
		return nil, fmt.Errorf("run directory already exists: %s (will not overwrite existing results)", runDir)
	}

	gs, err := gamestate.Load(ctx, r.cfg.GameState)
	if err != nil {
		return nil, fmt.Errorf("loading game state: %w", err)
	}

	slog.Info("computing rewards",
		"run", runName,
		"round", gs.Round,
		"stage", r.cfg.Stage,
		"agents", len(gs.Agents))

	matrix, err := r.orchestrator.Compute(ctx, gs)
	if err != nil {
		return nil, fmt.Errorf("computing rewards: %w", err)
	}

	result := &models.RunResult{
		Name:      runName,
		Round:     gs.Round,
		Stage:     r.cfg.Stage,
		OutputDir: runDir,
		Rewards:   matrix,
		Summary:   reward.Summarize(matrix, r.policy.Config()),
		StartedAt: startTime,
		EndedAt:   time.Now(),
	}
	result.DurationSec = result.EndedAt.Sub(result.StartedAt).Seconds()

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	for name, v := range map[string]any{
		"config.json":  r.cfg,
		"rewards.json": matrix,
		"summary.json": result,
	} {
		if err := writeJSON(filepath.Join(runDir, name), v); err != nil {
			return nil, err
		}
	}

	slog.Info("rewards written",
		"dir", runDir,
		"nodes", result.Summary.TotalNodes,
		"mean_reward", result.Summary.MeanReward)
	return result, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// DefaultScorerFunc creates the scorer named by cfg.Type.
func DefaultScorerFunc(ctx context.Context, cfg models.ScorerConfig) (scoring.CorrectnessScorer, error) {
	switch cfg.Type {
	case models.ScorerExactMatch:
		return scoring.NewExactMatchScorer(), nil
	case models.ScorerSandbox:
		return newSandboxScorer(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported scorer type: %s", cfg.Type)
	}
}

func newSandboxScorer(ctx context.Context, cfg models.ScorerConfig) (*scoring.SandboxScorer, error) {
	loader := verifier.NewLoader()
	bundle, err := loader.LoadBundle(ctx, cfg.VerifierPath)
	if err != nil {
		return nil, fmt.Errorf("loading verifier bundle: %w", err)
	}
	if err := loader.ValidateBundle(bundle); err != nil {
		return nil, fmt.Errorf("validating verifier bundle: %w", err)
	}

	provider, err := newProvider(cfg.Environment)
	if err != nil {
		return nil, err
	}

	opts := scoring.SandboxOptions{TimeoutMultiplier: cfg.TimeoutMultiplier}
	if cfg.Environment.OverrideCPUs != nil {
		opts.CPUs = *cfg.Environment.OverrideCPUs
	}
	if cfg.Environment.OverrideMemory != nil {
		mb, err := util.ParseMemory(*cfg.Environment.OverrideMemory)
		if err != nil {
			return nil, fmt.Errorf("parsing override_memory: %w", err)
		}
		opts.MemoryMB = mb
	}

	slog.Debug("sandbox scorer ready", "bundle", bundle.Name, "provider", provider.Name())
	return scoring.NewSandboxScorer(bundle, provider, opts), nil
}

func newProvider(env models.SandboxEnvironment) (environment.Provider, error) {
	switch env.Type {
	case "docker":
		return docker.NewProvider(), nil
	case "modal":
		p, err := modal.NewProvider(modal.ParseProviderConfig(env.ProviderConfig))
		if err != nil {
			return nil, fmt.Errorf("creating modal provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported environment type: %s", env.Type)
	}
}

// RunFromConfig loads a run config file and executes the run. Relative
// game state and verifier paths are resolved against the config file's
// directory.
func RunFromConfig(ctx context.Context, configPath string) (*models.RunResult, error) {
	cfg, err := config.LoadRunConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading run config: %w", err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	slog.SetLogLoggerLevel(level)

	resolvePaths(&cfg, filepath.Dir(configPath))

	runner, err := NewRunner(ctx, cfg, DefaultScorerFunc)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx)
}

func resolvePaths(cfg *models.RunConfig, baseDir string) {
	if p := cfg.GameState.Path; p != nil && *p != "" && !filepath.IsAbs(*p) {
		abs := filepath.Join(baseDir, *p)
		cfg.GameState.Path = &abs
	}
	if p := cfg.Scorer.VerifierPath; p != "" && !filepath.IsAbs(p) {
		cfg.Scorer.VerifierPath = filepath.Join(baseDir, p)
	}
}
