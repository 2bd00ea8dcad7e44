package executor_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spachava753/swarmreward/internal/config"
	"github.com/spachava753/swarmreward/internal/executor"
	"github.com/spachava753/swarmreward/internal/models"
	"github.com/spachava753/swarmreward/internal/scoring"
)

func ptr[T any](v T) *T {
	return &v
}

// loadTestConfig loads testdata/<name> with paths made absolute and output
// redirected to a temp dir.
func loadTestConfig(t *testing.T, name string) models.RunConfig {
	t.Helper()
	projectRoot, err := filepath.Abs("../..")
	if err != nil {
		t.Fatalf("getting project root: %v", err)
	}

	cfg, err := config.LoadRunConfig(filepath.Join(projectRoot, "testdata", name))
	if err != nil {
		t.Fatalf("loading run config: %v", err)
	}
	cfg.OutputDir = t.TempDir()
	if cfg.GameState.Path != nil {
		cfg.GameState.Path = ptr(filepath.Join(projectRoot, "testdata", *cfg.GameState.Path))
	}
	if cfg.Scorer.VerifierPath != "" {
		cfg.Scorer.VerifierPath = filepath.Join(projectRoot, "testdata", cfg.Scorer.VerifierPath)
	}
	return cfg
}

var expectedExampleRewards = models.RewardMatrix{
	"agent-0": {
		"batch-0": {{30, 20}, {20}},
		"batch-1": {{30}},
	},
	"agent-1": {
		"batch-0": {{30, 20}, {20}},
	},
}

func TestRunnerExactMatch(t *testing.T) {
	ctx := context.Background()
	cfg := loadTestConfig(t, "reward.yaml")

	runner, err := executor.NewRunner(ctx, cfg, executor.DefaultScorerFunc)
	if err != nil {
		t.Fatalf("creating runner: %v", err)
	}

	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("running: %v", err)
	}

	if result.Name != "example" || result.Round != 4 || result.Stage != 0 {
		t.Errorf("unexpected result header: %+v", result)
	}
	if !reflect.DeepEqual(result.Rewards, expectedExampleRewards) {
		t.Errorf("unexpected rewards:\n got  %v\n want %v", result.Rewards, expectedExampleRewards)
	}

	s := result.Summary
	if s.TotalAgents != 2 || s.TotalBatches != 3 || s.TotalNodes != 5 || s.TotalRewards != 7 {
		t.Errorf("unexpected summary totals: %+v", s)
	}
	if s.FloorRewards != 4 || s.CeilingRewards != 3 {
		t.Errorf("expected 4 floor and 3 ceiling rewards, got %d and %d", s.FloorRewards, s.CeilingRewards)
	}

	runDir := filepath.Join(cfg.OutputDir, "example")
	for _, name := range []string{"config.json", "rewards.json", "summary.json"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Errorf("expected %s in run dir: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(runDir, "rewards.json"))
	if err != nil {
		t.Fatalf("reading rewards.json: %v", err)
	}
	var written models.RewardMatrix
	if err := json.Unmarshal(data, &written); err != nil {
		t.Fatalf("decoding rewards.json: %v", err)
	}
	if !reflect.DeepEqual(written, expectedExampleRewards) {
		t.Errorf("rewards.json does not match result: %v", written)
	}
}

func TestRunnerRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	cfg := loadTestConfig(t, "reward.yaml")

	if err := os.MkdirAll(filepath.Join(cfg.OutputDir, "example"), 0755); err != nil {
		t.Fatal(err)
	}

	runner, err := executor.NewRunner(ctx, cfg, executor.DefaultScorerFunc)
	if err != nil {
		t.Fatalf("creating runner: %v", err)
	}
	_, err = runner.Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected already exists error, got %v", err)
	}
}

func TestRunnerScorerFactoryError(t *testing.T) {
	cfg := loadTestConfig(t, "reward.yaml")
	failing := func(ctx context.Context, cfg models.ScorerConfig) (scoring.CorrectnessScorer, error) {
		return nil, fmt.Errorf("no scorer")
	}

	_, err := executor.NewRunner(context.Background(), cfg, failing)
	if err == nil || !strings.Contains(err.Error(), "creating scorer") {
		t.Errorf("expected scorer creation error, got %v", err)
	}
}

func TestRunnerDefaultName(t *testing.T) {
	ctx := context.Background()
	cfg := loadTestConfig(t, "reward.yaml")
	cfg.Name = nil

	runner, err := executor.NewRunner(ctx, cfg, executor.DefaultScorerFunc)
	if err != nil {
		t.Fatalf("creating runner: %v", err)
	}
	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("running: %v", err)
	}
	if len(result.Name) != len("2006-01-02__15-04-05") || !strings.Contains(result.Name, "__") {
		t.Errorf("expected timestamp run name, got %s", result.Name)
	}
}

func TestRunFromConfig(t *testing.T) {
	projectRoot, err := filepath.Abs("../..")
	if err != nil {
		t.Fatalf("getting project root: %v", err)
	}

	dir := t.TempDir()
	gs, err := os.ReadFile(filepath.Join(projectRoot, "testdata", "game_state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "state.json"), gs, 0644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(dir, "out")
	yaml := fmt.Sprintf("name: from-config\noutput_dir: %s\npolicy:\n  include_formatting: true\ngame_state:\n  path: state.json\n", outDir)
	cfgPath := filepath.Join(dir, "reward.yaml")
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := executor.RunFromConfig(context.Background(), cfgPath)
	if err != nil {
		t.Fatalf("RunFromConfig: %v", err)
	}
	if !reflect.DeepEqual(result.Rewards, expectedExampleRewards) {
		t.Errorf("unexpected rewards: %v", result.Rewards)
	}
	if result.OutputDir != filepath.Join(outDir, "from-config") {
		t.Errorf("unexpected output dir %s", result.OutputDir)
	}
}

func TestRunFromConfigMissingFile(t *testing.T) {
	_, err := executor.RunFromConfig(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "loading run config") {
		t.Errorf("expected config load error, got %v", err)
	}
}

func TestRunnerSandboxDocker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping docker integration test in short mode")
	}

	ctx := context.Background()
	cfg := loadTestConfig(t, "reward_sandbox.yaml")

	runner, err := executor.NewRunner(ctx, cfg, executor.DefaultScorerFunc)
	if err != nil {
		t.Fatalf("creating runner: %v", err)
	}
	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("running: %v", err)
	}

	// Formatting is off in this config, so rewards only reflect correctness.
	if got := result.Rewards["agent-0"]["batch-0"][0]; !reflect.DeepEqual(got, []int{30, 20}) {
		t.Errorf("expected [30 20] for agent-0/batch-0/0, got %v", got)
	}
}
