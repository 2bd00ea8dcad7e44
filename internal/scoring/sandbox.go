package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spachava753/swarmreward/internal/environment"
	"github.com/spachava753/swarmreward/internal/models"
)

const (
	sandboxInputPath  = "/rollout/input.json"
	sandboxRewardPath = "/logs/verifier/reward.txt"

	// maxEnvNameLength fits both Docker container names and Modal app names.
	maxEnvNameLength = 64
)

var invalidNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// SandboxOptions tunes how verifier sandboxes are sized and timed.
type SandboxOptions struct {
	TimeoutMultiplier float64
	CPUs              int // overrides the bundle when > 0
	MemoryMB          int // overrides the bundle when > 0
}

// SandboxScorer runs a verifier bundle's tests/test.sh inside a fresh
// environment per node. The script reads /rollout/input.json and writes one
// score per completion, one per line, to /logs/verifier/reward.txt.
type SandboxScorer struct {
	bundle   *models.VerifierBundle
	provider environment.Provider
	opts     SandboxOptions

	mu       sync.Mutex
	imageRef string
	runs     int
}

// NewSandboxScorer creates a scorer that verifies completions with the given bundle.
func NewSandboxScorer(bundle *models.VerifierBundle, provider environment.Provider, opts SandboxOptions) *SandboxScorer {
	if opts.TimeoutMultiplier <= 0 {
		opts.TimeoutMultiplier = 1.0
	}
	return &SandboxScorer{
		bundle:   bundle,
		provider: provider,
		opts:     opts,
	}
}

// Name returns the scorer name.
func (s *SandboxScorer) Name() string {
	return fmt.Sprintf("%s:%s/%s", models.ScorerSandbox, s.provider.Name(), s.bundle.Name)
}

type sandboxInput struct {
	Completions []models.Completion `json:"completions"`
	Answers     []string            `json:"answers"`
	Metadata    models.Metadata     `json:"metadata"`
	Weight      float64             `json:"weight"`
}

// Score implements CorrectnessScorer.
func (s *SandboxScorer) Score(ctx context.Context, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) ([]float64, error) {
	imageRef, err := s.image(ctx)
	if err != nil {
		return nil, &models.VerifierError{Type: models.ErrEnvironmentBuildFailed, Message: err.Error()}
	}

	env, err := s.provider.CreateEnvironment(ctx, environment.CreateEnvironmentOptions{
		Name:     s.nextEnvName(),
		ImageRef: imageRef,
		CPUs:     pick(s.opts.CPUs, s.bundle.Config.Env.CPUs),
		MemoryMB: pick(s.opts.MemoryMB, s.bundle.Config.Env.MemoryMB),
	})
	if err != nil {
		return nil, &models.VerifierError{Type: models.ErrEnvironmentStartFailed, Message: err.Error()}
	}
	defer func() {
		if err := env.Destroy(context.Background()); err != nil {
			slog.Warn("destroying verifier environment", "env_id", env.ID(), "error", err)
		}
	}()

	if err := s.stage(ctx, env, completions, answer, metadata, weight); err != nil {
		return nil, &models.VerifierError{Type: models.ErrEnvironmentStartFailed, Message: err.Error()}
	}

	raw, err := s.runVerifier(ctx, env)
	if err != nil {
		return nil, err
	}

	scores, err := parseRewards(raw, len(completions))
	if err != nil {
		return nil, &models.VerifierError{Type: models.ErrVerifierRewardInvalid, Message: err.Error()}
	}
	for i := range scores {
		scores[i] *= weight
	}
	return scores, nil
}

// image builds or pulls the verifier image once and reuses it for every node.
func (s *SandboxScorer) image(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.imageRef != "" {
		return s.imageRef, nil
	}

	envCfg := s.bundle.Config.Env
	if envCfg.DockerImage != nil && *envCfg.DockerImage != "" {
		if err := s.provider.PullImage(ctx, *envCfg.DockerImage); err != nil {
			return "", fmt.Errorf("pulling image: %w", err)
		}
		s.imageRef = *envCfg.DockerImage
		return s.imageRef, nil
	}

	tag := fmt.Sprintf("%s:%d", sanitizeEnvName("swarmreward-"+s.bundle.Name), time.Now().Unix())
	ref, err := s.provider.BuildImage(ctx, environment.BuildImageOptions{
		ContextDir: filepath.Join(s.bundle.Path, "environment"),
		Tag:        tag,
		Timeout:    s.timeout(envCfg.BuildTimeoutSec),
	})
	if err != nil {
		return "", fmt.Errorf("building image: %w", err)
	}

	slog.Debug("verifier image ready", "bundle", s.bundle.Name, "image", ref)
	s.imageRef = ref
	return ref, nil
}

// stage copies the tests and the node input into the environment.
func (s *SandboxScorer) stage(ctx context.Context, env environment.Environment, completions []models.Completion, answer models.Answer, metadata models.Metadata, weight float64) error {
	values, _ := answer.Values()
	payload, err := json.Marshal(sandboxInput{
		Completions: completions,
		Answers:     values,
		Metadata:    metadata,
		Weight:      weight,
	})
	if err != nil {
		return fmt.Errorf("encoding verifier input: %w", err)
	}

	tmp, err := os.CreateTemp("", "swarmreward-input-*.json")
	if err != nil {
		return fmt.Errorf("creating temp input: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp input: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp input: %w", err)
	}

	if err := env.CopyTo(ctx, tmp.Name(), sandboxInputPath); err != nil {
		return fmt.Errorf("copying input: %w", err)
	}
	if err := env.CopyTo(ctx, filepath.Join(s.bundle.Path, "tests"), "/tests"); err != nil {
		return fmt.Errorf("copying tests: %w", err)
	}

	if _, err := environment.Output(ctx, env, "mkdir -p /logs/verifier", environment.ExecOptions{}); err != nil {
		return fmt.Errorf("creating log dirs: %w", err)
	}
	return nil
}

// runVerifier executes the test script and returns the raw reward file.
func (s *SandboxScorer) runVerifier(ctx context.Context, env environment.Environment) (string, error) {
	_, err := environment.Output(ctx, env, "bash /tests/test.sh", environment.ExecOptions{
		Env:     map[string]string{"ROLLOUT_INPUT": sandboxInputPath},
		Timeout: s.timeout(s.bundle.Config.Verifier.TimeoutSec),
	})
	var exitErr *environment.ExitError
	switch {
	case errors.As(err, &exitErr):
		slog.Debug("verifier failed", "env_id", env.ID(), "exit_code", exitErr.Code, "stderr", exitErr.Stderr)
		return "", &models.VerifierError{
			Type:    models.ErrVerifierFailed,
			Message: fmt.Sprintf("verifier exited with code %d", exitErr.Code),
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "", err
	case errors.Is(err, environment.ErrTimeout):
		return "", &models.VerifierError{Type: models.ErrVerifierTimeout, Message: err.Error()}
	case err != nil:
		return "", &models.VerifierError{Type: models.ErrVerifierFailed, Message: err.Error()}
	}

	raw, err := environment.Output(ctx, env, "cat "+sandboxRewardPath, environment.ExecOptions{})
	if err != nil {
		return "", &models.VerifierError{Type: models.ErrVerifierRewardMissing, Message: "reward.txt not found: " + err.Error()}
	}
	return raw, nil
}

func (s *SandboxScorer) nextEnvName() string {
	s.mu.Lock()
	s.runs++
	n := s.runs
	s.mu.Unlock()
	return sanitizeEnvName(fmt.Sprintf("swarmreward-%d-%d-%s", time.Now().Unix(), n, s.bundle.Name))
}

// sanitizeEnvName lowercases name, folds runs of invalid characters into a
// single hyphen and truncates the result to maxEnvNameLength.
func sanitizeEnvName(name string) string {
	name = invalidNameChars.ReplaceAllString(strings.ToLower(name), "-")
	name = strings.Trim(name, "-")
	if len(name) > maxEnvNameLength {
		name = strings.TrimRight(name[:maxEnvNameLength], "-")
	}
	return name
}

func (s *SandboxScorer) timeout(sec float64) time.Duration {
	return time.Duration(sec * s.opts.TimeoutMultiplier * float64(time.Second))
}

// parseRewards reads one float per non-blank line and requires exactly n of them.
func parseRewards(raw string, n int) ([]float64, error) {
	var scores []float64
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil || math.IsNaN(v) {
			return nil, fmt.Errorf("invalid reward value: %s", line)
		}
		scores = append(scores, v)
	}
	if len(scores) != n {
		return nil, fmt.Errorf("expected %d reward lines, got %d", n, len(scores))
	}
	return scores, nil
}

func pick(override, fallback int) int {
	if override > 0 {
		return override
	}
	return fallback
}
