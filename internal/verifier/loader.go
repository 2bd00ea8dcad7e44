package verifier

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spachava753/swarmreward/internal/config"
	"github.com/spachava753/swarmreward/internal/models"
)

// Loader loads verifier bundles from disk.
type Loader struct{}

// NewLoader creates a new verifier bundle loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadBundle loads a verifier bundle from a filesystem path.
func (l *Loader) LoadBundle(ctx context.Context, bundlePath string) (*models.VerifierBundle, error) {
	absPath, err := filepath.Abs(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	fsys := os.DirFS(absPath)

	cfg, err := config.LoadVerifierConfig(fsys)
	if err != nil {
		return nil, fmt.Errorf("loading verifier config: %w", err)
	}

	var gitCommitID *string
	if sha := resolveGitSHA(ctx, absPath); sha != "" {
		gitCommitID = &sha
	}

	bundle := &models.VerifierBundle{
		Name:        filepath.Base(absPath),
		Path:        absPath,
		FS:          fsys,
		Config:      cfg,
		GitCommitID: gitCommitID,
	}

	slog.Debug("loaded verifier bundle", "name", bundle.Name, "path", absPath, "git_commit", sha(gitCommitID))
	return bundle, nil
}

// ValidateBundle checks that a bundle has everything a sandbox run needs.
func (l *Loader) ValidateBundle(bundle *models.VerifierBundle) error {
	if _, err := fs.Stat(bundle.FS, "tests/test.sh"); err != nil {
		return fmt.Errorf("tests/test.sh not found: %w", err)
	}

	// A prebuilt image replaces the environment directory.
	if bundle.Config.Env.DockerImage != nil && *bundle.Config.Env.DockerImage != "" {
		return nil
	}
	if _, err := fs.Stat(bundle.FS, "environment/Dockerfile"); err != nil {
		return fmt.Errorf("environment/Dockerfile not found: %w", err)
	}

	return nil
}

// resolveGitSHA attempts to get the current HEAD commit SHA.
func resolveGitSHA(ctx context.Context, path string) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = path
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func sha(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
