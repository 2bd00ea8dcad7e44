// Package docker runs verifier sandboxes as local containers through the
// docker CLI.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spachava753/swarmreward/internal/environment"
)

// Provider implements environment.Provider with the docker CLI.
type Provider struct {
	binary string
}

// NewProvider creates a provider that shells out to `docker` on PATH.
func NewProvider() *Provider {
	return &Provider{binary: "docker"}
}

func (p *Provider) Name() string {
	return "docker"
}

// BuildImage runs docker build and returns the tag.
func (p *Provider) BuildImage(ctx context.Context, opts environment.BuildImageOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	args := []string{"build", "-t", opts.Tag}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	args = append(args, opts.ContextDir)

	slog.Debug("building docker image", "tag", opts.Tag, "context", opts.ContextDir)
	if _, err := docker(ctx, p.binary, args...); err != nil {
		return "", fmt.Errorf("building docker image: %w", err)
	}
	return opts.Tag, nil
}

func (p *Provider) PullImage(ctx context.Context, imageRef string) error {
	slog.Debug("pulling docker image", "image", imageRef)
	if _, err := docker(ctx, p.binary, "pull", imageRef); err != nil {
		return fmt.Errorf("pulling docker image: %w", err)
	}
	return nil
}

// CreateEnvironment starts a detached container that idles until Destroy.
func (p *Provider) CreateEnvironment(ctx context.Context, opts environment.CreateEnvironmentOptions) (environment.Environment, error) {
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("swarmreward-%d", time.Now().UnixNano())
	}

	if _, err := docker(ctx, p.binary, runArgs(name, opts)...); err != nil {
		return nil, fmt.Errorf("creating docker container: %w", err)
	}

	slog.Debug("docker container created", "container", name, "image", opts.ImageRef)
	return &Container{binary: p.binary, name: name}, nil
}

// runArgs assembles the docker run invocation for an idle container.
func runArgs(name string, opts environment.CreateEnvironmentOptions) []string {
	args := []string{"run", "-d", "--name", name}
	if opts.CPUs > 0 {
		args = append(args, "--cpus", strconv.Itoa(opts.CPUs))
	}
	if opts.MemoryMB > 0 {
		args = append(args, "--memory", fmt.Sprintf("%dm", opts.MemoryMB))
	}
	for k, v := range opts.Env {
		args = append(args, "-e", k+"="+v)
	}
	return append(args, opts.ImageRef, "sleep", "infinity")
}

// Container is a running verifier container.
type Container struct {
	binary string
	name   string
}

func (c *Container) ID() string {
	return c.name
}

// CopyTo uses docker cp, which copies directories recursively.
func (c *Container) CopyTo(ctx context.Context, src, dst string) error {
	if dir := filepath.Dir(dst); dir != "/" && dir != "." {
		if _, err := docker(ctx, c.binary, "exec", c.name, "mkdir", "-p", dir); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	if _, err := docker(ctx, c.binary, "cp", src, c.name+":"+dst); err != nil {
		return fmt.Errorf("copying to container: %w", err)
	}
	return nil
}

func (c *Container) Exec(ctx context.Context, cmd string, stdout, stderr io.Writer, opts environment.ExecOptions) (int, error) {
	parent := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	args := []string{"exec"}
	for k, v := range opts.Env {
		args = append(args, "-e", k+"="+v)
	}
	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}
	args = append(args, c.name, "bash", "-c", cmd)

	execCmd := exec.CommandContext(ctx, c.binary, args...)
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr

	err := execCmd.Run()
	if err == nil {
		return 0, nil
	}
	if err := parent.Err(); err != nil {
		return -1, err
	}
	if opts.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return -1, fmt.Errorf("%w after %s", environment.ErrTimeout, opts.Timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("executing command: %w", err)
}

// Destroy force-removes the container. A container that is already gone is not an error.
func (c *Container) Destroy(ctx context.Context) error {
	slog.Debug("destroying docker container", "container", c.name)
	_, err := docker(ctx, c.binary, "rm", "-f", c.name)
	if err != nil && !strings.Contains(err.Error(), "No such container") {
		return fmt.Errorf("removing container: %w", err)
	}
	return nil
}

// docker runs one CLI invocation and folds the tail of stderr into its error.
func docker(ctx context.Context, binary string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("docker %s: %w: %s", args[0], err, tail(stderr.String()))
	}
	return stdout.String(), nil
}

// tail keeps the last lines of CLI output for error messages.
func tail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 10 {
		lines = lines[len(lines)-10:]
	}
	return strings.Join(lines, "\n")
}
