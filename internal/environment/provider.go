// Package environment abstracts the sandboxes verifier bundles run in.
package environment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrTimeout is wrapped by Exec errors when opts.Timeout elapses.
var ErrTimeout = errors.New("command timed out")

// Environment is a started sandbox. Callers must Destroy it.
type Environment interface {
	ID() string

	// CopyTo places a local file or directory tree at dst, creating parent
	// directories as needed.
	CopyTo(ctx context.Context, src, dst string) error

	// Exec runs cmd through bash. A non-zero exit is reported through the
	// exit code; err is reserved for failures to run or wait. It wraps
	// ErrTimeout when opts.Timeout elapses and is ctx.Err() when ctx ends first.
	Exec(ctx context.Context, cmd string, stdout, stderr io.Writer, opts ExecOptions) (int, error)

	Destroy(ctx context.Context) error
}

type ExecOptions struct {
	Env     map[string]string
	Timeout time.Duration // 0 means no limit beyond ctx
	WorkDir string
}

// Provider builds images and starts environments from them.
type Provider interface {
	Name() string

	// BuildImage builds ContextDir and returns a reference CreateEnvironment accepts.
	BuildImage(ctx context.Context, opts BuildImageOptions) (string, error)

	PullImage(ctx context.Context, imageRef string) error

	CreateEnvironment(ctx context.Context, opts CreateEnvironmentOptions) (Environment, error)
}

type BuildImageOptions struct {
	ContextDir string
	Tag        string
	Timeout    time.Duration
	NoCache    bool
}

// CreateEnvironmentOptions sizes a new environment. Zero CPUs or MemoryMB
// leave the provider default in place.
type CreateEnvironmentOptions struct {
	Name     string
	ImageRef string
	CPUs     int
	MemoryMB int
	Env      map[string]string
}

// Output runs cmd and returns its stdout. A non-zero exit is returned as an
// *ExitError holding stderr.
func Output(ctx context.Context, env Environment, cmd string, opts ExecOptions) (string, error) {
	var stdout, stderr bytes.Buffer
	code, err := env.Exec(ctx, cmd, &stdout, &stderr, opts)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return stdout.String(), &ExitError{Cmd: cmd, Code: code, Stderr: stderr.String()}
	}
	return stdout.String(), nil
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%q exited with code %d", e.Cmd, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}
