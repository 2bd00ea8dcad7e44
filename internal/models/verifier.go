package models

import (
	"io/fs"
)

// VerifierConfig represents the parsed verifier.toml configuration.
type VerifierConfig struct {
	Version  string              `toml:"version"`
	Source   *string             `toml:"source,omitempty"`
	Metadata map[string]any      `toml:"metadata,omitempty"`
	Verifier VerifierRunConfig   `toml:"verifier"`
	Env      VerifierEnvironment `toml:"environment"`
}

type VerifierRunConfig struct {
	TimeoutSec float64 `toml:"timeout_sec"` // default: 120.0
}

type VerifierEnvironment struct {
	BuildTimeoutSec float64 `toml:"build_timeout_sec"` // default: 600.0
	DockerImage     *string `toml:"docker_image,omitempty"`
	CPUs            int     `toml:"cpus"`              // default: 1
	Memory          string  `toml:"memory,omitempty"`  // Deprecated: use MemoryMB
	MemoryMB        int     `toml:"memory_mb,omitempty"`
}

// VerifierBundle is a loaded verifier directory ready to run in a sandbox.
type VerifierBundle struct {
	Name        string
	Path        string // filesystem path to bundle directory
	FS          fs.FS  // filesystem rooted at bundle directory
	Config      VerifierConfig
	GitCommitID *string // resolved git SHA, nil if not in git repo
}

// Environment returns the environment subdirectory filesystem.
func (b *VerifierBundle) Environment() (fs.FS, error) {
	return fs.Sub(b.FS, "environment")
}

// Tests returns the tests subdirectory filesystem.
func (b *VerifierBundle) Tests() (fs.FS, error) {
	return fs.Sub(b.FS, "tests")
}
