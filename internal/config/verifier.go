package config

import (
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
	"github.com/spachava753/swarmreward/internal/models"
	"github.com/spachava753/swarmreward/internal/util"
)

// DefaultVerifierConfig returns a VerifierConfig with default values.
func DefaultVerifierConfig() models.VerifierConfig {
	return models.VerifierConfig{
		Version: "1.0",
		Verifier: models.VerifierRunConfig{
			TimeoutSec: 120.0,
		},
		Env: models.VerifierEnvironment{
			BuildTimeoutSec: 600.0,
			CPUs:            1,
			MemoryMB:        2048, // 2G
		},
	}
}

// LoadVerifierConfig loads and parses a verifier.toml file from the given filesystem.
func LoadVerifierConfig(fsys fs.FS) (models.VerifierConfig, error) {
	cfg := DefaultVerifierConfig()

	data, err := fs.ReadFile(fsys, "verifier.toml")
	if err != nil {
		return cfg, fmt.Errorf("reading verifier.toml: %w", err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing verifier.toml: %w", err)
	}

	// Handle legacy 'memory' field if 'memory_mb' is not explicitly set
	if !md.IsDefined("environment", "memory_mb") && md.IsDefined("environment", "memory") {
		mb, err := util.ParseMemory(cfg.Env.Memory)
		if err != nil {
			return cfg, fmt.Errorf("parsing memory %q: %w", cfg.Env.Memory, err)
		}
		cfg.Env.MemoryMB = mb
	}

	if cfg.Verifier.TimeoutSec <= 0 {
		return cfg, fmt.Errorf("verifier.timeout_sec must be positive, got %v", cfg.Verifier.TimeoutSec)
	}

	return cfg, nil
}
