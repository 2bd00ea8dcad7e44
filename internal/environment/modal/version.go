package modal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// MinImageBuilderVersion is the oldest Modal image builder that replays the
// WORKDIR and ENV lines of a verifier Dockerfile correctly.
const MinImageBuilderVersion = "2025.06"

// ConfigReader returns the output of `modal config show`.
type ConfigReader func() ([]byte, error)

func readCLIConfig() ([]byte, error) {
	modalPath, err := exec.LookPath("modal")
	if err != nil {
		return nil, fmt.Errorf("modal CLI not found: %w", err)
	}
	return exec.Command(modalPath, "config", "show").Output()
}

// checkImageBuilderVersion fails unless the configured image builder is at
// least MinImageBuilderVersion.
func checkImageBuilderVersion(read ConfigReader) error {
	output, err := read()
	if err != nil {
		return fmt.Errorf("reading modal config: %w", err)
	}

	var cfg struct {
		ImageBuilderVersion string `json:"image_builder_version"`
	}
	if err := json.Unmarshal(output, &cfg); err != nil {
		return fmt.Errorf("parsing modal config: %w", err)
	}

	hint := fmt.Sprintf("sandbox scoring needs %s or later (modal config set image_builder_version %s)",
		MinImageBuilderVersion, MinImageBuilderVersion)
	if cfg.ImageBuilderVersion == "" {
		return fmt.Errorf("modal image_builder_version is not set: %s", hint)
	}

	older, err := versionBefore(cfg.ImageBuilderVersion, MinImageBuilderVersion)
	if err != nil {
		return fmt.Errorf("modal image_builder_version: %w", err)
	}
	if older {
		return fmt.Errorf("modal image_builder_version %q is too old: %s", cfg.ImageBuilderVersion, hint)
	}

	slog.Debug("modal image builder version ok", "version", cfg.ImageBuilderVersion)
	return nil
}

// versionBefore compares two YYYY.MM versions.
func versionBefore(v, than string) (bool, error) {
	vy, vm, err := splitVersion(v)
	if err != nil {
		return false, err
	}
	ty, tm, err := splitVersion(than)
	if err != nil {
		return false, err
	}
	return vy < ty || (vy == ty && vm < tm), nil
}

func splitVersion(v string) (year, month int, err error) {
	y, m, ok := strings.Cut(v, ".")
	if !ok {
		return 0, 0, fmt.Errorf("invalid version %q: want YYYY.MM", v)
	}
	if year, err = strconv.Atoi(y); err != nil {
		return 0, 0, fmt.Errorf("invalid version %q: want YYYY.MM", v)
	}
	if month, err = strconv.Atoi(m); err != nil {
		return 0, 0, fmt.Errorf("invalid version %q: want YYYY.MM", v)
	}
	return year, month, nil
}
