package modal

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckImageBuilderVersion(t *testing.T) {
	tests := []struct {
		name        string
		config      string
		readErr     error
		errContains string
	}{
		{name: "minimum version", config: `{"image_builder_version": "2025.06"}`},
		{name: "later month", config: `{"image_builder_version": "2025.12"}`},
		{name: "later year", config: `{"image_builder_version": "2026.01"}`},
		{name: "unset", config: `{"image_builder_version": null}`, errContains: "is not set"},
		{name: "empty", config: `{"image_builder_version": ""}`, errContains: "is not set"},
		{name: "absent field", config: `{"token_id": "ak-123"}`, errContains: "is not set"},
		{name: "older year", config: `{"image_builder_version": "2024.10"}`, errContains: "is too old"},
		{name: "older month", config: `{"image_builder_version": "2025.4"}`, errContains: "is too old"},
		{name: "malformed version", config: `{"image_builder_version": "latest"}`, errContains: "want YYYY.MM"},
		{name: "cli missing", readErr: errors.New("modal CLI not found"), errContains: "reading modal config"},
		{name: "not json", config: `token_id = ak-123`, errContains: "parsing modal config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			read := func() ([]byte, error) {
				return []byte(tt.config), tt.readErr
			}

			err := checkImageBuilderVersion(read)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error containing %q, got %v", tt.errContains, err)
			}
		})
	}
}
