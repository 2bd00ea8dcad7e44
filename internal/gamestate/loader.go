package gamestate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spachava753/swarmreward/internal/models"
)

// LoadFromPath loads a game state document from a local filesystem path.
func LoadFromPath(path string) (*models.GameState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading game state file: %w", err)
	}

	return decode(data)
}

// LoadFromURL loads a game state document from a remote URL.
func LoadFromURL(ctx context.Context, url string) (*models.GameState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	slog.Debug("fetching game state", "url", url)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching game state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching game state: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return decode(data)
}

// Load reads the game state named by a config reference.
func Load(ctx context.Context, ref models.GameStateRef) (*models.GameState, error) {
	switch {
	case ref.Path != nil && *ref.Path != "":
		return LoadFromPath(*ref.Path)
	case ref.URL != nil && *ref.URL != "":
		return LoadFromURL(ctx, *ref.URL)
	default:
		return nil, fmt.Errorf("game state reference has neither path nor url")
	}
}

// decode rejects unknown fields so a document with batches written directly
// under an agent fails instead of loading as an agent with no batches.
func decode(data []byte) (*models.GameState, error) {
	var gs models.GameState
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&gs); err != nil {
		return nil, fmt.Errorf("parsing game state JSON: %w", err)
	}
	if gs.Agents == nil {
		gs.Agents = map[models.AgentID]models.AgentRecord{}
	}
	return &gs, nil
}
